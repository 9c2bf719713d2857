// Command cdnmod resolves and loads modules from content-delivery origins.
package main

import (
	"os"

	"github.com/albertocavalcante/go-cdnmod/cmd/cdnmod/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
