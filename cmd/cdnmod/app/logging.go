package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog.Logger backed by a charmbracelet/log handler
// writing to w. An empty level means "warn".
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl := log.WarnLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := log.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "cdnmod",
		ReportTimestamp: lvl <= log.DebugLevel,
	})
	return slog.New(handler), nil
}
