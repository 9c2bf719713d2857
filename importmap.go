package cdnmod

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ImportMap is a browser import map: specifier to URL.
type ImportMap struct {
	Imports map[string]string `json:"imports"`
}

// JSON renders the import map indented by two spaces.
func (m *ImportMap) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// BuildImportMap resolves every module and maps each of its import
// specifiers to the resolved URL. Modules with an explicit URL are not
// probed. When two modules claim a specifier, the later one in mods wins.
//
// Resolution runs concurrently, bounded by maxConcurrency (zero means
// DefaultMaxConcurrency); the first failure is returned.
func BuildImportMap(ctx context.Context, resolver ModuleResolver, mods []ModuleDescriptor, maxConcurrency int) (*ImportMap, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	urls := make([]string, len(mods))
	for i, mod := range mods {
		g.Go(func() error {
			res, err := resolver.Resolve(ctx, mod)
			if err != nil {
				return fmt.Errorf("build import map: %w", err)
			}
			urls[i] = res.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	imports := make(map[string]string)
	for i, mod := range mods {
		for _, spec := range mod.Specifiers() {
			imports[spec] = urls[i]
		}
	}
	return &ImportMap{Imports: imports}, nil
}
