package cdnmod

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ToolsLoader loads batches of tools and modules concurrently.
// Each module is still resolved by probing its candidates in order.
type ToolsLoader struct {
	resolver ModuleResolver
	loader   *AssetLoader
	limit    int
}

// NewToolsLoader creates a loader running at most maxConcurrency loads at
// once. Zero or negative means DefaultMaxConcurrency.
func NewToolsLoader(resolver ModuleResolver, loader *AssetLoader, maxConcurrency int) *ToolsLoader {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &ToolsLoader{resolver: resolver, loader: loader, limit: maxConcurrency}
}

// LoadTools resolves every tool, injects it as a script and requires its
// global to exist afterward. The first failure cancels the remaining loads
// and is returned.
func (t *ToolsLoader) LoadTools(ctx context.Context, tools []ModuleDescriptor) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.limit)

	for _, tool := range tools {
		tool.Format = string(FormatScript)
		g.Go(func() error {
			res, err := t.resolver.Resolve(ctx, tool)
			if err != nil {
				return fmt.Errorf("load tool %s: %w", tool.Name, err)
			}
			if _, err := t.loader.LoadNamespace(ctx, tool, res.URL); err != nil {
				return fmt.Errorf("load tool %s: %w", tool.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// LoadModules resolves and loads every module in its declared format and
// returns the namespaces by name. When registry is non-nil each namespace is
// stored there and the registry's entry is returned.
func (t *ToolsLoader) LoadModules(ctx context.Context, mods []ModuleDescriptor, registry *ModuleRegistry) (map[string]*Namespace, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.limit)

	loaded := make([]*Namespace, len(mods))
	for i, mod := range mods {
		g.Go(func() error {
			res, err := t.resolver.Resolve(ctx, mod)
			if err != nil {
				return fmt.Errorf("load module %s: %w", mod.Name, err)
			}
			ns, err := t.loader.LoadNamespace(ctx, mod, res.URL)
			if err != nil {
				return fmt.Errorf("load module %s: %w", mod.Name, err)
			}
			loaded[i] = ns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Namespace, len(mods))
	for i, mod := range mods {
		ns := loaded[i]
		if registry != nil {
			ns, _ = registry.Store(mod.Name, ns)
		}
		out[mod.Name] = ns
	}
	return out, nil
}

// MakeNamespace wraps raw exports. It is Wrap.
func (t *ToolsLoader) MakeNamespace(raw any) *Namespace {
	return Wrap(raw)
}
