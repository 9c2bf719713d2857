// Package cdnmod resolves named code modules across a prioritized list of
// content-delivery origins and loads them as uniform namespaces.
//
// # Overview
//
// The package provides these components:
//
//   - Resolver: builds candidate URLs for a module across its providers and
//     the configured fallbacks, then probes them in order
//   - AssetLoader: loads a resolved URL as a script (reading a global) or as a
//     module (importing its exports)
//   - Wrap: coerces any export shape into a Namespace
//   - DynamicModules: loads modules by name through prefix rules
//   - ToolsLoader: loads batches of tools and modules concurrently
//   - BuildImportMap: produces an import map for a module list
//
// # Quick Start
//
//	client, err := cdnmod.New(
//	    cdnmod.WithFallbackProviders("unpkg", "jsdelivr"),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := client.Resolve(ctx, cdnmod.ModuleDescriptor{
//	    Name:    "react",
//	    Version: "18.3.1",
//	    File:    "react.production.min.js",
//	})
//
// # Providers
//
// Providers are aliases ("unpkg", "jsdelivr", "esm.sh", "skypack", "jspm"),
// host names, absolute URLs or root-relative paths. All of them are
// normalized into bases ending in exactly one slash.
//
// A descriptor with both CIProvider and ProductionProvider picks a side by
// proxy mode: "proxy" prefers CI, "direct" prefers production and "auto"
// prefers CI only on loopback hosts. The mode comes from WithProxyMode, then
// the CDNMOD_PROXY_MODE environment variable.
//
// # Thread Safety
//
// All public types in this package are safe for concurrent use.
package cdnmod

import (
	"context"

	"github.com/albertocavalcante/go-cdnmod/host"
	"github.com/albertocavalcante/go-cdnmod/provider"
)

// Client wires a Resolver, an AssetLoader, a ModuleRegistry and the batch
// loaders from one set of options.
type Client struct {
	cfg      *clientConfig
	resolver *Resolver
	loader   *AssetLoader
	registry *ModuleRegistry
	dynamic  *DynamicModules
	tools    *ToolsLoader
	document *host.Document
}

// New creates a client.
//
// Without WithScriptHost or WithImporter, scripts and modules are fetched
// over HTTP into an in-memory host.Document.
func New(opts ...Option) (*Client, error) {
	cfg, err := newClientConfig(opts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		resolver: newResolver(cfg),
		registry: NewModuleRegistry(),
	}

	fetcherOpts := []host.FetcherOption{}
	if cfg.httpClient != nil {
		fetcherOpts = append(fetcherOpts, host.WithHTTPClient(cfg.httpClient))
	}
	if cfg.baseURL != "" {
		fetcherOpts = append(fetcherOpts, host.WithBaseURL(cfg.baseURL))
	}
	fetcher := host.NewHTTPFetcher(fetcherOpts...)

	scripts := cfg.scripts
	if scripts == nil {
		doc, err := host.NewDocument(host.WithFetcher(fetcher), host.WithLogger(cfg.log()))
		if err != nil {
			return nil, err
		}
		c.document = doc
		scripts = doc
	}
	importer := cfg.importer
	if importer == nil {
		importer = host.NewImporter(fetcher)
	}

	c.loader = NewAssetLoader(scripts, importer, cfg.log())
	c.dynamic = NewDynamicModules(c.resolver, c.loader, cfg.matching)
	c.tools = NewToolsLoader(c.resolver, c.loader, cfg.limit())
	return c, nil
}

// Resolver returns the client's resolver.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

// Providers returns the live provider table.
func (c *Client) Providers() *provider.Table {
	return c.resolver.Providers()
}

// Loader returns the client's asset loader.
func (c *Client) Loader() *AssetLoader {
	return c.loader
}

// Registry returns the client's module registry.
func (c *Client) Registry() *ModuleRegistry {
	return c.registry
}

// Document returns the default host document, or nil when a custom
// ScriptHost was configured.
func (c *Client) Document() *host.Document {
	return c.document
}

// Resolve returns the first reachable URL for desc.
func (c *Client) Resolve(ctx context.Context, desc ModuleDescriptor) (*ResolutionResult, error) {
	return c.resolver.Resolve(ctx, desc)
}

// Candidates returns the candidate URLs for desc without network access.
func (c *Client) Candidates(desc ModuleDescriptor) []string {
	return c.resolver.Candidates(desc)
}

// LoadDynamic loads a module by name through rules, caching it in the
// client registry.
func (c *Client) LoadDynamic(ctx context.Context, name string, rules []DynamicRule) (*Namespace, error) {
	return c.dynamic.Load(ctx, name, rules, c.registry)
}

// LoadTools loads tools as scripts and checks their globals.
func (c *Client) LoadTools(ctx context.Context, tools []ModuleDescriptor) error {
	return c.tools.LoadTools(ctx, tools)
}

// LoadModules loads modules into the client registry.
func (c *Client) LoadModules(ctx context.Context, mods []ModuleDescriptor) (map[string]*Namespace, error) {
	return c.tools.LoadModules(ctx, mods, c.registry)
}

// ImportMap builds the import map for mods.
func (c *Client) ImportMap(ctx context.Context, mods []ModuleDescriptor) (*ImportMap, error) {
	return BuildImportMap(ctx, c.resolver, mods, c.cfg.limit())
}

// Resolve resolves a single module with a resolver built from opts.
//
// This is the simplest entry point:
//
//	res, err := cdnmod.Resolve(ctx, desc, cdnmod.WithFallbackProviders("unpkg"))
func Resolve(ctx context.Context, desc ModuleDescriptor, opts ...Option) (*ResolutionResult, error) {
	r, err := NewResolver(opts...)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, desc)
}
