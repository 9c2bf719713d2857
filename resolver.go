package cdnmod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/albertocavalcante/go-cdnmod/provider"
)

// Prober reports whether a URL is reachable. Implementations never fail;
// an unreachable URL is simply false. *probe.Prober is the default.
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// ModuleResolver resolves a module descriptor to a reachable URL.
// *Resolver is the default implementation.
type ModuleResolver interface {
	Resolve(ctx context.Context, desc ModuleDescriptor) (*ResolutionResult, error)
}

// Resolver finds the first reachable URL for a module across its providers.
//
// Candidates are probed strictly in order, one at a time, and the search
// stops at the first success. Provider configuration is read from a snapshot
// per resolution, so reconfiguring the table while a resolution is in flight
// is seen entirely or not at all.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	table  *provider.Table
	mode   provider.ModeResolver
	prober Prober
	logger *slog.Logger
}

// NewResolver creates a resolver from options.
func NewResolver(opts ...Option) (*Resolver, error) {
	cfg, err := newClientConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newResolver(cfg), nil
}

func newResolver(cfg *clientConfig) *Resolver {
	return &Resolver{
		table:  cfg.table(),
		mode:   cfg.modeResolver(),
		prober: cfg.newProber(),
		logger: cfg.log(),
	}
}

// Providers returns the live provider table. Changes apply to resolutions
// that start afterward.
func (r *Resolver) Providers() *provider.Table {
	return r.table
}

// ProxyMode returns the effective proxy mode.
func (r *Resolver) ProxyMode() provider.ProxyMode {
	return r.mode.Resolve()
}

// Bases returns the normalized provider bases for desc in priority order.
func (r *Resolver) Bases(desc ModuleDescriptor) []string {
	return collectBases(desc, r.mode.PreferCI(), r.table.Snapshot())
}

// Candidates returns the candidate URLs for desc without any network access.
func (r *Resolver) Candidates(desc ModuleDescriptor) []string {
	return BuildCandidates(desc, r.Bases(desc))
}

// Resolve returns the first reachable candidate URL for desc.
//
// A descriptor with an explicit URL is returned as-is without probing.
// When every candidate fails, the error is a *ResolutionError listing all
// tried URLs.
func (r *Resolver) Resolve(ctx context.Context, desc ModuleDescriptor) (*ResolutionResult, error) {
	if desc.URL != "" {
		return &ResolutionResult{URL: desc.URL, Tried: []string{}}, nil
	}
	if desc.PackageName() == "" {
		return nil, &ConfigurationError{Reason: "module has neither name nor package"}
	}

	candidates := r.Candidates(desc)
	tried := make([]string, 0, len(candidates))
	for _, url := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve module %s: %w", desc.Name, err)
		}
		tried = append(tried, url)
		if r.prober.Probe(ctx, url) {
			r.logger.InfoContext(ctx, "module resolved",
				"module", desc.Name,
				"url", url,
				"tried", len(tried))
			return &ResolutionResult{URL: url, Tried: tried}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve module %s: %w", desc.Name, err)
	}

	r.logger.WarnContext(ctx, "module resolution failed",
		"module", desc.Name,
		"tried", tried)
	return nil, &ResolutionError{Module: desc.Name, Tried: tried}
}
