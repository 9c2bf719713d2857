package cdnmod

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// fakeProber reports reachability from a fixed set and records every call.
type fakeProber struct {
	mu        sync.Mutex
	reachable map[string]bool
	calls     []string
}

func newFakeProber(reachable ...string) *fakeProber {
	p := &fakeProber{reachable: make(map[string]bool)}
	for _, u := range reachable {
		p.reachable[u] = true
	}
	return p
}

func (p *fakeProber) Probe(_ context.Context, url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	return p.reachable[url]
}

func (p *fakeProber) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// fakeHost is an in-memory ScriptHost.
type fakeHost struct {
	mu      sync.Mutex
	scripts map[string]map[string]any
	globals map[string]any
	loaded  []string
	failURL string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		scripts: make(map[string]map[string]any),
		globals: make(map[string]any),
	}
}

func (h *fakeHost) serve(url string, bindings map[string]any) *fakeHost {
	h.scripts[url] = bindings
	return h
}

func (h *fakeHost) LoadScript(_ context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if url == h.failURL {
		return errors.New("script error")
	}
	h.loaded = append(h.loaded, url)
	for k, v := range h.scripts[url] {
		h.globals[k] = v
	}
	return nil
}

func (h *fakeHost) Global(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.globals[name]
	return v, ok
}

func (h *fakeHost) SetGlobal(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.globals[name] = value
}

func (h *fakeHost) loadedScripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.loaded)
}

// fakeImporter returns fixed exports per URL.
type fakeImporter map[string]any

func (f fakeImporter) Import(_ context.Context, url string) (any, error) {
	v, ok := f[url]
	if !ok {
		return nil, errors.New("module not found: " + url)
	}
	return v, nil
}

func boolPtr(b bool) *bool { return &b }

func noEnv(string) (string, bool) { return "", false }
