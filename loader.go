package cdnmod

import (
	"context"
	"fmt"
	"log/slog"
)

// ScriptHost is the environment classic scripts are injected into.
// *host.Document is the default implementation.
type ScriptHost interface {
	// LoadScript injects the script at url and returns once it has loaded.
	LoadScript(ctx context.Context, url string) error

	// Global looks up a binding published by a loaded script.
	Global(name string) (any, bool)
}

// GlobalSetter is implemented by script hosts that accept new bindings.
type GlobalSetter interface {
	SetGlobal(name string, value any)
}

// ModuleImporter imports a module and returns its exports.
// *host.Importer is the default implementation.
type ModuleImporter interface {
	Import(ctx context.Context, url string) (any, error)
}

// AssetLoader loads a resolved URL according to the descriptor's format.
type AssetLoader struct {
	scripts ScriptHost
	modules ModuleImporter
	logger  *slog.Logger
}

// NewAssetLoader creates a loader. Either dependency may be nil, in which
// case loading that format fails with a *ConfigurationError.
func NewAssetLoader(scripts ScriptHost, modules ModuleImporter, logger *slog.Logger) *AssetLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AssetLoader{scripts: scripts, modules: modules, logger: logger}
}

// Load loads the asset at url and returns its raw exports.
//
// Scripts are injected through the ScriptHost and the descriptor's Global
// is read back; a missing global is a *LoadError wrapping ErrGlobalNotFound.
// Modules are imported through the ModuleImporter.
func (l *AssetLoader) Load(ctx context.Context, desc ModuleDescriptor, url string) (any, error) {
	switch desc.LoadFormat() {
	case FormatModule:
		return l.importModule(ctx, desc, url)
	default:
		return l.loadScript(ctx, desc, url)
	}
}

// LoadNamespace loads the asset at url and wraps it into a Namespace.
//
// After a module import with a declared Global, the namespace default is
// published into the script host when the binding is absent and the host
// accepts new bindings.
func (l *AssetLoader) LoadNamespace(ctx context.Context, desc ModuleDescriptor, url string) (*Namespace, error) {
	raw, err := l.Load(ctx, desc, url)
	if err != nil {
		return nil, err
	}
	ns := Wrap(raw)

	if desc.LoadFormat() == FormatModule && desc.Global != "" {
		l.publishGlobal(desc.Global, ns)
	}

	l.logger.InfoContext(ctx, "module loaded",
		"module", desc.Name,
		"url", url,
		"format", string(desc.LoadFormat()),
		"global", desc.Global)
	return ns, nil
}

func (l *AssetLoader) loadScript(ctx context.Context, desc ModuleDescriptor, url string) (any, error) {
	if desc.Global == "" {
		return nil, &ConfigurationError{Module: desc.Name, Reason: "script format requires a global name"}
	}
	if l.scripts == nil {
		return nil, &ConfigurationError{Module: desc.Name, Reason: "no script host configured"}
	}

	if err := l.scripts.LoadScript(ctx, url); err != nil {
		return nil, &LoadError{Module: desc.Name, URL: url, Err: err}
	}

	value, ok := l.scripts.Global(desc.Global)
	if !ok || value == nil {
		return nil, &LoadError{
			Module: desc.Name,
			URL:    url,
			Err:    fmt.Errorf("%w: %s", ErrGlobalNotFound, desc.Global),
		}
	}
	return value, nil
}

func (l *AssetLoader) importModule(ctx context.Context, desc ModuleDescriptor, url string) (any, error) {
	if l.modules == nil {
		return nil, &ConfigurationError{Module: desc.Name, Reason: "no module importer configured"}
	}
	exports, err := l.modules.Import(ctx, url)
	if err != nil {
		return nil, &LoadError{Module: desc.Name, URL: url, Err: err}
	}
	return exports, nil
}

func (l *AssetLoader) publishGlobal(name string, ns *Namespace) {
	setter, ok := l.scripts.(GlobalSetter)
	if !ok {
		return
	}
	if _, exists := l.scripts.Global(name); exists {
		return
	}
	setter.SetGlobal(name, ns.Default())
}
