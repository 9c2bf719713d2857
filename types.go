package cdnmod

import "strings"

// Format selects how a resolved asset is loaded.
type Format string

const (
	// FormatScript injects the asset as a classic script and reads a global.
	FormatScript Format = "script"

	// FormatModule imports the asset as a module and uses its exports.
	FormatModule Format = "module"
)

// ParseFormat maps a declared format to a Format.
// "module" and "esm" select FormatModule; everything else, including
// "global", "umd" and "", selects FormatScript.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "module", "esm":
		return FormatModule
	default:
		return FormatScript
	}
}

// ModuleDescriptor identifies what to load and which origins are acceptable.
type ModuleDescriptor struct {
	// Name is the module name used for registry keys and as the default package.
	Name string `json:"name"`

	// Package is the published package name. Defaults to Name.
	Package string `json:"package,omitempty"`

	// Version is substituted as "@version" after the package name.
	Version string `json:"version,omitempty"`

	// File is the asset file under PathPrefix.
	File string `json:"file,omitempty"`

	// PathPrefix is joined before File.
	PathPrefix string `json:"pathPrefix,omitempty"`

	// Path is an explicit asset path. When set, File and PathPrefix are ignored
	// and no conventional subpaths are tried.
	Path string `json:"path,omitempty"`

	Provider           string `json:"provider,omitempty"`
	CIProvider         string `json:"ciProvider,omitempty"`
	ProductionProvider string `json:"productionProvider,omitempty"`

	// AllowFallback enables the configured fallback providers. Nil means true.
	AllowFallback *bool `json:"allowFallback,omitempty"`

	// Format is "script" (default, aliases "global" and "umd") or "module" (alias "esm").
	Format string `json:"format,omitempty"`

	// ImportSpecifiers are the import map keys for this module. Defaults to [Name].
	ImportSpecifiers []string `json:"importSpecifiers,omitempty"`

	// URL short-circuits resolution. It is returned without probing.
	URL string `json:"url,omitempty"`

	// Global is the binding read after a script load.
	Global string `json:"global,omitempty"`
}

// PackageName returns Package, or Name if Package is empty.
func (d ModuleDescriptor) PackageName() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Name
}

// FallbackAllowed reports whether fallback providers may be used.
func (d ModuleDescriptor) FallbackAllowed() bool {
	return d.AllowFallback == nil || *d.AllowFallback
}

// LoadFormat returns the parsed Format.
func (d ModuleDescriptor) LoadFormat() Format {
	return ParseFormat(d.Format)
}

// Specifiers returns the import map keys of the module, skipping empty entries.
func (d ModuleDescriptor) Specifiers() []string {
	if len(d.ImportSpecifiers) == 0 {
		if d.Name == "" {
			return nil
		}
		return []string{d.Name}
	}
	specs := make([]string, 0, len(d.ImportSpecifiers))
	for _, s := range d.ImportSpecifiers {
		if s != "" {
			specs = append(specs, s)
		}
	}
	return specs
}

// IconPlaceholder is replaced by the icon in DynamicRule patterns.
const IconPlaceholder = "{icon}"

// Dynamic rule pattern defaults.
const (
	DefaultFilePattern   = IconPlaceholder + ".js"
	DefaultGlobalPattern = IconPlaceholder
)

// DynamicRule maps every module name starting with Prefix to a shared
// provider and path strategy. The remainder of the name is the icon.
type DynamicRule struct {
	Prefix string `json:"prefix"`

	// Package defaults to Prefix without a trailing "/" or "/*".
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`

	Provider           string `json:"provider,omitempty"`
	CIProvider         string `json:"ciProvider,omitempty"`
	ProductionProvider string `json:"productionProvider,omitempty"`
	AllowFallback      *bool  `json:"allowFallback,omitempty"`

	PathPrefix string `json:"pathPrefix,omitempty"`

	// FilePattern is the asset path template. Defaults to "{icon}.js".
	FilePattern string `json:"filePattern,omitempty"`

	// GlobalPattern is the global binding template. Defaults to "{icon}".
	GlobalPattern string `json:"globalPattern,omitempty"`

	Format string `json:"format,omitempty"`
}

// Matches reports whether name starts with the rule prefix.
func (r DynamicRule) Matches(name string) bool {
	return strings.HasPrefix(name, r.Prefix)
}

// PackageName returns Package or the prefix without its trailing "/" or "/*".
func (r DynamicRule) PackageName() string {
	if r.Package != "" {
		return r.Package
	}
	if p, ok := strings.CutSuffix(r.Prefix, "/*"); ok {
		return p
	}
	return strings.TrimSuffix(r.Prefix, "/")
}

// Icon returns name without the rule prefix.
func (r DynamicRule) Icon(name string) string {
	return strings.TrimPrefix(name, r.Prefix)
}

// Descriptor builds the module descriptor for name under this rule.
func (r DynamicRule) Descriptor(name string) ModuleDescriptor {
	icon := r.Icon(name)
	return ModuleDescriptor{
		Name:               name,
		Package:            r.PackageName(),
		Version:            r.Version,
		PathPrefix:         r.PathPrefix,
		File:               expandPattern(r.FilePattern, DefaultFilePattern, icon),
		Provider:           r.Provider,
		CIProvider:         r.CIProvider,
		ProductionProvider: r.ProductionProvider,
		AllowFallback:      r.AllowFallback,
		Format:             r.Format,
		Global:             expandPattern(r.GlobalPattern, DefaultGlobalPattern, icon),
	}
}

func expandPattern(pattern, fallback, icon string) string {
	if pattern == "" {
		pattern = fallback
	}
	return strings.Replace(pattern, IconPlaceholder, icon, 1)
}

// ResolutionResult is the outcome of a successful resolution.
type ResolutionResult struct {
	// URL is the first reachable candidate, or the descriptor's explicit URL.
	URL string `json:"url"`

	// Tried lists every URL probed, in order, ending with URL.
	// It is empty when the descriptor carried an explicit URL.
	Tried []string `json:"tried"`
}
