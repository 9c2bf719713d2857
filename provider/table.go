package provider

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// DefaultAliases returns the built-in provider aliases.
// The returned map is a fresh copy and may be modified by the caller.
func DefaultAliases() map[string]string {
	return map[string]string{
		"unpkg":    "https://unpkg.com/",
		"jsdelivr": "https://cdn.jsdelivr.net/npm/",
		"esm.sh":   "https://esm.sh/",
		"skypack":  "https://cdn.skypack.dev/",
		"jspm":     "https://jspm.dev/",
	}
}

// NormalizeBase turns a raw origin string into a provider base.
//
// Root-relative paths and http(s) URLs keep their form; anything else is
// treated as a host name and gets an https:// scheme. Trailing slashes are
// collapsed to exactly one. Empty input yields "", which callers must treat
// as "no base available".
func NormalizeBase(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		// raw was only slashes: the site root
		return "/"
	}
	if !strings.HasPrefix(s, "/") && !hasHTTPScheme(s) {
		s = "https://" + s
	}
	return s + "/"
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Table holds provider aliases, the default base and the fallback list.
//
// Aliases set with SetAliases are merged over the table's defaults, so a
// caller can override a single alias without losing the others.
type Table struct {
	mu sync.RWMutex

	defaultAliases   map[string]string
	aliases          map[string]string
	defaultBase      string
	defaultFallbacks []string
	fallbacks        []string
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithDefaultAliases replaces the built-in alias defaults.
func WithDefaultAliases(aliases map[string]string) TableOption {
	return func(t *Table) {
		t.defaultAliases = normalizeAliases(aliases)
	}
}

// WithDefaultFallbacks sets the fallback list that SetFallbackProviders
// resets to when given an empty list.
func WithDefaultFallbacks(providers ...string) TableOption {
	return func(t *Table) {
		t.defaultFallbacks = t.normalizeList(providers)
	}
}

// NewTable creates a table seeded with DefaultAliases and no fallbacks.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		defaultAliases: normalizeAliases(DefaultAliases()),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.aliases = maps.Clone(t.defaultAliases)
	t.fallbacks = slices.Clone(t.defaultFallbacks)
	return t
}

// Normalize resolves an alias or normalizes a literal origin.
func (t *Table) Normalize(raw string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return normalizeWith(t.aliases, raw)
}

// SetAliases merges aliases over the table defaults.
// Entries with an empty name or an empty value are ignored.
func (t *Table) SetAliases(aliases map[string]string) {
	merged := maps.Clone(t.defaultAliases)
	maps.Copy(merged, normalizeAliases(aliases))

	t.mu.Lock()
	t.aliases = merged
	t.mu.Unlock()
}

// Aliases returns a copy of the current alias map.
func (t *Table) Aliases() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.aliases)
}

// SetDefaultBase sets the base used when a module names no provider.
// The value is normalized literally; aliases are not consulted.
func (t *Table) SetDefaultBase(raw string) {
	base := NormalizeBase(raw)
	t.mu.Lock()
	t.defaultBase = base
	t.mu.Unlock()
}

// DefaultBase returns the normalized default base, or "".
func (t *Table) DefaultBase() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultBase
}

// SetFallbackProviders replaces the fallback list.
//
// Entries are alias-resolved and normalized; entries that normalize to ""
// are dropped. An empty input, or one where every entry is dropped, resets
// the list to the table's default fallbacks.
func (t *Table) SetFallbackProviders(providers []string) {
	list := t.normalizeList(providers)

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(list) == 0 {
		t.fallbacks = slices.Clone(t.defaultFallbacks)
		return
	}
	t.fallbacks = list
}

// FallbackProviders returns a copy of the fallback list.
func (t *Table) FallbackProviders() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.fallbacks)
}

// Snapshot returns a consistent, immutable copy of the table configuration.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		aliases:     maps.Clone(t.aliases),
		defaultBase: t.defaultBase,
		fallbacks:   slices.Clone(t.fallbacks),
	}
}

func (t *Table) normalizeList(providers []string) []string {
	t.mu.RLock()
	aliases := t.aliases
	if aliases == nil {
		aliases = t.defaultAliases
	}
	t.mu.RUnlock()

	list := make([]string, 0, len(providers))
	for _, p := range providers {
		if base := normalizeWith(aliases, p); base != "" {
			list = append(list, base)
		}
	}
	return list
}

// Snapshot is a point-in-time copy of a Table.
type Snapshot struct {
	aliases     map[string]string
	defaultBase string
	fallbacks   []string
}

// Normalize resolves an alias or normalizes a literal origin.
func (s Snapshot) Normalize(raw string) string {
	return normalizeWith(s.aliases, raw)
}

// DefaultBase returns the default base captured by the snapshot.
func (s Snapshot) DefaultBase() string {
	return s.defaultBase
}

// FallbackProviders returns the fallback list captured by the snapshot.
func (s Snapshot) FallbackProviders() []string {
	return slices.Clone(s.fallbacks)
}

func normalizeWith(aliases map[string]string, raw string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return ""
	}
	if base, ok := aliases[key]; ok {
		return base
	}
	return NormalizeBase(key)
}

func normalizeAliases(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for name, value := range in {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if base := NormalizeBase(value); base != "" {
			out[name] = base
		}
	}
	return out
}
