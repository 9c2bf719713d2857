package cdnmod

import (
	"maps"
	"slices"
	"sync"
)

// ModuleRegistry maps module names to loaded namespaces.
//
// The first namespace stored under a name is authoritative for the lifetime
// of the registry: later stores return the existing entry. There is no
// eviction and no TTL. A ModuleRegistry is safe for concurrent use.
type ModuleRegistry struct {
	mu      sync.RWMutex
	entries map[string]*Namespace
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{entries: make(map[string]*Namespace)}
}

// Get returns the namespace stored under name.
func (r *ModuleRegistry) Get(name string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.entries[name]
	return ns, ok
}

// Store records ns under name unless an entry exists.
// It returns the entry now in the registry and whether ns was stored.
func (r *ModuleRegistry) Store(name string, ns *Namespace) (*Namespace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok {
		return existing, false
	}
	r.entries[name] = ns
	return ns, true
}

// Names returns the sorted names of all entries.
func (r *ModuleRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of entries.
func (r *ModuleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of all entries.
func (r *ModuleRegistry) Snapshot() map[string]*Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}
