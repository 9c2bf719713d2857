package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
)

// CurrentVersion is the record format written by this package.
const CurrentVersion = 1

// DefaultPath is the conventional record file name.
const DefaultPath = "cdnmod.resolutions.json"

// Record maps module names to their last resolution outcome.
// A Record is not safe for concurrent use; Recorder serializes access.
type Record struct {
	Version int              `json:"recordVersion"`
	Modules map[string]Entry `json:"modules"`
}

// Entry is the outcome of one resolution. Exactly one of URL and Error is
// set.
type Entry struct {
	URL         string   `json:"url,omitempty"`
	Tried       []string `json:"tried"`
	Error       string   `json:"error,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

// Resolved reports whether the resolution found a URL.
func (e Entry) Resolved() bool {
	return e.URL != ""
}

// Equal reports whether e and other describe the same outcome.
func (e Entry) Equal(other Entry) bool {
	return e.URL == other.URL &&
		e.Error == other.Error &&
		e.Fingerprint == other.Fingerprint &&
		slices.Equal(e.Tried, other.Tried)
}

// UnsupportedVersionError is returned when parsing a record written in a
// format this package does not understand.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported record version %d (supported: %d)", e.Version, CurrentVersion)
}

// New creates an empty record at CurrentVersion.
func New() *Record {
	return &Record{
		Version: CurrentVersion,
		Modules: make(map[string]Entry),
	}
}

// Get returns the entry for name.
func (r *Record) Get(name string) (Entry, bool) {
	e, ok := r.Modules[name]
	return e, ok
}

// Set records the entry for name.
func (r *Record) Set(name string, e Entry) {
	if r.Modules == nil {
		r.Modules = make(map[string]Entry)
	}
	r.Modules[name] = e
}

// Names returns the recorded module names in sorted order.
func (r *Record) Names() []string {
	return slices.Sorted(maps.Keys(r.Modules))
}

// Retain drops every entry whose name is not in names and returns how many
// were dropped.
func (r *Record) Retain(names []string) int {
	dropped := 0
	for name := range r.Modules {
		if !slices.Contains(names, name) {
			delete(r.Modules, name)
			dropped++
		}
	}
	return dropped
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := New()
	out.Version = r.Version
	for name, e := range r.Modules {
		e.Tried = slices.Clone(e.Tried)
		out.Modules[name] = e
	}
	return out
}

// Fingerprint returns a stable hash of desc.
func Fingerprint(desc cdnmod.ModuleDescriptor) string {
	// Struct fields marshal in declaration order, so the encoding is stable.
	data, err := json.Marshal(desc)
	if err != nil {
		// ModuleDescriptor holds only strings, slices and a *bool.
		panic(fmt.Sprintf("record: marshal descriptor: %v", err))
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
