package record

import "fmt"

// MergeStrategy defines how conflicting entries are handled by Merge.
type MergeStrategy int

const (
	// MergePreferExisting keeps existing entries on conflict.
	MergePreferExisting MergeStrategy = iota

	// MergePreferNew overwrites with the other record's entries.
	MergePreferNew

	// MergeErrorOnConflict fails if an entry differs.
	MergeErrorOnConflict
)

// ConflictError reports a module recorded differently in two records.
type ConflictError struct {
	Module   string
	Existing Entry
	New      Entry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record conflict for module %s: %s != %s", e.Module, outcome(e.Existing), outcome(e.New))
}

// Merge combines other into r according to strategy.
func (r *Record) Merge(other *Record, strategy MergeStrategy) error {
	if other == nil {
		return nil
	}
	for name, entry := range other.Modules {
		existing, ok := r.Modules[name]
		if !ok || existing.Equal(entry) {
			r.Set(name, entry)
			continue
		}
		switch strategy {
		case MergePreferExisting:
		case MergePreferNew:
			r.Set(name, entry)
		case MergeErrorOnConflict:
			return &ConflictError{Module: name, Existing: existing, New: entry}
		default:
			return fmt.Errorf("unknown merge strategy %d", strategy)
		}
	}
	return nil
}

func outcome(e Entry) string {
	if e.Resolved() {
		return e.URL
	}
	return "unresolved"
}
