package record

import (
	"fmt"
	"slices"
)

// ChangeKind classifies a Change.
type ChangeKind string

const (
	// Added is a module absent from the earlier record.
	Added ChangeKind = "added"
	// Moved is a module that now resolves to a different URL.
	Moved ChangeKind = "moved"
	// Broken is a module that resolved before and no longer does.
	Broken ChangeKind = "broken"
	// Recovered is a module that failed before and now resolves.
	Recovered ChangeKind = "recovered"
)

// Change describes how one module's resolution differs between two records.
type Change struct {
	Module string
	Kind   ChangeKind
	Before Entry
	After  Entry
	// DescriptorChanged is set when the module's descriptor was edited
	// between the two resolutions.
	DescriptorChanged bool
}

func (c Change) String() string {
	s := fmt.Sprintf("%s %s: %s -> %s", c.Kind, c.Module, outcome(c.Before), outcome(c.After))
	if c.Kind == Added {
		s = fmt.Sprintf("%s %s: %s", c.Kind, c.Module, outcome(c.After))
	}
	if c.DescriptorChanged {
		s += " (descriptor changed)"
	}
	return s
}

// Diff reports, in module order, every module of after whose outcome differs
// from before. Modules only in before are not reported, so a partial run
// can be diffed against a full record. A changed tried list alone is not a
// change.
func Diff(before, after *Record) []Change {
	if after == nil {
		return nil
	}
	var changes []Change
	for _, name := range after.Names() {
		cur := after.Modules[name]
		var prev Entry
		var ok bool
		if before != nil {
			prev, ok = before.Modules[name]
		}

		c := Change{Module: name, Before: prev, After: cur}
		switch {
		case !ok:
			c.Kind = Added
		case prev.Resolved() && !cur.Resolved():
			c.Kind = Broken
		case !prev.Resolved() && cur.Resolved():
			c.Kind = Recovered
		case prev.URL != cur.URL:
			c.Kind = Moved
		default:
			continue
		}
		c.DescriptorChanged = ok && prev.Fingerprint != cur.Fingerprint
		changes = append(changes, c)
	}
	return slices.Clip(changes)
}
