package cdnmod

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// RuleMatching selects how a module name is matched against dynamic rules.
type RuleMatching int

const (
	// FirstMatch uses the first rule, in declaration order, whose prefix matches.
	FirstMatch RuleMatching = iota

	// LongestPrefixMatch uses the matching rule with the longest prefix.
	// Ties go to the earlier rule.
	LongestPrefixMatch
)

func (m RuleMatching) String() string {
	switch m {
	case FirstMatch:
		return "first"
	case LongestPrefixMatch:
		return "longest"
	default:
		return fmt.Sprintf("RuleMatching(%d)", int(m))
	}
}

// MatchRule returns the rule for name under the given matching mode.
func MatchRule(name string, rules []DynamicRule, matching RuleMatching) (DynamicRule, bool) {
	best := -1
	for i, rule := range rules {
		if !rule.Matches(name) {
			continue
		}
		if matching == FirstMatch {
			return rule, true
		}
		if best < 0 || len(rule.Prefix) > len(rules[best].Prefix) {
			best = i
		}
	}
	if best < 0 {
		return DynamicRule{}, false
	}
	return rules[best], true
}

// DynamicModules loads convention-based modules: a name is matched against
// prefix rules, turned into a descriptor, resolved, loaded and registered.
//
// Concurrent loads of the same name that map to the same descriptor share
// one resolution and load. Each caller's registry still receives the result.
type DynamicModules struct {
	resolver ModuleResolver
	loader   *AssetLoader
	matching RuleMatching
	group    singleflight.Group
}

// NewDynamicModules creates a dynamic module service.
func NewDynamicModules(resolver ModuleResolver, loader *AssetLoader, matching RuleMatching) *DynamicModules {
	return &DynamicModules{
		resolver: resolver,
		loader:   loader,
		matching: matching,
	}
}

// Load returns the namespace for name, loading it on first use.
//
// A registry hit is returned without network access. Otherwise the name is
// matched against rules; no match is a *ConfigurationError wrapping
// ErrNoDynamicRule. The loaded namespace is stored in registry, which may
// be nil to skip caching.
func (d *DynamicModules) Load(ctx context.Context, name string, rules []DynamicRule, registry *ModuleRegistry) (*Namespace, error) {
	if registry != nil {
		if ns, ok := registry.Get(name); ok {
			return ns, nil
		}
	}

	rule, ok := MatchRule(name, rules, d.matching)
	if !ok {
		return nil, &ConfigurationError{Module: name, Reason: "no dynamic rule for module", Err: ErrNoDynamicRule}
	}

	desc := rule.Descriptor(name)
	v, err, _ := d.group.Do(flightKey(desc), func() (any, error) {
		res, err := d.resolver.Resolve(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("load dynamic module %s: %w", name, err)
		}
		ns, err := d.loader.LoadNamespace(ctx, desc, res.URL)
		if err != nil {
			return nil, fmt.Errorf("load dynamic module %s: %w", name, err)
		}
		return ns, nil
	})
	if err != nil {
		return nil, err
	}
	ns := v.(*Namespace)
	if registry != nil {
		ns, _ = registry.Store(name, ns)
	}
	return ns, nil
}

// flightKey identifies a load by its full descriptor, so callers with
// different rules for the same name do not share a result.
func flightKey(desc ModuleDescriptor) string {
	data, err := json.Marshal(desc)
	if err != nil {
		return desc.Name
	}
	return string(data)
}
