package cdnmod

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Reserved namespace member names.
const (
	DefaultExport  = "default"
	ESModuleMarker = "__esModule"
)

// Namespace is the uniform shape every loaded asset is coerced into:
// a default export plus named members. A Namespace is immutable.
type Namespace struct {
	members map[string]any
}

// Wrap coerces raw exports into a Namespace.
//
// A *Namespace is returned unchanged, and a map carrying "__esModule": true
// is adopted as-is. Anything else has its own members copied, gets
// "default" set to itself unless it already has a "default" member, and
// then the default's own members are flattened in without overwriting.
//
// Own members are the entries of a string-keyed map or the exported fields
// of a struct, named by their json tag. Wrap is pure and idempotent.
func Wrap(raw any) *Namespace {
	if ns, ok := raw.(*Namespace); ok && ns != nil {
		return ns
	}

	if m, ok := raw.(map[string]any); ok && m[ESModuleMarker] == true {
		members := make(map[string]any, len(m))
		for k, v := range m {
			if k != ESModuleMarker {
				members[k] = v
			}
		}
		return &Namespace{members: members}
	}

	members := ownMembers(raw)
	if members == nil {
		members = make(map[string]any)
	}
	delete(members, ESModuleMarker)
	if _, ok := members[DefaultExport]; !ok {
		members[DefaultExport] = raw
	}

	for k, v := range ownMembers(members[DefaultExport]) {
		if k == DefaultExport || k == ESModuleMarker {
			continue
		}
		if _, exists := members[k]; exists {
			continue
		}
		members[k] = v
	}
	return &Namespace{members: members}
}

// Default returns the default export.
func (n *Namespace) Default() any {
	return n.members[DefaultExport]
}

// Get returns a named member.
func (n *Namespace) Get(name string) (any, bool) {
	v, ok := n.members[name]
	return v, ok
}

// Names returns the sorted member names, including "default".
func (n *Namespace) Names() []string {
	return slices.Sorted(maps.Keys(n.members))
}

// Members returns a copy of all members, including "default".
func (n *Namespace) Members() map[string]any {
	return maps.Clone(n.members)
}

// Len returns the number of members, including "default".
func (n *Namespace) Len() int {
	return len(n.members)
}

// IsNamespace marks the value as already wrapped.
func (n *Namespace) IsNamespace() bool {
	return true
}

// MarshalJSON encodes the namespace with its "__esModule" marker.
func (n *Namespace) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.members)+1)
	maps.Copy(out, n.members)
	out[ESModuleMarker] = true
	return json.Marshal(out)
}

// ownMembers returns the own members of v, or nil if v has none.
func ownMembers(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return maps.Clone(m)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	case reflect.Struct:
		return structMembers(rv)
	default:
		return nil
	}
}

func structMembers(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = rv.Field(i).Interface()
	}
	return out
}
