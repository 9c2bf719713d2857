package cdnmod

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
)

func TestWrap_PlainObject(t *testing.T) {
	raw := map[string]any{"render": "fn", "version": "1.0"}
	ns := Wrap(raw)

	if !reflect.DeepEqual(ns.Default(), raw) {
		t.Errorf("Default() = %#v, want raw export", ns.Default())
	}
	if v, ok := ns.Get("render"); !ok || v != "fn" {
		t.Errorf("Get(render) = %v, %v", v, ok)
	}
	if got := ns.Names(); !slices.Equal(got, []string{"default", "render", "version"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestWrap_ExplicitDefaultFlattened(t *testing.T) {
	raw := map[string]any{
		"named": "own",
		"default": map[string]any{
			"named":      "from default",
			"extra":      42,
			"default":    "nested",
			"__esModule": true,
		},
	}
	ns := Wrap(raw)

	if v, _ := ns.Get("named"); v != "own" {
		t.Errorf("own member must win over default's, got %v", v)
	}
	if v, _ := ns.Get("extra"); v != 42 {
		t.Errorf("extra = %v, want flattened from default", v)
	}
	def, ok := ns.Default().(map[string]any)
	if !ok || def["extra"] != 42 {
		t.Errorf("Default() = %#v", ns.Default())
	}
	if _, ok := ns.Get("__esModule"); ok {
		t.Error("__esModule must not be a member")
	}
}

func TestWrap_AlreadyNamespace(t *testing.T) {
	esm := map[string]any{"__esModule": true, "default": "d", "x": 1}
	ns := Wrap(esm)
	if ns.Default() != "d" {
		t.Errorf("Default() = %v", ns.Default())
	}
	if got := ns.Names(); !slices.Equal(got, []string{"default", "x"}) {
		t.Errorf("adopted namespace must not gain members, Names() = %v", got)
	}

	if again := Wrap(ns); again != ns {
		t.Error("Wrap(*Namespace) must return the same namespace")
	}
}

func TestWrap_Primitives(t *testing.T) {
	tests := []struct {
		name  string
		raw   any
		names []string
	}{
		{"string", "hello", []string{"default"}},
		{"number", 3.5, []string{"default"}},
		{"nil", nil, []string{"default"}},
		{"slice", []any{1, 2}, []string{"default"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := Wrap(tt.raw)
			if !reflect.DeepEqual(ns.Default(), tt.raw) {
				t.Errorf("Default() = %#v, want %#v", ns.Default(), tt.raw)
			}
			if got := ns.Names(); !slices.Equal(got, tt.names) {
				t.Errorf("Names() = %v, want %v", got, tt.names)
			}
		})
	}
}

type widget struct {
	Title   string `json:"title"`
	Count   int
	Ignored string `json:"-"`
	hidden  string
}

func TestWrap_Struct(t *testing.T) {
	w := &widget{Title: "t", Count: 2, Ignored: "x", hidden: "h"}
	ns := Wrap(w)

	if ns.Default() != w {
		t.Errorf("Default() = %#v, want the struct pointer", ns.Default())
	}
	if v, _ := ns.Get("title"); v != "t" {
		t.Errorf("title = %v", v)
	}
	if v, _ := ns.Get("Count"); v != 2 {
		t.Errorf("Count = %v", v)
	}
	for _, name := range []string{"Ignored", "hidden", "-"} {
		if _, ok := ns.Get(name); ok {
			t.Errorf("member %q should not be exposed", name)
		}
	}
}

func TestWrap_TypedMap(t *testing.T) {
	ns := Wrap(map[string]string{"a": "1"})
	if v, _ := ns.Get("a"); v != "1" {
		t.Errorf("a = %v", v)
	}
	if _, ok := Wrap(map[int]string{1: "x"}).Get("1"); ok {
		t.Error("non-string keyed maps have no members")
	}
}

func TestWrap_Idempotent(t *testing.T) {
	inputs := []any{
		map[string]any{"a": 1},
		map[string]any{"default": map[string]any{"b": 2}},
		"s",
		nil,
		&widget{Title: "t"},
	}
	for _, in := range inputs {
		once := Wrap(in)
		twice := Wrap(once)
		if twice != once {
			t.Errorf("Wrap(Wrap(%#v)) != Wrap(%#v)", in, in)
		}

		// Round-tripping through JSON yields an equal namespace.
		data, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded["__esModule"] != true {
			t.Errorf("marshaled namespace lacks __esModule: %s", data)
		}
		if got := Wrap(decoded).Names(); !slices.Equal(got, once.Names()) {
			t.Errorf("names after JSON round trip = %v, want %v", got, once.Names())
		}
	}
}

func TestNamespace_MembersIsCopy(t *testing.T) {
	ns := Wrap(map[string]any{"a": 1})
	m := ns.Members()
	m["a"] = 2
	m["b"] = 3
	if v, _ := ns.Get("a"); v != 1 {
		t.Error("Members() must return a copy")
	}
	if ns.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ns.Len())
	}
	if !ns.IsNamespace() {
		t.Error("IsNamespace() = false")
	}
}
