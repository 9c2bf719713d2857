package cdnmod

import (
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestModuleRegistry_FirstWriterWins(t *testing.T) {
	r := NewModuleRegistry()
	first := Wrap("first")
	second := Wrap("second")

	got, stored := r.Store("lib", first)
	if !stored || got != first {
		t.Fatalf("Store() = %v, %v, want first, true", got, stored)
	}
	got, stored = r.Store("lib", second)
	if stored || got != first {
		t.Errorf("Store() over existing = %v, %v, want first, false", got, stored)
	}

	ns, ok := r.Get("lib")
	if !ok || ns != first {
		t.Errorf("Get() = %v, %v", ns, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) = true")
	}
}

func TestModuleRegistry_NamesAndSnapshot(t *testing.T) {
	r := NewModuleRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Store(name, Wrap(name))
	}

	if got := r.Names(); !slices.Equal(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("Names() = %v", got)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d", r.Len())
	}

	snap := r.Snapshot()
	delete(snap, "alpha")
	if _, ok := r.Get("alpha"); !ok {
		t.Error("Snapshot() must return a copy")
	}
}

func TestModuleRegistry_Concurrent(t *testing.T) {
	r := NewModuleRegistry()

	const workers = 16
	var wg sync.WaitGroup
	winners := make([]*Namespace, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			winners[i], _ = r.Store("shared", Wrap(fmt.Sprint(i)))
			r.Store(fmt.Sprintf("own-%d", i), Wrap(i))
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if winners[i] != winners[0] {
			t.Fatalf("worker %d saw a different shared entry", i)
		}
	}
	if r.Len() != workers+1 {
		t.Errorf("Len() = %d, want %d", r.Len(), workers+1)
	}
}
