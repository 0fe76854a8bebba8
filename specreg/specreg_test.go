package specreg

import (
	"sync"
	"testing"
)

func sampleSpecs() ([]InputSpec, []OutputSpec) {
	return []InputSpec{{Name: "axis"}}, []OutputSpec{{Name: "out"}}
}

func TestAcquireDedupesIdenticalSpecs(t *testing.T) {
	r := New(nil)
	in, out := sampleSpecs()

	a := r.Acquire(in, out)
	b := r.Acquire(in, out)

	if a != b {
		t.Fatalf("structurally identical specs should share one SharedSpecs object")
	}
	if r.RefCount(a) != 2 {
		t.Fatalf("expected refcount 2, got %d", r.RefCount(a))
	}
	if r.Len() != 1 {
		t.Fatalf("expected exactly one interned entry, got %d", r.Len())
	}
}

func TestAcquireDistinguishesDifferentSpecs(t *testing.T) {
	r := New(nil)
	in1, out1 := sampleSpecs()
	in2 := []InputSpec{{Name: "other"}}

	a := r.Acquire(in1, out1)
	b := r.Acquire(in2, out1)
	if a == b {
		t.Fatalf("distinct specs must not share a SharedSpecs object")
	}
}

func TestReleaseErasesAtZero(t *testing.T) {
	r := New(nil)
	in, out := sampleSpecs()

	a := r.Acquire(in, out)
	r.Release(a)

	if r.Len() != 0 {
		t.Fatalf("entry should be erased once refcount reaches zero, got Len=%d", r.Len())
	}

	// Acquiring again after full release should create a fresh entry.
	b := r.Acquire(in, out)
	if r.Len() != 1 {
		t.Fatalf("expected a fresh entry after full release, got Len=%d", r.Len())
	}
	_ = b
}

func TestReleaseResurrectionRace(t *testing.T) {
	r := New(nil)
	in, out := sampleSpecs()

	a := r.Acquire(in, out) // refcount 1

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Release(a)
	}()
	go func() {
		defer wg.Done()
		r.Acquire(in, out) // may race with the release above
	}()
	wg.Wait()

	// Whatever interleaving occurred, the registry must end up consistent:
	// either the entry is gone (both sides settled on zero) or it is
	// present with a positive refcount — never a present entry at zero.
	if r.Len() == 1 && r.RefCount(a) <= 0 {
		t.Fatalf("resurrected entry must have a positive refcount, got %d", r.RefCount(a))
	}
}

func TestInputOutputByName(t *testing.T) {
	in, out := sampleSpecs()
	r := New(nil)
	specs := r.Acquire(in, out)

	if _, ok := specs.InputByName("axis"); !ok {
		t.Fatalf("expected to find input %q", "axis")
	}
	if _, ok := specs.InputByName("missing"); ok {
		t.Fatalf("did not expect to find input %q", "missing")
	}
	if _, ok := specs.OutputByName("out"); !ok {
		t.Fatalf("expected to find output %q", "out")
	}
}
