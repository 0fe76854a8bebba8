package vid

import (
	"sync"
	"testing"
)

func TestAcquireAssignsSequentialIndices(t *testing.T) {
	g := NewGenerator()
	a := g.Acquire()
	b := g.Acquire()

	if a.Index() != 0 || b.Index() != 1 {
		t.Fatalf("expected sequential indices 0,1; got %d,%d", a.Index(), b.Index())
	}
	if a.Version() != 1 || b.Version() != 1 {
		t.Fatalf("expected version 1 for fresh IDs; got %d,%d", a.Version(), b.Version())
	}
}

func TestReleaseThenAcquireBumpsVersion(t *testing.T) {
	g := NewGenerator()
	a := g.Acquire()
	g.Release(a)

	b := g.Acquire()
	if b.Index() != a.Index() {
		t.Fatalf("expected reused index %d, got %d", a.Index(), b.Index())
	}
	if b.Version() <= a.Version() {
		t.Fatalf("expected strictly greater version on reuse: old=%d new=%d", a.Version(), b.Version())
	}
	if g.IsCurrent(a) {
		t.Fatalf("stale ID must not be current after reuse")
	}
	if !g.IsCurrent(b) {
		t.Fatalf("freshly reacquired ID must be current")
	}
}

func TestResetFloorPreventsAliasing(t *testing.T) {
	g := NewGenerator()
	a := g.Acquire() // index 0, version 1
	_ = g.Acquire()  // index 1, version 1

	g.Reset()

	c := g.Acquire() // should land at index 0 again, but with version > 1
	if c.Index() != 0 {
		t.Fatalf("expected reset to restart index allocation at 0, got %d", c.Index())
	}
	if c.Version() <= a.Version() {
		t.Fatalf("post-reset version must exceed any prior version at this index: old=%d new=%d", a.Version(), c.Version())
	}
}

func TestConcurrentAcquireNoDuplicateIndices(t *testing.T) {
	g := NewGenerator()
	const n = 200
	ids := make([]ID, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = g.Acquire()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool, n)
	for _, id := range ids {
		if seen[id.Index()] {
			t.Fatalf("duplicate index %d assigned concurrently", id.Index())
		}
		seen[id.Index()] = true
	}
}
