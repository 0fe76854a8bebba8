// Package vid implements the generational 64-bit identity scheme used for
// node and output identity: an ID packs a version into the upper 32 bits
// and an index into the lower 32 bits, so that reusing an index always
// yields a strictly greater version and a stale ID is unambiguously
// detectable.
package vid

import "sync"

// ID is a stable (version, index) pair packed into a single uint64.
type ID uint64

// Invalid is the zero ID. Index 0 is still a legitimate array slot, so
// Invalid is only meaningful as a documented "not yet assigned" sentinel —
// callers that store IDs in a struct field should track presence
// separately (e.g. with a pointer or explicit bool) rather than relying on
// Invalid alone, except where noted.
const Invalid ID = 0

func pack(version, index uint32) ID {
	return ID(uint64(version)<<32 | uint64(index))
}

// Version returns the generation counter of id.
func (id ID) Version() uint32 { return uint32(uint64(id) >> 32) }

// Index returns the array-slot index of id.
func (id ID) Index() uint32 { return uint32(uint64(id)) }

// Generator hands out IDs at indices into a conceptually unbounded array,
// reusing freed indices with a strictly incremented version so a retained
// stale ID can never alias a freshly minted one.
//
// Safe for concurrent Acquire/Release from multiple goroutines, using a
// single mutex the same coarse-grained way an in-memory state provider
// would protect its maps.
type Generator struct {
	mu       sync.Mutex
	versions []uint32 // versions[index] is the version of the ID last assigned at that index, or 0 before first use
	free     []uint32 // free list of indices whose prior occupant has been released
	floor    uint32   // next-generation floor: no freshly minted version at any index may be below this
}

// NewGenerator returns an empty Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Acquire returns a fresh ID: a free index if one is available (with its
// version bumped), else a newly appended index at version max(1, floor).
func (g *Generator) Acquire() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n := len(g.free); n > 0 {
		idx := g.free[n-1]
		g.free = g.free[:n-1]
		v := g.versions[idx] + 1
		if v < g.floor {
			v = g.floor
		}
		g.versions[idx] = v
		return pack(v, idx)
	}

	idx := uint32(len(g.versions))
	v := uint32(1)
	if g.floor > v {
		v = g.floor
	}
	g.versions = append(g.versions, v)
	return pack(v, idx)
}

// Release returns id's index to the free list. The caller must not Acquire
// on behalf of a still-live ID at that index; Release is only safe once
// the index's occupant has been fully removed.
func (g *Generator) Release(id ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.free = append(g.free, id.Index())
}

// IsCurrent reports whether id's version matches the Generator's live
// record for its index — i.e. whether id is still valid and not a stale
// handle to a tombstoned-and-reused slot.
func (g *Generator) IsCurrent(id ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := id.Index()
	if int(idx) >= len(g.versions) {
		return false
	}
	return g.versions[idx] == id.Version()
}

// Len returns the number of indices ever assigned (including freed ones
// still counted in the backing array's capacity).
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.versions)
}

// Reset clears every index and sets the next-generation floor to
// max(priorMaxVersion+1, current floor), so that IDs minted after a Clear
// never alias any ID a caller may still be holding.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	var maxVersion uint32
	for _, v := range g.versions {
		if v > maxVersion {
			maxVersion = v
		}
	}
	if maxVersion+1 > g.floor {
		g.floor = maxVersion + 1
	}
	g.versions = nil
	g.free = nil
}
