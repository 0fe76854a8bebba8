// Package invalidate implements the schedule invalidation registry: once a
// schedule has planned a traversal over a set of nodes, any later topology
// or affects-mask edit touching one of those nodes must be able to kill it
// cheaply. A process-wide nodeFilter — one atomic counter per node index,
// counting how many live schedules reference it — lets every edit skip the
// expensive per-schedule work entirely when the count is zero: a cheap
// check before the expensive one.
package invalidate

import (
	"sync"
	"sync/atomic"

	"github.com/vdfkit/vdf/diag"
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// ScheduleID identifies a registered schedule.
type ScheduleID uint64

type scheduleEntry struct {
	mu    sync.Mutex
	alive bool
	nodes map[uint32]struct{}
}

// Registry is a network.ScheduleInvalidator backed by per-schedule node
// bitsets (modeled here as small sets, since a schedule typically touches
// far fewer node indices than the network's full index space) and a
// process-wide nodeFilter prefilter.
type Registry struct {
	mu        sync.RWMutex
	schedules map[ScheduleID]*scheduleEntry
	reverse   map[uint32][]ScheduleID
	filter    []*atomic.Int32
	nextID    uint64
	provider  diag.Provider
}

// New returns an empty Registry. A nil provider disables diagnostics.
func New(provider diag.Provider) *Registry {
	if provider == nil {
		provider = diag.NopProvider{}
	}
	return &Registry{
		schedules: make(map[ScheduleID]*scheduleEntry),
		reverse:   make(map[uint32][]ScheduleID),
		provider:  provider,
	}
}

// Register records a new schedule depending on the given node indices and
// returns its ID. The schedule starts alive.
func (r *Registry) Register(nodeIndices []uint32) ScheduleID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := ScheduleID(r.nextID)

	entry := &scheduleEntry{alive: true, nodes: make(map[uint32]struct{}, len(nodeIndices))}
	maxIdx := -1
	for _, idx := range nodeIndices {
		entry.nodes[idx] = struct{}{}
		if int(idx) > maxIdx {
			maxIdx = int(idx)
		}
	}
	r.growFilterLocked(maxIdx + 1)

	for idx := range entry.nodes {
		r.filter[idx].Add(1)
		r.reverse[idx] = append(r.reverse[idx], id)
	}

	r.schedules[id] = entry
	return id
}

// Deregister removes a schedule explicitly (e.g. once its result has been
// consumed and it will never be invalidated-checked again), releasing its
// nodeFilter contribution.
func (r *Registry) Deregister(id ScheduleID) {
	r.killAndUnlink(id)
}

// IsAlive reports whether a schedule has not been invalidated.
func (r *Registry) IsAlive(id ScheduleID) bool {
	r.mu.RLock()
	entry, ok := r.schedules[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.alive
}

func (r *Registry) growFilterLocked(n int) {
	for len(r.filter) < n {
		r.filter = append(r.filter, &atomic.Int32{})
	}
}

// invalidateNodeIndex checks the nodeFilter first; only if the count for
// this index is positive does it pay for the registry lock and the
// per-schedule walk.
func (r *Registry) invalidateNodeIndex(idx uint32) {
	r.mu.RLock()
	if int(idx) >= len(r.filter) || r.filter[idx].Load() == 0 {
		r.mu.RUnlock()
		return
	}
	ids := append([]ScheduleID(nil), r.reverse[idx]...)
	r.mu.RUnlock()

	for _, id := range ids {
		r.killAndUnlink(id)
	}
}

func (r *Registry) killAndUnlink(id ScheduleID) {
	r.mu.RLock()
	entry, ok := r.schedules[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	if !entry.alive {
		entry.mu.Unlock()
		return
	}
	entry.alive = false
	nodes := entry.nodes
	entry.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for idx := range nodes {
		if int(idx) < len(r.filter) {
			r.filter[idx].Add(-1)
		}
		r.reverse[idx] = removeScheduleID(r.reverse[idx], id)
	}
}

func removeScheduleID(ids []ScheduleID, target ScheduleID) []ScheduleID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// UpdateForConnectionChange invalidates every schedule referencing either
// endpoint's node, whether the connection was added or removed — either
// edit can change what a schedule built from the old topology would
// compute.
func (r *Registry) UpdateForConnectionChange(c *network.Connection, _ bool) {
	r.invalidateNodeIndex(c.Source().Node().ID().Index())
	r.invalidateNodeIndex(c.Target().Node().ID().Index())
}

// UpdateForAffectsMaskChange invalidates every schedule referencing the
// output's node.
func (r *Registry) UpdateForAffectsMaskChange(o *network.Output, _, _ mask.Mask, _, _ bool) {
	r.invalidateNodeIndex(o.Node().ID().Index())
}

// InvalidateContainingNode invalidates every schedule referencing n,
// called before n is deleted from the network.
func (r *Registry) InvalidateContainingNode(n *network.Node) {
	r.invalidateNodeIndex(n.ID().Index())
}

// InvalidateAll kills every registered schedule, called from
// Network.Clear.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.schedules {
		entry.mu.Lock()
		entry.alive = false
		entry.mu.Unlock()
	}
	r.schedules = make(map[ScheduleID]*scheduleEntry)
	r.reverse = make(map[uint32][]ScheduleID)
	for _, f := range r.filter {
		f.Store(0)
	}
}
