// Package depcache implements the dependency cache: a memo
// from a normalized Request to the set of outputs and nodes it transitively
// depends on, plus a per-node adjacency view of that dependency graph, so
// the scheduler doesn't re-run a full upstream traversal on every request
// that was already seen (or whose topology hasn't changed since).
//
// An entry can be dropped outright (Invalidate) or repaired incrementally
// when only a handful of new connections were added since it was built
// (IncrementalUpdate), re-traversing just the new connections' subtrees
// rather than the whole request. The gathering step for those partial
// re-traversals fans out one goroutine per new connection via
// golang.org/x/sync/errgroup — the idiomatic Go substitute for a
// TBB-style parallel fan-out: goroutines joined with errgroup.Group.Wait
// and first-error propagation instead of a sync.WaitGroup plus manual
// error plumbing. No concurrency limit is set.
package depcache

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vdfkit/vdf/network"
	"github.com/vdfkit/vdf/traverse"
)

// Entry is one cached request's dependency record.
type Entry struct {
	OutputRefs []*network.Output
	NodeRefs   []*network.Node

	// OutputDeps maps a visited node to the upstream outputs its own
	// traversal steps named as direct dependencies.
	OutputDeps map[*network.Node][]*network.Output
	// NodeDeps maps a visited node to the upstream nodes it directly
	// depends on (the owners of OutputDeps' outputs).
	NodeDeps map[*network.Node][]*network.Node

	result traverse.Result
}

func newEntryFromResult(res traverse.Result) *Entry {
	e := &Entry{
		OutputRefs: res.Outputs,
		NodeRefs:   res.Nodes,
		OutputDeps: map[*network.Node][]*network.Output{},
		NodeDeps:   map[*network.Node][]*network.Node{},
		result:     res,
	}
	for _, step := range res.Steps {
		target := step.Connection.Target().Node()
		source := step.Connection.Source()
		e.OutputDeps[target] = appendUniqueOutput(e.OutputDeps[target], source)
		e.NodeDeps[target] = appendUniqueNode(e.NodeDeps[target], source.Node())
	}
	return e
}

func appendUniqueOutput(s []*network.Output, o *network.Output) []*network.Output {
	for _, x := range s {
		if x == o {
			return s
		}
	}
	return append(s, o)
}

func appendUniqueNode(s []*network.Node, n *network.Node) []*network.Node {
	for _, x := range s {
		if x == n {
			return s
		}
	}
	return append(s, n)
}

// Cache is a memo from a normalized Request to its Entry.
type Cache struct {
	mu        sync.RWMutex
	entries   map[uint64]cacheSlot
	traverser *traverse.InputTraverser
}

type cacheSlot struct {
	req   network.Request
	entry *Entry
}

// New returns an empty Cache using traverser to build fresh entries.
func New(traverser *traverse.InputTraverser) *Cache {
	return &Cache{entries: make(map[uint64]cacheSlot), traverser: traverser}
}

// requestKey returns a hash distinguishing requests by their (output,
// mask) content. Collisions fall back to an exact compare in Get/Compute.
func requestKey(req network.Request) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, item := range req.Items() {
		h ^= uint64(item.Output.ID())
		h *= 1099511628211
		h ^= item.Mask.Hash()
		h *= 1099511628211
	}
	return h
}

// Get returns the cached entry for req, if present and structurally equal
// to the stored request (guards against the rare hash collision between
// two different requests).
func (c *Cache) Get(req network.Request) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot, ok := c.entries[requestKey(req)]
	if !ok || !sameRequest(slot.req, req) {
		return nil, false
	}
	return slot.entry, true
}

// Compute returns the cached entry for req, building and storing a fresh
// one via a full traversal if absent.
func (c *Cache) Compute(req network.Request) *Entry {
	if e, ok := c.Get(req); ok {
		return e
	}

	var merged traverse.Result
	for _, item := range req.Items() {
		res := c.traverser.Traverse(item)
		merged = mergeResults(merged, res)
	}
	entry := newEntryFromResult(merged)

	c.mu.Lock()
	c.entries[requestKey(req)] = cacheSlot{req: req, entry: entry}
	c.mu.Unlock()
	return entry
}

// Invalidate drops the cached entry for req outright.
func (c *Cache) Invalidate(req network.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, requestKey(req))
}

// InvalidateAll drops every cached entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]cacheSlot)
}

// IncrementalUpdate repairs the cached entry for req by re-traversing only
// the subtrees reachable from newConnections, fanning the per-connection
// partial traversals out across goroutines and merging their results into
// the existing entry. If no entry exists yet for req, this is equivalent to
// Compute.
func (c *Cache) IncrementalUpdate(ctx context.Context, req network.Request, newConnections []*network.Connection) (*Entry, error) {
	existing, ok := c.Get(req)
	if !ok {
		return c.Compute(req), nil
	}
	if len(newConnections) == 0 {
		return existing, nil
	}

	partials := make([]traverse.Result, len(newConnections))
	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range newConnections {
		i, conn := i, conn
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			partials[i] = c.traverser.Traverse(network.MaskedOutput{
				Output: conn.Source(),
				Mask:   conn.Mask(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return existing, err
	}

	merged := existing.result
	for _, p := range partials {
		merged = mergeResults(merged, p)
	}
	entry := newEntryFromResult(merged)

	c.mu.Lock()
	c.entries[requestKey(req)] = cacheSlot{req: req, entry: entry}
	c.mu.Unlock()
	return entry, nil
}

func mergeResults(a, b traverse.Result) traverse.Result {
	out := a
	seenNodes := map[*network.Node]bool{}
	seenOutputs := map[*network.Output]bool{}
	seenInputs := map[*network.Input]bool{}
	for _, n := range a.Nodes {
		seenNodes[n] = true
	}
	for _, o := range a.Outputs {
		seenOutputs[o] = true
	}
	for _, in := range a.Inputs {
		seenInputs[in] = true
	}

	out.Steps = append(append([]traverse.Step(nil), a.Steps...), b.Steps...)
	for _, n := range b.Nodes {
		if !seenNodes[n] {
			seenNodes[n] = true
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, o := range b.Outputs {
		if !seenOutputs[o] {
			seenOutputs[o] = true
			out.Outputs = append(out.Outputs, o)
		}
	}
	for _, in := range b.Inputs {
		if !seenInputs[in] {
			seenInputs[in] = true
			out.Inputs = append(out.Inputs, in)
		}
	}
	return out
}

func sameRequest(a, b network.Request) bool {
	if a.Len() != b.Len() {
		return false
	}
	ai, bi := a.Items(), b.Items()
	for i := range ai {
		if ai[i].Output != bi[i].Output || !ai[i].Mask.Equal(bi[i].Mask) {
			return false
		}
	}
	return true
}
