// Package poolchain implements the pool-chain indexer: it
// assigns pool outputs a rank consistent with a topological order of the
// network, so that when several pool outputs are deferred into a priority
// queue during traversal, popping by rank always yields a downstream- (or
// upstream-, depending on traversal direction) consistent order.
//
// The sort is maintained incrementally using the Pearce-Kelly algorithm:
// inserting an edge that already respects the current order is free,
// removing an edge never invalidates an existing order (a DAG with fewer
// edges is still a DAG, in the same order), and only an order-violating
// insertion pays for a localized re-sort of the affected region — a rank
// computed once and kept rather than redone per query.
package poolchain

import (
	"sort"
	"sync"

	"github.com/vdfkit/vdf/network"
)

// Indexer is a network.PoolChainIndexer backed by an incrementally
// maintained topological order over every node in the network (not just
// pool-output owners — edges between non-pool nodes still constrain the
// relative order of pool nodes reachable through them).
type Indexer struct {
	mu    sync.Mutex
	order []*network.Node
	pos   map[*network.Node]int
}

// New returns an empty Indexer.
func New() *Indexer {
	return &Indexer{pos: make(map[*network.Node]int)}
}

// IndexFor returns the pool-chain rank for o, present only when o is a
// pool output and its node has been indexed.
func (ix *Indexer) IndexFor(o *network.Output) (network.PoolChainIndex, bool) {
	if !o.IsPool() {
		return network.InvalidPoolChainIndex, false
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	rank, ok := ix.pos[o.Node()]
	if !ok {
		return network.InvalidPoolChainIndex, false
	}

	outIdx := -1
	for i, out := range o.Node().Outputs() {
		if out == o {
			outIdx = i
			break
		}
	}
	if outIdx < 0 {
		return network.InvalidPoolChainIndex, false
	}

	return pack(rank, outIdx), true
}

func pack(rank, outputIndex int) network.PoolChainIndex {
	return network.PoolChainIndex((int64(rank)+1)<<32 | int64(uint32(outputIndex)))
}

// OnAddNode appends the new node to the end of the maintained order: a
// freshly added node has no edges yet, so any position is topologically
// valid, and placing it last avoids disturbing any existing rank.
func (ix *Indexer) OnAddNode(n *network.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.pos[n]; ok {
		return
	}
	ix.pos[n] = len(ix.order)
	ix.order = append(ix.order, n)
}

// OnDeleteNode removes a node from the order, compacting positions of
// every node after it.
func (ix *Indexer) OnDeleteNode(n *network.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	idx, ok := ix.pos[n]
	if !ok {
		return
	}
	ix.order = append(ix.order[:idx], ix.order[idx+1:]...)
	delete(ix.pos, n)
	for i := idx; i < len(ix.order); i++ {
		ix.pos[ix.order[i]] = i
	}
}

// OnConnect incorporates a new edge source.Node() -> target.Node() into the
// maintained order. If the edge already respects the current order
// (pos[source] < pos[target]), nothing changes. Otherwise the affected
// region between the two positions is re-sorted in place following the
// Pearce-Kelly incremental topological sort algorithm. An edge that closes
// a cycle (only possible into a speculation node) leaves the
// order untouched — there is no valid topological position for it, and
// pool-chain ranking is best-effort across a cycle's participants.
func (ix *Indexer) OnConnect(c *network.Connection) {
	src := c.Source().Node()
	dst := c.Target().Node()
	if src == dst {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	lb, ok1 := ix.pos[dst]
	ub, ok2 := ix.pos[src]
	if !ok1 || !ok2 {
		return
	}
	if lb > ub {
		return // already consistent
	}

	forward := ix.reachableForward(dst, ub)
	if forward[src] {
		return // cycle: leave order as-is
	}
	backward := ix.reachableBackward(src, lb)

	ix.reorder(lb, ub, backward, forward)
}

// OnDisconnect is a no-op: removing an edge can never turn a valid
// topological order into an invalid one.
func (ix *Indexer) OnDisconnect(*network.Connection) {}

// Reset clears all maintained order state, called from Network.Clear.
func (ix *Indexer) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.order = nil
	ix.pos = make(map[*network.Node]int)
}

// reachableForward returns every node reachable from start (inclusive) by
// following outgoing connections, restricted to nodes whose current
// position is <= upperBound (the region Pearce-Kelly calls "F").
func (ix *Indexer) reachableForward(start *network.Node, upperBound int) map[*network.Node]bool {
	visited := map[*network.Node]bool{}
	stack := []*network.Node{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, out := range cur.Outputs() {
			for _, c := range out.Connections() {
				next := c.Target().Node()
				if p, ok := ix.pos[next]; ok && p <= upperBound && !visited[next] {
					stack = append(stack, next)
				}
			}
		}
	}
	return visited
}

// reachableBackward returns every node that can reach start (inclusive) by
// following incoming connections backward, restricted to nodes whose
// current position is >= lowerBound (Pearce-Kelly's "B").
func (ix *Indexer) reachableBackward(start *network.Node, lowerBound int) map[*network.Node]bool {
	visited := map[*network.Node]bool{}
	stack := []*network.Node{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, in := range cur.Inputs() {
			for _, c := range in.Connections() {
				prev := c.Source().Node()
				if p, ok := ix.pos[prev]; ok && p >= lowerBound && !visited[prev] {
					stack = append(stack, prev)
				}
			}
		}
	}
	return visited
}

// reorder rewrites positions in [lb, ub] so that every node in backward
// sorts before every node in forward, reusing the positions those nodes
// already occupied within [lb, ub] — restoring topological consistency for
// the edge that triggered the violation, while leaving every node outside
// backward/forward exactly where it was.
func (ix *Indexer) reorder(lb, ub int, backward, forward map[*network.Node]bool) {
	var bNodes, fNodes []*network.Node
	var positions []int

	for i := lb; i <= ub; i++ {
		n := ix.order[i]
		switch {
		case backward[n]:
			bNodes = append(bNodes, n)
			positions = append(positions, i)
		case forward[n]:
			fNodes = append(fNodes, n)
			positions = append(positions, i)
		}
	}

	sort.Slice(bNodes, func(i, j int) bool { return ix.pos[bNodes[i]] < ix.pos[bNodes[j]] })
	sort.Slice(fNodes, func(i, j int) bool { return ix.pos[fNodes[i]] < ix.pos[fNodes[j]] })

	merged := make([]*network.Node, 0, len(positions))
	merged = append(merged, bNodes...)
	merged = append(merged, fNodes...)

	sort.Ints(positions)
	for i, p := range positions {
		ix.order[p] = merged[i]
		ix.pos[merged[i]] = p
	}
}
