// Package traverse implements the sparse, affects-aware traversal engine:
// given a requested masked output, find the upstream inputs it transitively
// depends on (InputTraverser), or given an input with an arriving mask,
// find the downstream outputs it transitively affects (OutputTraverser).
// Both traversers prune branches whose affects mask doesn't overlap what's
// requested/arriving, and both defer pool outputs into a priority queue
// ordered by pool-chain rank so a pool's chain of read-write accumulation
// steps is visited in a consistent order relative to the rest of the graph.
//
// Traversal walks network.Node/Output/Input/Connection directly rather
// than copying the topology into its own graph representation — operate on
// the real store, don't build a shadow copy.
package traverse

import (
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// Step records one (connection, mask-at-that-connection) visited during a
// traversal, in visitation order. Traversal results are reported as an
// ordered list of Steps rather than a bare set, since callers (the
// scheduler, dependency cache) care about the order a pool chain's steps
// were discovered in.
type Step struct {
	Connection *network.Connection
	Mask       mask.Mask
}

// Result is the ordered outcome of a single traversal: every connection
// visited along with the mask relevant to it at that point, plus the set
// of nodes and outputs/inputs touched (deduplicated, insertion order).
type Result struct {
	Steps   []Step
	Nodes   []*network.Node
	Outputs []*network.Output
	Inputs  []*network.Input
}

func (r *Result) addNode(n *network.Node, seen map[*network.Node]bool) {
	if seen[n] {
		return
	}
	seen[n] = true
	r.Nodes = append(r.Nodes, n)
}

// poolItem is one entry in a traverser's deferred pool-output priority
// queue: the output awaiting processing, the mask of the connection that
// deferred it, and its pool-chain rank.
type poolItem struct {
	output *network.Output
	input  *network.Input
	m      mask.Mask
	rank   network.PoolChainIndex
	seq    int // insertion order, used as a tiebreaker for a stable heap
}

// poolHeap is a container/heap.Interface over poolItem, parameterized by a
// less function so the same type serves both traversal directions'
// opposite pop orders.
type poolHeap struct {
	items []poolItem
	less  func(a, b poolItem) bool
}

func (h *poolHeap) Len() int            { return len(h.items) }
func (h *poolHeap) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h *poolHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *poolHeap) Push(x interface{})  { h.items = append(h.items, x.(poolItem)) }
func (h *poolHeap) Pop() interface{} {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// downstreamFirst orders a max-heap by rank (ties broken by insertion
// order): the InputTraverser pops further-downstream pool outputs first,
// since an upstream walk wants to resolve the output nearest the original
// request before wandering further back up a pool's accumulation chain.
func downstreamFirst(a, b poolItem) bool {
	if a.rank != b.rank {
		return a.rank > b.rank
	}
	return a.seq < b.seq
}

// upstreamFirst orders a min-heap by rank: the OutputTraverser pops
// further-upstream pool outputs first, matching forward accumulation
// order (earlier pool-chain steps must be folded in before later ones).
func upstreamFirst(a, b poolItem) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.seq < b.seq
}
