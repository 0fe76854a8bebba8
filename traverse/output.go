package traverse

import (
	"container/heap"

	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// OutputTraverser walks downstream from an input with an arriving mask to
// the outputs (and transitively, further-downstream inputs) it affects.
type OutputTraverser struct {
	indexer network.PoolChainIndexer
	cache   *traversalCache
}

// NewOutputTraverser returns an OutputTraverser using indexer to order
// deferred pool outputs, with traversal caching disabled.
func NewOutputTraverser(indexer network.PoolChainIndexer) *OutputTraverser {
	return &OutputTraverser{indexer: indexer}
}

// WithCache enables FIFO-evictable traversal caching with the given
// capacity (default capacity 10 if capacity <= 0). Returns the same
// traverser for chaining.
func (t *OutputTraverser) WithCache(capacity int) *OutputTraverser {
	t.cache = newTraversalCache(capacity)
	return t
}

type outputFrame struct {
	input *network.Input
	m     mask.Mask
}

// Traverse walks downstream from an arrival at in with mask m.
func (t *OutputTraverser) Traverse(in *network.Input, m mask.Mask) Result {
	if t.cache != nil {
		if cached, ok := t.cache.get(in, m); ok {
			return cached
		}
	}

	result := t.traverseUncached(in, m)

	if t.cache != nil {
		t.cache.put(in, m, result)
	}
	return result
}

func (t *OutputTraverser) traverseUncached(startInput *network.Input, startMask mask.Mask) Result {
	var result Result
	seenNodes := map[*network.Node]bool{}
	seenOutputs := map[*network.Output]bool{}
	seenInputs := map[*network.Input]bool{}

	var stack []outputFrame
	pq := &poolHeap{less: upstreamFirst}
	seq := 0

	stack = append(stack, outputFrame{input: startInput, m: startMask})

	markOutput := func(o *network.Output) {
		if !seenOutputs[o] {
			seenOutputs[o] = true
			result.Outputs = append(result.Outputs, o)
		}
	}
	markInput := func(in *network.Input) {
		if !seenInputs[in] {
			seenInputs[in] = true
			result.Inputs = append(result.Inputs, in)
		}
	}

	visitInput := func(in *network.Input, m mask.Mask) {
		markInput(in)
		node := in.Node()
		result.addNode(node, seenNodes)

		depMasks := node.OutputDependencyMask(in.Name(), m)
		for _, out := range node.Outputs() {
			affected, ok := depMasks[out.Name()]
			if !ok || affected.IsAllZeros() {
				continue
			}
			if affectsMask, has := out.AffectsMask(); has {
				affected = intersectTolerant(affected, affectsMask)
				if affected.IsAllZeros() {
					continue
				}
			}
			markOutput(out)

			for _, c := range out.Connections() {
				overlap := intersectTolerant(c.Mask(), affected)
				if overlap.IsAllZeros() {
					continue
				}
				result.Steps = append(result.Steps, Step{Connection: c, Mask: overlap})

				if out.IsPool() {
					rank := t.rankOf(out)
					heap.Push(pq, poolItem{output: out, input: c.Target(), m: overlap, rank: rank, seq: seq})
					seq++
					continue
				}
				stack = append(stack, outputFrame{input: c.Target(), m: overlap})
			}
		}
	}

	for {
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			visitInput(f.input, f.m)
		}
		if pq.Len() == 0 {
			break
		}
		item := heap.Pop(pq).(poolItem)
		visitInput(item.input, item.m)
	}

	return result
}

func (t *OutputTraverser) rankOf(o *network.Output) network.PoolChainIndex {
	if t.indexer == nil {
		return network.InvalidPoolChainIndex
	}
	rank, ok := t.indexer.IndexFor(o)
	if !ok {
		return network.InvalidPoolChainIndex
	}
	return rank
}

// Invalidate drops every cached entry. The traverser does not invalidate
// its cache on its own; whatever owns it calls Invalidate after a topology
// edit.
func (t *OutputTraverser) Invalidate() {
	if t.cache != nil {
		t.cache.clear()
	}
}

// traversalCache is a small FIFO-evictable cache from (input, mask) to a
// previously computed Result, keyed by mask hash to avoid deep equality on
// every lookup.
type traversalCache struct {
	capacity int
	order    []cacheKey
	entries  map[cacheKey]Result
}

type cacheKey struct {
	input *network.Input
	hash  uint64
}

func newTraversalCache(capacity int) *traversalCache {
	if capacity <= 0 {
		capacity = 10
	}
	return &traversalCache{capacity: capacity, entries: make(map[cacheKey]Result)}
}

func (c *traversalCache) get(in *network.Input, m mask.Mask) (Result, bool) {
	k := cacheKey{input: in, hash: m.Hash()}
	r, ok := c.entries[k]
	return r, ok
}

func (c *traversalCache) put(in *network.Input, m mask.Mask, r Result) {
	k := cacheKey{input: in, hash: m.Hash()}
	if _, exists := c.entries[k]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = r
}

func (c *traversalCache) clear() {
	c.order = nil
	c.entries = make(map[cacheKey]Result)
}
