package traverse

import (
	"container/heap"

	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// InputTraverser walks upstream from a requested output to the inputs (and
// transitively, the further-upstream outputs feeding those inputs) it
// depends on, pruning any branch whose affects mask doesn't overlap the
// mask carried down that branch.
type InputTraverser struct {
	indexer network.PoolChainIndexer
}

// NewInputTraverser returns an InputTraverser using indexer to order
// deferred pool outputs. A nil indexer falls back to arrival order (every
// pool output reports rank 0, so ties break by insertion sequence alone).
func NewInputTraverser(indexer network.PoolChainIndexer) *InputTraverser {
	return &InputTraverser{indexer: indexer}
}

type inputFrame struct {
	output *network.Output
	m      mask.Mask
}

// Traverse walks upstream from requested, returning every connection
// visited (with the mask relevant to it) and the deduplicated set of
// nodes/outputs/inputs touched.
func (t *InputTraverser) Traverse(requested network.MaskedOutput) Result {
	var result Result
	seenNodes := map[*network.Node]bool{}
	seenOutputs := map[*network.Output]bool{}
	seenInputs := map[*network.Input]bool{}

	var stack []inputFrame
	pq := &poolHeap{less: downstreamFirst}
	seq := 0

	stack = append(stack, inputFrame{output: requested.Output, m: requested.Mask})

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

	visitOutput := func(o *network.Output, m mask.Mask) {
		markOutput(o)
		node := o.Node()
		result.addNode(node, seenNodes)

		depMasks := node.InputDependencyMask(o.Name(), m)
		for _, in := range node.Inputs() {
			needed, ok := depMasks[in.Name()]
			if !ok || needed.IsAllZeros() {
				continue
			}
			markInput(in)

			for _, c := range in.Connections() {
				overlap := connectionOverlap(c, needed)
				if overlap.IsAllZeros() {
					continue
				}
				result.Steps = append(result.Steps, Step{Connection: c, Mask: overlap})

				src := c.Source()
				if src.IsPool() {
					rank := t.rankOf(src)
					heap.Push(pq, poolItem{output: src, input: in, m: overlap, rank: rank, seq: seq})
					seq++
					continue
				}
				stack = append(stack, inputFrame{output: src, m: overlap})
			}
		}
	}

	for {
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			visitOutput(f.output, f.m)
		}
		if pq.Len() == 0 {
			break
		}
		item := heap.Pop(pq).(poolItem)
		visitOutput(item.output, item.m)
	}

	return result
}

func (t *InputTraverser) rankOf(o *network.Output) network.PoolChainIndex {
	if t.indexer == nil {
		return network.InvalidPoolChainIndex
	}
	rank, ok := t.indexer.IndexFor(o)
	if !ok {
		return network.InvalidPoolChainIndex
	}
	return rank
}

// connectionOverlap intersects the mask needed at a connection's target
// with both the connection's own selection mask and the source output's
// affects mask (an absent affects mask is always-affective, spec
// GLOSSARY).
func connectionOverlap(c *network.Connection, needed mask.Mask) mask.Mask {
	overlap := intersectTolerant(c.Mask(), needed)
	if affects, ok := c.Source().AffectsMask(); ok {
		overlap = intersectTolerant(overlap, affects)
	}
	return overlap
}

// intersectTolerant intersects two masks, treating either's empty sentinel
// as "no constraint" rather than panicking on a size mismatch — different
// subsystems along a connection may not share the exact same mask size
// convention, and the sentinel exists precisely to make that safe (spec
// §3: "size not inferrable").
func intersectTolerant(a, b mask.Mask) mask.Mask {
	if a.IsEmptySentinel() {
		return b
	}
	if b.IsEmptySentinel() {
		return a
	}
	if a.Size() != b.Size() {
		return a
	}
	return a.Intersect(b)
}
