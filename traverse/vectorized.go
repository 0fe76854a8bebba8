package traverse

import (
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// VectorizedInputTraverser traverses many requested masked outputs and
// merges the results: each batch entry is walked separately by an inner
// InputTraverser, and steps on the same connection are combined into one.
// The walk itself is repeated per entry, not shared. Each resulting
// connection carries a RequestBits mask: bit i set means the connection is
// relevant to the i-th entry of the batch.
type VectorizedInputTraverser struct {
	inner *InputTraverser
}

// NewVectorizedInputTraverser returns a VectorizedInputTraverser sharing
// indexer with a plain InputTraverser.
func NewVectorizedInputTraverser(indexer network.PoolChainIndexer) *VectorizedInputTraverser {
	return &VectorizedInputTraverser{inner: NewInputTraverser(indexer)}
}

// VectorStep is a Step annotated with which request entries (by index into
// the batch passed to TraverseBatch) it is relevant to.
type VectorStep struct {
	Step
	RequestBits mask.Mask // size == len(batch); bit i set iff relevant to batch[i]
}

// VectorResult is the batched counterpart of Result.
type VectorResult struct {
	Steps   []VectorStep
	Nodes   []*network.Node
	Outputs []*network.Output
	Inputs  []*network.Input
}

// TraverseBatch traverses every entry of batch one at a time with the inner
// traverser, then merges connections shared across requests into a single
// VectorStep whose RequestBits records every batch entry it serves and
// whose Mask is the union of the per-entry masks. The walk is not amortized
// across the batch; only the results are merged.
func (vt *VectorizedInputTraverser) TraverseBatch(batch []network.MaskedOutput) VectorResult {
	var out VectorResult
	seenNodes := map[*network.Node]bool{}
	seenOutputs := map[*network.Output]bool{}
	seenInputs := map[*network.Input]bool{}

	stepIndex := map[*network.Connection]int{}

	for i, mo := range batch {
		single := vt.inner.Traverse(mo)

		for _, n := range single.Nodes {
			if !seenNodes[n] {
				seenNodes[n] = true
				out.Nodes = append(out.Nodes, n)
			}
		}
		for _, o := range single.Outputs {
			if !seenOutputs[o] {
				seenOutputs[o] = true
				out.Outputs = append(out.Outputs, o)
			}
		}
		for _, in := range single.Inputs {
			if !seenInputs[in] {
				seenInputs[in] = true
				out.Inputs = append(out.Inputs, in)
			}
		}

		for _, s := range single.Steps {
			if idx, ok := stepIndex[s.Connection]; ok {
				out.Steps[idx].RequestBits.Set(i)
				out.Steps[idx].Mask = out.Steps[idx].Mask.Union(s.Mask)
				continue
			}
			bits := mask.New(len(batch))
			bits.Set(i)
			stepIndex[s.Connection] = len(out.Steps)
			out.Steps = append(out.Steps, VectorStep{Step: s, RequestBits: bits})
		}
	}

	return out
}

// VectorizedOutputTraverser is the downstream counterpart of
// VectorizedInputTraverser, batching several (input, mask) arrivals.
type VectorizedOutputTraverser struct {
	inner *OutputTraverser
}

// NewVectorizedOutputTraverser returns a VectorizedOutputTraverser sharing
// indexer with a plain OutputTraverser.
func NewVectorizedOutputTraverser(indexer network.PoolChainIndexer) *VectorizedOutputTraverser {
	return &VectorizedOutputTraverser{inner: NewOutputTraverser(indexer)}
}

// Arrival is one entry of a vectorized output-traversal batch.
type Arrival struct {
	Input *network.Input
	Mask  mask.Mask
}

// TraverseBatch traverses every arrival, merging shared connections into a
// single VectorStep the same way TraverseBatch does for the input
// direction.
func (vt *VectorizedOutputTraverser) TraverseBatch(batch []Arrival) VectorResult {
	var out VectorResult
	seenNodes := map[*network.Node]bool{}
	seenOutputs := map[*network.Output]bool{}
	seenInputs := map[*network.Input]bool{}
	stepIndex := map[*network.Connection]int{}

	for i, a := range batch {
		single := vt.inner.Traverse(a.Input, a.Mask)

		for _, n := range single.Nodes {
			if !seenNodes[n] {
				seenNodes[n] = true
				out.Nodes = append(out.Nodes, n)
			}
		}
		for _, o := range single.Outputs {
			if !seenOutputs[o] {
				seenOutputs[o] = true
				out.Outputs = append(out.Outputs, o)
			}
		}
		for _, in := range single.Inputs {
			if !seenInputs[in] {
				seenInputs[in] = true
				out.Inputs = append(out.Inputs, in)
			}
		}
		for _, s := range single.Steps {
			if idx, ok := stepIndex[s.Connection]; ok {
				out.Steps[idx].RequestBits.Set(i)
				out.Steps[idx].Mask = out.Steps[idx].Mask.Union(s.Mask)
				continue
			}
			bits := mask.New(len(batch))
			bits.Set(i)
			stepIndex[s.Connection] = len(out.Steps)
			out.Steps = append(out.Steps, VectorStep{Step: s, RequestBits: bits})
		}
	}

	return out
}
