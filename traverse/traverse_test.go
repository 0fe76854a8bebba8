package traverse_test

import (
	"testing"

	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
	"github.com/vdfkit/vdf/poolchain"
	"github.com/vdfkit/vdf/specreg"
	"github.com/vdfkit/vdf/traverse"
)

func chainNetwork(t *testing.T) (*network.Network, *network.Node, *network.Node, *network.Node) {
	t.Helper()
	n := network.New()
	src := n.AddNode(network.NodeSpec{Kind: "src", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	mid := n.AddNode(network.NodeSpec{
		Kind:    "mid",
		Inputs:  []specreg.InputSpec{{Name: "i"}},
		Outputs: []specreg.OutputSpec{{Name: "o"}},
	})
	dst := n.AddNode(network.NodeSpec{Kind: "dst", Inputs: []specreg.InputSpec{{Name: "i"}}})

	n.Connect(src.Outputs()[0], mid.Inputs()[0], mask.All(4))
	n.Connect(mid.Outputs()[0], dst.Inputs()[0], mask.All(4))
	return n, src, mid, dst
}

func TestInputTraverserWalksUpstream(t *testing.T) {
	_, src, mid, dst := chainNetwork(t)

	it := traverse.NewInputTraverser(nil)
	res := it.Traverse(network.MaskedOutput{Output: mid.Outputs()[0], Mask: mask.All(4)})

	if len(res.Steps) != 1 {
		t.Fatalf("expected 1 step walking from mid's output to src, got %d", len(res.Steps))
	}
	if res.Steps[0].Connection.Source() != src.Outputs()[0] {
		t.Fatalf("expected the discovered connection to originate at src")
	}
	_ = dst
}

func TestOutputTraverserWalksDownstream(t *testing.T) {
	_, src, mid, dst := chainNetwork(t)

	ot := traverse.NewOutputTraverser(nil)
	res := ot.Traverse(src.Outputs()[0].Connections()[0].Target(), mask.All(4))

	foundDst := false
	for _, in := range res.Inputs {
		if in == dst.Inputs()[0] {
			foundDst = true
		}
	}
	if !foundDst {
		t.Fatalf("expected downstream traversal from mid's input to reach dst's input")
	}
	_ = mid
}

func TestAffectsMaskPrunesBranch(t *testing.T) {
	n := network.New()
	src := n.AddNode(network.NodeSpec{Kind: "src", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	dst := n.AddNode(network.NodeSpec{
		Kind:    "dst",
		Inputs:  []specreg.InputSpec{{Name: "i"}},
		Outputs: []specreg.OutputSpec{{Name: "o"}},
	})

	n.Connect(src.Outputs()[0], dst.Inputs()[0], mask.All(4))
	// Restrict src's output to only ever affect index 0.
	n.SetAffectsMask(src.Outputs()[0], true, mask.FromIndices(4, 0))

	it := traverse.NewInputTraverser(nil)
	res := it.Traverse(network.MaskedOutput{Output: dst.Outputs()[0], Mask: mask.FromIndices(4, 1, 2)})

	if len(res.Steps) != 0 {
		t.Fatalf("expected no steps: requested indices don't overlap the affects mask")
	}
}

func TestVectorizedInputTraverserSharesConnections(t *testing.T) {
	n := network.New()
	src := n.AddNode(network.NodeSpec{Kind: "src", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	a := n.AddNode(network.NodeSpec{
		Kind:    "a",
		Inputs:  []specreg.InputSpec{{Name: "i"}},
		Outputs: []specreg.OutputSpec{{Name: "o1"}, {Name: "o2"}},
	})
	b := n.AddNode(network.NodeSpec{Kind: "b", Inputs: []specreg.InputSpec{{Name: "i"}}})

	n.Connect(src.Outputs()[0], a.Inputs()[0], mask.All(4))
	n.Connect(src.Outputs()[0], b.Inputs()[0], mask.All(4))

	vt := traverse.NewVectorizedInputTraverser(nil)
	batch := []network.MaskedOutput{
		{Output: a.Outputs()[0], Mask: mask.FromIndices(4, 0)},
		{Output: a.Outputs()[1], Mask: mask.FromIndices(4, 1)},
	}
	res := vt.TraverseBatch(batch)

	if len(res.Steps) != 1 {
		t.Fatalf("expected the shared source connection to merge into one step, got %d", len(res.Steps))
	}
	if !res.Steps[0].RequestBits.Test(0) || !res.Steps[0].RequestBits.Test(1) {
		t.Fatalf("expected request bits to record both batch entries")
	}
}

func TestOutputTraverserRecordsPoolOutput(t *testing.T) {
	idx := poolchain.New()
	n := network.New(network.WithPoolChainIndexer(idx))

	acc := n.AddNode(network.NodeSpec{
		Kind:    "accumulator",
		Inputs:  []specreg.InputSpec{{Name: "acc", ReadWrite: true, AssociatedOutput: "pool"}},
		Outputs: []specreg.OutputSpec{{Name: "pool"}},
	})
	acc.Outputs()[0].SetWidth(4)

	feeder := n.AddNode(network.NodeSpec{Kind: "feeder", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	n.Connect(feeder.Outputs()[0], acc.Inputs()[0], mask.All(4))

	ot := traverse.NewOutputTraverser(idx)
	res := ot.Traverse(acc.Inputs()[0], mask.All(4))
	if len(res.Outputs) == 0 {
		t.Fatalf("expected traversal to record the pool output")
	}
}

func TestOutputTraverserCacheReturnsSameResult(t *testing.T) {
	_, src, mid, _ := chainNetwork(t)
	ot := traverse.NewOutputTraverser(nil).WithCache(10)

	in := src.Outputs()[0].Connections()[0].Target()
	first := ot.Traverse(in, mask.All(4))
	second := ot.Traverse(in, mask.All(4))

	if len(first.Steps) != len(second.Steps) {
		t.Fatalf("expected cached traversal to match the original")
	}
	_ = mid
}

func TestPathFinderEnumeratesTerminalPath(t *testing.T) {
	_, src, _, dst := chainNetwork(t)
	pf := traverse.NewPathFinder(nil)

	paths := pf.FindPaths(src.Outputs()[0].Connections()[0].Target(), mask.All(4))
	if len(paths) == 0 {
		t.Fatalf("expected at least one path to a terminal output")
	}
	found := false
	for _, p := range paths {
		if len(p.Connections) > 0 && p.Connections[len(p.Connections)-1].Target() == dst.Inputs()[0] {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a path terminating at dst's input")
	}
}
