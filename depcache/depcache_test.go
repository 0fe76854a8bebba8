package depcache_test

import (
	"context"
	"testing"

	"github.com/vdfkit/vdf/depcache"
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
	"github.com/vdfkit/vdf/specreg"
	"github.com/vdfkit/vdf/traverse"
)

func buildChain(t *testing.T) (*network.Network, *network.Node, *network.Node) {
	t.Helper()
	n := network.New()
	src := n.AddNode(network.NodeSpec{Kind: "src", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	dst := n.AddNode(network.NodeSpec{
		Kind:    "dst",
		Inputs:  []specreg.InputSpec{{Name: "i"}},
		Outputs: []specreg.OutputSpec{{Name: "o"}},
	})
	n.Connect(src.Outputs()[0], dst.Inputs()[0], mask.All(4))
	return n, src, dst
}

func TestComputeCachesEntry(t *testing.T) {
	_, src, dst := buildChain(t)
	it := traverse.NewInputTraverser(nil)
	c := depcache.New(it)

	req := network.NormalizeRequest([]network.MaskedOutput{{Output: dst.Outputs()[0], Mask: mask.All(4)}})

	e1 := c.Compute(req)
	e2 := c.Compute(req)
	if e1 != e2 {
		t.Fatalf("expected the second Compute to return the cached entry unchanged")
	}
	found := false
	for _, o := range e1.OutputRefs {
		if o == src.Outputs()[0] {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the dependency entry to reference src's output")
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	_, _, dst := buildChain(t)
	it := traverse.NewInputTraverser(nil)
	c := depcache.New(it)
	req := network.NormalizeRequest([]network.MaskedOutput{{Output: dst.Outputs()[0], Mask: mask.All(4)}})

	c.Compute(req)
	c.Invalidate(req)

	if _, ok := c.Get(req); ok {
		t.Fatalf("expected entry to be gone after Invalidate")
	}
}

func TestIncrementalUpdateAddsNewDependency(t *testing.T) {
	n, src, dst := buildChain(t)
	it := traverse.NewInputTraverser(nil)
	c := depcache.New(it)
	req := network.NormalizeRequest([]network.MaskedOutput{{Output: dst.Outputs()[0], Mask: mask.All(4)}})

	c.Compute(req)

	extra := n.AddNode(network.NodeSpec{Kind: "extra", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	newConn := n.Connect(extra.Outputs()[0], dst.Inputs()[0], mask.All(4))

	entry, err := c.IncrementalUpdate(context.Background(), req, []*network.Connection{newConn})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foundExtra, foundSrc := false, false
	for _, o := range entry.OutputRefs {
		if o == extra.Outputs()[0] {
			foundExtra = true
		}
		if o == src.Outputs()[0] {
			foundSrc = true
		}
	}
	if !foundExtra {
		t.Fatalf("expected incremental update to add the new connection's source output")
	}
	if !foundSrc {
		t.Fatalf("expected incremental update to keep the original entry's references")
	}
}
