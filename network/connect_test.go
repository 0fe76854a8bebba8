package network

import (
	"testing"

	"github.com/vdfkit/vdf/mask"
)

func TestConnectRejectsCycleThroughNonSpeculationNode(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 1, 1))
	b := n.AddNode(simpleSpec("b", 1, 1))

	if c := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1)); c == nil {
		t.Fatalf("expected first connection to succeed")
	}
	if c := n.Connect(b.Outputs()[0], a.Inputs()[0], mask.New(1)); c != nil {
		t.Fatalf("expected the back-edge closing a cycle to be refused")
	}
}

func TestConnectAllowsCycleIntoSpeculationNode(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 1, 1))
	spec := simpleSpec("spec", 1, 1)
	spec.Speculation = true
	b := n.AddNode(spec)

	if c := n.Connect(b.Outputs()[0], a.Inputs()[0], mask.New(1)); c == nil {
		t.Fatalf("expected first connection to succeed")
	}
	if c := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1)); c == nil {
		t.Fatalf("expected back-edge into a speculation node to be admitted")
	}
}

func TestDisconnectUnlinksFromBothEndpoints(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 0, 1))
	b := n.AddNode(simpleSpec("b", 1, 0))
	c := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1))

	n.Disconnect(c)

	if len(a.Outputs()[0].Connections()) != 0 {
		t.Fatalf("expected source output to lose its connection")
	}
	if len(b.Inputs()[0].Connections()) != 0 {
		t.Fatalf("expected target input to lose its connection")
	}
}

func TestReorderInputConnectionsPermutes(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 0, 2))
	b := n.AddNode(simpleSpec("b", 1, 0))

	c1 := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1))
	c2 := n.Connect(a.Outputs()[1], b.Inputs()[0], mask.New(1))

	ok := n.ReorderInputConnections(b.Inputs()[0], []*Connection{c2, c1})
	if !ok {
		t.Fatalf("expected reorder to succeed")
	}
	got := b.Inputs()[0].Connections()
	if got[0] != c2 || got[1] != c1 {
		t.Fatalf("expected order [c2, c1], got %v", got)
	}
}

func TestReorderInputConnectionsRejectsNonBijection(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 0, 1))
	b := n.AddNode(simpleSpec("b", 1, 0))
	c1 := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1))

	ok := n.ReorderInputConnections(b.Inputs()[0], []*Connection{c1, c1})
	if ok {
		t.Fatalf("expected reorder with a duplicate entry to be rejected")
	}
}

func TestWillDeleteNotificationsPrecedeStructuralRemoval(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("a", 0, 1))
	b := n.AddNode(simpleSpec("b", 1, 0))
	c := n.Connect(a.Outputs()[0], b.Inputs()[0], mask.New(1))

	var sawConnectionsAtNotify int
	n.AddMonitor(Monitor{
		WillDeleteConnection: func(conn *Connection) {
			sawConnectionsAtNotify = len(conn.Source().Connections())
		},
	})

	n.Disconnect(c)
	if sawConnectionsAtNotify != 1 {
		t.Fatalf("expected the connection to still be linked at WillDeleteConnection time, saw %d", sawConnectionsAtNotify)
	}
}
