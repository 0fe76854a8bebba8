package network

import (
	"testing"

	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/specreg"
)

func simpleSpec(kind string, nInputs, nOutputs int) NodeSpec {
	spec := NodeSpec{Kind: kind}
	for i := 0; i < nInputs; i++ {
		spec.Inputs = append(spec.Inputs, specreg.InputSpec{Name: string(rune('a' + i))})
	}
	for i := 0; i < nOutputs; i++ {
		spec.Outputs = append(spec.Outputs, specreg.OutputSpec{Name: string(rune('x' + i))})
	}
	return spec
}

func TestAddNodeAssignsShapeAndID(t *testing.T) {
	n := New()
	node := n.AddNode(simpleSpec("source", 0, 1))
	if node == nil {
		t.Fatalf("expected node")
	}
	if len(node.Outputs()) != 1 {
		t.Fatalf("expected 1 output, got %d", len(node.Outputs()))
	}
	if got, ok := n.GetNode(node.ID()); !ok || got != node {
		t.Fatalf("GetNode did not return the same node")
	}
}

func TestAddNodeSharesSpecsStructurally(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("k", 1, 1))
	b := n.AddNode(simpleSpec("k", 1, 1))
	if a.Specs() != b.Specs() {
		t.Fatalf("structurally identical node kinds should share a SharedSpecs")
	}
}

func TestAddNodeRejectsDanglingReadWriteAssociation(t *testing.T) {
	n := New()
	spec := NodeSpec{
		Kind:    "bad",
		Inputs:  []specreg.InputSpec{{Name: "acc", ReadWrite: true, AssociatedOutput: "missing"}},
		Outputs: []specreg.OutputSpec{{Name: "out"}},
	}
	if got := n.AddNode(spec); got != nil {
		t.Fatalf("expected AddNode to refuse a dangling read-write association")
	}
}

func TestDeleteRejectsConnectedNode(t *testing.T) {
	n := New()
	src := n.AddNode(simpleSpec("src", 0, 1))
	dst := n.AddNode(simpleSpec("dst", 1, 0))

	n.Connect(src.Outputs()[0], dst.Inputs()[0], mask.New(1))

	if n.Delete(src) {
		t.Fatalf("expected Delete to refuse a node with a live connection")
	}
	n.Disconnect(src.Outputs()[0].Connections()[0])
	if !n.Delete(src) {
		t.Fatalf("expected Delete to succeed once disconnected")
	}
	if _, ok := n.GetNode(src.ID()); ok {
		t.Fatalf("deleted node must not be retrievable")
	}
}

func TestClearResetsIdentityFloor(t *testing.T) {
	n := New()
	a := n.AddNode(simpleSpec("k", 0, 1))
	n.Clear()
	b := n.AddNode(simpleSpec("k", 0, 1))

	if a.ID() == b.ID() {
		t.Fatalf("post-clear ID must not alias a pre-clear ID")
	}
	if _, ok := n.GetNode(a.ID()); ok {
		t.Fatalf("pre-clear node must no longer be current")
	}
}

func TestMonitorNotificationOrderAndContent(t *testing.T) {
	n := New()
	var events []string
	n.AddMonitor(Monitor{
		DidAddNode: func(nd *Node) { events = append(events, "add:"+nd.Kind()) },
		DidConnect: func(c *Connection) { events = append(events, "connect") },
	})

	src := n.AddNode(simpleSpec("src", 0, 1))
	dst := n.AddNode(simpleSpec("dst", 1, 0))
	n.Connect(src.Outputs()[0], dst.Inputs()[0], mask.New(1))

	want := []string{"add:src", "add:dst", "connect"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestDebugNameLazyAndFallback(t *testing.T) {
	n := New()
	calls := 0
	spec := simpleSpec("k", 0, 1)
	spec.DebugName = func() string { calls++; return "my-node" }
	node := n.AddNode(spec)

	if calls != 0 {
		t.Fatalf("debug name callback must not be invoked eagerly")
	}
	if got := n.DebugName(node.ID()); got != "my-node" || calls != 1 {
		t.Fatalf("expected lazy invocation returning my-node, got %q calls=%d", got, calls)
	}

	other := n.AddNode(simpleSpec("k", 0, 1))
	if got := n.DebugName(other.ID()); got == "my-node" {
		t.Fatalf("unrelated node must not inherit another node's debug name")
	}
}
