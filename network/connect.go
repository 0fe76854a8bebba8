package network

import (
	"context"

	"github.com/vdfkit/vdf/debug"
	"github.com/vdfkit/vdf/diag"
	"github.com/vdfkit/vdf/mask"
)

// Connect creates a Connection from source to target carrying m as its
// selection mask, rejecting the edit (returning nil) if it would create a
// cycle, unless target belongs to a speculation node.
//
// If target is a read-write input, m must be contained by the sole existing
// connection's mask on that input when one is already present — enforced
// here as a debug-mode assertion rather than a hard refusal, since the
// scheduler (not the connection primitive) owns enforcing read-write
// exclusivity in the general case.
func (n *Network) Connect(source *Output, target *Input, m mask.Mask) *Connection {
	n.mu.Lock()
	defer n.mu.Unlock()

	if source == nil || target == nil {
		diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
			Kind:    diag.KindProgrammerContract,
			Op:      "Network.Connect",
			Message: "nil source or target",
		})
		return nil
	}

	if target.readWrite && len(target.connections) > 0 {
		existing := target.connections[0]
		if !existing.mask.Contains(m) {
			diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
				Kind:    diag.KindProgrammerContract,
				Op:      "Network.Connect",
				Message: "read-write input's new connection mask is not contained by the existing source mask",
			})
			debug.Assert(false, "network: read-write connection mask containment violated")
		}
	}

	if !target.node.speculation && n.reachesLocked(target.node, source.node) {
		diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
			Kind:    diag.KindProgrammerContract,
			Op:      "Network.Connect",
			Message: "connection would create a cycle through a non-speculation node",
		})
		return nil
	}

	n.connSeq++
	c := &Connection{seq: n.connSeq, source: source, target: target, mask: m}
	source.connections = append(source.connections, c)
	target.connections = append(target.connections, c)

	n.bumpVersionLocked()
	n.poolChain.OnConnect(c)
	n.invalidate.UpdateForConnectionChange(c, true)

	for _, mon := range n.monitors {
		if mon.DidConnect != nil {
			mon.DidConnect(c)
		}
	}

	return c
}

// reachesLocked reports whether a path of connections leads from `from`'s
// outputs forward to `to` (i.e. whether connecting to->from would close a
// cycle back to `to`). Must be called with n.mu held.
func (n *Network) reachesLocked(from, to *Node) bool {
	if from == to {
		return true
	}
	visited := make(map[*Node]bool)
	var stack []*Node
	stack = append(stack, from)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if cur == to {
			return true
		}
		for _, out := range cur.outputs {
			for _, c := range out.connections {
				next := c.target.node
				if !visited[next] {
					stack = append(stack, next)
				}
			}
		}
	}
	return false
}

// Disconnect removes a connection, notifying WillDeleteConnection before
// unlinking it from its source and target so observers see a consistent
// topology at notification time: deletion notices precede structural
// removal.
func (n *Network) Disconnect(c *Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnectLocked(c)
}

func (n *Network) disconnectLocked(c *Connection) {
	for _, mon := range n.monitors {
		if mon.WillDeleteConnection != nil {
			mon.WillDeleteConnection(c)
		}
	}

	n.invalidate.UpdateForConnectionChange(c, false)
	n.poolChain.OnDisconnect(c)

	c.source.connections = removeConnection(c.source.connections, c)
	c.target.connections = removeConnection(c.target.connections, c)

	n.bumpVersionLocked()
}

func removeConnection(conns []*Connection, target *Connection) []*Connection {
	out := conns[:0]
	for _, c := range conns {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// Delete removes a node from the network. A node with any live connection
// on an input or output is refused (diagnosed as a programmer-contract
// violation) — callers must Disconnect first, or use package isolate to
// tear down a whole upstream subgraph in network-consistent order.
func (n *Network) Delete(node *Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur, ok := n.getNodeLocked(node.id)
	if !ok || cur != node {
		return false
	}

	if node.HasConnections() {
		diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
			Kind:    diag.KindProgrammerContract,
			Op:      "Network.Delete",
			Message: "cannot delete a node with live connections",
		})
		return false
	}

	for _, mon := range n.monitors {
		if mon.WillDeleteNode != nil {
			mon.WillDeleteNode(node)
		}
	}

	n.poolChain.OnDeleteNode(node)
	n.invalidate.InvalidateContainingNode(node)

	n.nodes[node.id.Index()] = nil
	n.nodeIDs.Release(node.id)
	for _, out := range node.outputs {
		n.outputIDs.Release(out.id)
	}
	n.specs.Release(node.specs)
	n.debugNames.Delete(node.id.Index())

	n.bumpVersionLocked()
	return true
}

// ReorderInputConnections permutes the connection order on an input.
// newOrder must be a bijection of the input's current connections (same
// set, any order); passing anything else is an unrecoverable programmer
// error.
func (n *Network) ReorderInputConnections(in *Input, newOrder []*Connection) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(newOrder) != len(in.connections) {
		n.reportBadReorder()
		return false
	}

	have := make(map[*Connection]int, len(in.connections))
	for _, c := range in.connections {
		have[c]++
	}
	for _, c := range newOrder {
		have[c]--
	}
	for _, count := range have {
		if count != 0 {
			n.reportBadReorder()
			return false
		}
	}

	in.connections = append([]*Connection(nil), newOrder...)
	n.bumpVersionLocked()
	return true
}

func (n *Network) reportBadReorder() {
	diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
		Kind:    diag.KindUnrecoverable,
		Op:      "Network.ReorderInputConnections",
		Message: "newOrder is not a permutation of the input's current connections",
	})
	debug.Assert(false, "network: ReorderInputConnections given a non-bijective order")
}
