// Package isolate implements the isolated-subgraph teardown helper (spec
// §4.7): deleting a node can strand an upstream chain of producers that
// existed solely to feed it. DeleteIsolatedUpstream walks that upstream
// chain, tracking how many of each node's output connections remain, and
// deletes a node only once every one of its connections — inbound and
// outbound — has already been disconnected, matching the order
// Network.Delete itself requires (connections torn down, then the node).
package isolate

import "github.com/vdfkit/vdf/network"

// Result reports what DeleteIsolatedUpstream actually removed.
type Result struct {
	DeletedNodes            []*network.Node
	DisconnectedConnections []*network.Connection
}

// DeleteIsolatedUpstream deletes root and walks upstream through its
// (former) input connections, deleting any upstream node that becomes
// fully disconnected as a consequence — i.e. every node in root's upstream
// closure whose outputs end up with no remaining connections once the
// walk reaches it. A node outside root's upstream closure is never
// touched, even if one of its outputs happens to also feed something in
// the closure: this only tears down nodes reachable by walking backward
// from root, not arbitrary producers.
func DeleteIsolatedUpstream(net *network.Network, root *network.Node) Result {
	closure := upstreamClosure(root)

	remaining := make(map[*network.Node]int, len(closure))
	for n := range closure {
		count := 0
		for _, out := range n.Outputs() {
			count += len(out.Connections())
		}
		remaining[n] = count
	}

	var result Result
	deleted := make(map[*network.Node]bool, len(closure))

	queue := []*network.Node{root}
	queued := map[*network.Node]bool{root: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if deleted[cur] {
			continue
		}

		for _, in := range cur.Inputs() {
			for _, c := range snapshot(in.Connections()) {
				src := c.Source().Node()
				net.Disconnect(c)
				result.DisconnectedConnections = append(result.DisconnectedConnections, c)

				if closure[src] {
					remaining[src]--
					if remaining[src] <= 0 && !queued[src] {
						queued[src] = true
						queue = append(queue, src)
					}
				}
			}
		}

		for _, out := range cur.Outputs() {
			for _, c := range snapshot(out.Connections()) {
				net.Disconnect(c)
				result.DisconnectedConnections = append(result.DisconnectedConnections, c)
			}
		}

		if net.Delete(cur) {
			deleted[cur] = true
			result.DeletedNodes = append(result.DeletedNodes, cur)
		}
	}

	return result
}

func snapshot(conns []*network.Connection) []*network.Connection {
	return append([]*network.Connection(nil), conns...)
}

// upstreamClosure returns every node reachable from root by walking
// backward through input connections, including root itself.
func upstreamClosure(root *network.Node) map[*network.Node]bool {
	visited := map[*network.Node]bool{}
	stack := []*network.Node{root}
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
				if !visited[prev] {
					stack = append(stack, prev)
				}
			}
		}
	}
	return visited
}
