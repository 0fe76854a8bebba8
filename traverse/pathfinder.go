package traverse

import (
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
)

// Path is one distinct chain of connections from a starting input down to
// a terminal output (one with no further outgoing connections) discovered
// by PathFinder.
type Path struct {
	Connections []*network.Connection
	Mask        mask.Mask // mask carried by the final connection in the chain
}

// PathFinder enumerates every distinct relevant path from an input arrival
// to the outputs it ultimately reaches, rather than collapsing them into a
// single merged Result the way OutputTraverser does.
//
// Pool outputs are handled apart: a path that leaves a node through a pool
// output ends at that output's outgoing connection (or at the output itself
// when it has none) and is not followed further downstream. Such paths are
// collected separately and appended after every other path once the walk
// completes; they are not joined with any other path.
type PathFinder struct {
	indexer network.PoolChainIndexer
}

// NewPathFinder returns a PathFinder using indexer to resolve pool-output
// ordering.
func NewPathFinder(indexer network.PoolChainIndexer) *PathFinder {
	return &PathFinder{indexer: indexer}
}

type pathFrame struct {
	input *network.Input
	m     mask.Mask
	chain []*network.Connection
}

// potentialResult is a path whose tail passed through a pool output; it is
// held back and appended after the other paths.
type potentialResult struct {
	path       Path
	poolOutput *network.Output
}

// FindPaths enumerates every path from startInput (with startMask) to a
// terminal output. Paths that do not pass through a pool output come first,
// in discovery order, followed by the paths ending at a pool output.
func (pf *PathFinder) FindPaths(startInput *network.Input, startMask mask.Mask) []Path {
	var finished []Path
	var potential []potentialResult
	maxRankSeen := map[*network.Output]network.PoolChainIndex{}

	var stack []pathFrame
	stack = append(stack, pathFrame{input: startInput, m: startMask})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := f.input.Node()
		depMasks := node.OutputDependencyMask(f.input.Name(), f.m)

		terminalForThisInput := true
		for _, out := range node.Outputs() {
			affected, ok := depMasks[out.Name()]
			if !ok || affected.IsAllZeros() {
				continue
			}
			if len(out.Connections()) == 0 {
				terminalForThisInput = false
				chain := appendChain(f.chain, nil)
				path := Path{Connections: chain, Mask: affected}
				if out.IsPool() {
					potential = append(potential, potentialResult{path: path, poolOutput: out})
				} else {
					finished = append(finished, path)
				}
				continue
			}
			for _, c := range out.Connections() {
				overlap := intersectTolerant(c.Mask(), affected)
				if overlap.IsAllZeros() {
					continue
				}
				terminalForThisInput = false
				chain := appendChain(f.chain, c)
				if out.IsPool() {
					if rank, ok := pf.rankOf(out); ok && rank > maxRankSeen[out] {
						maxRankSeen[out] = rank
					}
					potential = append(potential, potentialResult{
						path:       Path{Connections: chain, Mask: overlap},
						poolOutput: out,
					})
					continue
				}
				stack = append(stack, pathFrame{input: c.Target(), m: overlap, chain: chain})
			}
		}
		if terminalForThisInput && len(f.chain) > 0 {
			finished = append(finished, Path{Connections: f.chain, Mask: f.m})
		}
	}

	// Append every path that ended at a pool output, in the order found.
	for _, p := range potential {
		finished = append(finished, p.path)
	}

	return finished
}

func (pf *PathFinder) rankOf(o *network.Output) (network.PoolChainIndex, bool) {
	if pf.indexer == nil {
		return network.InvalidPoolChainIndex, false
	}
	return pf.indexer.IndexFor(o)
}

func appendChain(chain []*network.Connection, c *network.Connection) []*network.Connection {
	out := make([]*network.Connection, len(chain), len(chain)+1)
	copy(out, chain)
	if c != nil {
		out = append(out, c)
	}
	return out
}
