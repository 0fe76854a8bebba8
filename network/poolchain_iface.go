package network

// PoolChainIndex is the rank a PoolChainIndexer assigns to a pool output:
// larger means further downstream. Defined here (not in package poolchain)
// so that network has no import dependency on the concrete indexer
// implementation — poolchain imports network instead, one-way.
type PoolChainIndex int64

// InvalidPoolChainIndex is the sentinel returned for outputs the indexer
// has no rank for (not a pool output, or not yet indexed). Packed as the
// smallest possible value so it always sorts first in a less-than
// ordering — an absent rank must never sort after a present one.
const InvalidPoolChainIndex PoolChainIndex = 0

// PoolChainIndexer assigns and maintains the downstream-consistent rank
// used to order deferred pool outputs during traversal.
// network.Network depends on this interface rather than a concrete type so
// that the poolchain package can import network for *Connection/*Output
// without creating a cycle.
type PoolChainIndexer interface {
	// IndexFor returns the current rank of a pool output, and whether one
	// is assigned.
	IndexFor(o *Output) (PoolChainIndex, bool)

	// OnConnect is called after a connection is added to the topology, so
	// the indexer can incrementally update ranks.
	OnConnect(c *Connection)

	// OnDisconnect is called before a connection is removed.
	OnDisconnect(c *Connection)

	// OnAddNode is called after a node (and its pool outputs, if any) is
	// added.
	OnAddNode(n *Node)

	// OnDeleteNode is called before a node is removed.
	OnDeleteNode(n *Node)

	// Reset clears all indexer state, called from Network.Clear.
	Reset()
}

// noopPoolChainIndexer is the default PoolChainIndexer installed when no
// WithPoolChainIndexer option is supplied: every lookup reports "absent",
// which is sound (callers fall back to arrival order) but not
// downstream-consistent.
type noopPoolChainIndexer struct{}

func (noopPoolChainIndexer) IndexFor(*Output) (PoolChainIndex, bool) { return InvalidPoolChainIndex, false }
func (noopPoolChainIndexer) OnConnect(*Connection)                  {}
func (noopPoolChainIndexer) OnDisconnect(*Connection)                {}
func (noopPoolChainIndexer) OnAddNode(*Node)                         {}
func (noopPoolChainIndexer) OnDeleteNode(*Node)                      {}
func (noopPoolChainIndexer) Reset()                                  {}
