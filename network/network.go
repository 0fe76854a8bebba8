// Package network implements the topology and identity layer of the
// dataflow engine: the Network store owning Nodes and
// Connections, a monotone edit version, registered Monitors, and the
// generational identity scheme from package vid.
//
// A single coarse sync.Mutex guards all mutation. Spec §4.1 only requires
// AddNode/Connect to be safe under concurrent calls and leaves
// Disconnect/Delete to the caller's own mutual exclusion; this
// implementation satisfies that bar trivially (and then some) by taking
// the same lock everywhere, regardless of which operation is finer-grained
// in principle.
package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/vdfkit/vdf/diag"
	"github.com/vdfkit/vdf/internal/vecutil"
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/specreg"
	"github.com/vdfkit/vdf/vid"
)

// Network owns a set of Nodes and Connections, assigns generational
// identity, and notifies registered Monitors of every topology edit (spec
// §4.1).
type Network struct {
	mu sync.Mutex

	nodeIDs   *vid.Generator
	outputIDs *vid.Generator

	nodes []*Node // indexed by nodeID.Index(); tombstoned entries are nil

	connSeq uint64
	version uint64

	monitors []Monitor

	specs *specreg.Registry

	poolChain  PoolChainIndexer
	invalidate ScheduleInvalidator

	debugNames sync.Map // uint32 node index -> func() string

	diagProvider diag.Provider
}

// Option configures a Network at construction time, following the
// functional-options pattern used throughout this module's packages.
type Option func(*Network)

// WithDiagProvider installs the diag.Provider used for recoverable
// diagnostics. Defaults to diag.NopProvider{}.
func WithDiagProvider(p diag.Provider) Option {
	return func(n *Network) { n.diagProvider = p }
}

// WithSpecRegistry installs a shared specreg.Registry. Defaults to a fresh
// private registry.
func WithSpecRegistry(r *specreg.Registry) Option {
	return func(n *Network) { n.specs = r }
}

// WithPoolChainIndexer installs the pool-chain rank provider (package
// poolchain). Defaults to a no-op that reports every output as unranked.
func WithPoolChainIndexer(idx PoolChainIndexer) Option {
	return func(n *Network) { n.poolChain = idx }
}

// WithScheduleInvalidator installs the schedule invalidation registry
// (package invalidate). Defaults to a no-op.
func WithScheduleInvalidator(inv ScheduleInvalidator) Option {
	return func(n *Network) { n.invalidate = inv }
}

// New constructs an empty Network.
func New(opts ...Option) *Network {
	n := &Network{
		nodeIDs:      vid.NewGenerator(),
		outputIDs:    vid.NewGenerator(),
		specs:        specreg.New(nil),
		poolChain:    noopPoolChainIndexer{},
		invalidate:   noopScheduleInvalidator{},
		diagProvider: diag.NopProvider{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Version returns the current monotone edit version.
func (n *Network) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

func (n *Network) bumpVersionLocked() {
	n.version++
}

// AddMonitor registers a Monitor. Monitors are notified in registration
// order.
func (n *Network) AddMonitor(m Monitor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.monitors = append(n.monitors, m)
}

// SetDebugName installs a lazily-invoked debug-name callback for a node,
// keyed only by the node's index. Delete removes the entry for the deleted
// node's index, and Clear drops every entry.
func (n *Network) SetDebugName(id vid.ID, fn func() string) {
	n.debugNames.Store(id.Index(), fn)
}

// DebugName returns the node's debug name, or a generic fallback if none
// was registered or the node is stale.
func (n *Network) DebugName(id vid.ID) string {
	if n.nodeIDs.IsCurrent(id) {
		if v, ok := n.debugNames.Load(id.Index()); ok {
			if fn, ok := v.(func() string); ok && fn != nil {
				return vecutil.TruncateStringDefault(fn())
			}
		}
	}
	return fmt.Sprintf("node#%d.v%d", id.Index(), id.Version())
}

// AddNode creates a new node of the given spec, acquiring a fresh
// generational ID, interning the input/output specs via the shared
// registry, and constructing the node's Input/Output slots.
//
// Read-write association: every InputSpec with ReadWrite set must name an
// existing OutputSpec via AssociatedOutput; a dangling reference is a
// programmer-contract diagnostic and AddNode is a no-op (returns nil).
func (n *Network) AddNode(spec NodeSpec) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, in := range spec.Inputs {
		if in.ReadWrite {
			if _, ok := findOutputSpec(spec.Outputs, in.AssociatedOutput); !ok {
				diag.Emit(context.Background(), n.diagProvider, diag.Diagnostic{
					Kind:    diag.KindProgrammerContract,
					Op:      "Network.AddNode",
					Message: "read-write input names a non-existent associated output",
					Attrs:   []diag.Attribute{diag.String("input", in.Name), diag.String("associatedOutput", in.AssociatedOutput)},
				})
				return nil
			}
		}
	}

	sharedSpecs := n.specs.Acquire(spec.Inputs, spec.Outputs)

	id := n.nodeIDs.Acquire()
	node := &Node{
		id:          id,
		kind:        spec.Kind,
		speculation: spec.Speculation,
		specs:       sharedSpecs,
		network:     n,
		inputDepFn:  spec.InputDependencyMask,
		outputDepFn: spec.OutputDependencyMask,
	}

	node.outputs = make([]*Output, len(spec.Outputs))
	for i, os := range spec.Outputs {
		node.outputs[i] = &Output{
			id:   n.outputIDs.Acquire(),
			name: os.Name,
			node: node,
		}
	}

	node.inputs = make([]*Input, len(spec.Inputs))
	for i, is := range spec.Inputs {
		in := &Input{name: is.Name, node: node, readWrite: is.ReadWrite}
		if is.ReadWrite {
			for _, out := range node.outputs {
				if out.name == is.AssociatedOutput {
					in.associatedOutput = out
					break
				}
			}
		}
		node.inputs[i] = in
	}

	if spec.DebugName != nil {
		n.SetDebugName(id, spec.DebugName)
	}

	idx := int(id.Index())
	for idx >= len(n.nodes) {
		n.nodes = append(n.nodes, nil)
	}
	n.nodes[idx] = node

	n.bumpVersionLocked()
	n.poolChain.OnAddNode(node)

	for _, m := range n.monitors {
		if m.DidAddNode != nil {
			m.DidAddNode(node)
		}
	}

	return node
}

func findOutputSpec(outputs []specreg.OutputSpec, name string) (specreg.OutputSpec, bool) {
	for _, o := range outputs {
		if o.Name == name {
			return o, true
		}
	}
	return specreg.OutputSpec{}, false
}

// GetNode returns the node for id if it is current (not a stale handle to
// a deleted-and-reused slot).
func (n *Network) GetNode(id vid.ID) (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.getNodeLocked(id)
}

func (n *Network) getNodeLocked(id vid.ID) (*Node, bool) {
	if !n.nodeIDs.IsCurrent(id) {
		return nil, false
	}
	idx := int(id.Index())
	if idx < 0 || idx >= len(n.nodes) {
		return nil, false
	}
	node := n.nodes[idx]
	if node == nil {
		return nil, false
	}
	return node, true
}

// Nodes returns a snapshot slice of every live (non-tombstoned) node.
func (n *Network) Nodes() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		if node != nil {
			out = append(out, node)
		}
	}
	return out
}

// Clear removes every node and connection, notifying WillClear before any
// teardown, then resets both ID generators so that IDs minted afterward
// never alias a retained stale handle.
func (n *Network) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, m := range n.monitors {
		if m.WillClear != nil {
			m.WillClear()
		}
	}

	for _, node := range n.nodes {
		if node == nil {
			continue
		}
		n.specs.Release(node.specs)
	}

	n.nodes = nil
	n.nodeIDs.Reset()
	n.outputIDs.Reset()
	n.debugNames = sync.Map{}
	n.poolChain.Reset()
	n.invalidate.InvalidateAll()
	n.bumpVersionLocked()
}

// SetAffectsMask installs or clears an output's affects mask, notifying the
// schedule invalidator so live schedules depending on it can be
// invalidated.
func (n *Network) SetAffectsMask(o *Output, present bool, m mask.Mask) {
	n.mu.Lock()
	defer n.mu.Unlock()

	oldMask, oldPresent := o.AffectsMask()
	o.SetAffectsMask(m, present)
	newMask, newPresent := o.AffectsMask()
	n.invalidate.UpdateForAffectsMaskChange(o, oldMask, newMask, oldPresent, newPresent)
}
