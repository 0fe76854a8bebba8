package network

import (
	"github.com/vdfkit/vdf/internal/vecutil"
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/specreg"
	"github.com/vdfkit/vdf/vid"
)

// NodeSpec describes a node kind to AddNode: its declared input/output
// shape plus the two dependency-mask callbacks responsible for per-node-kind
// polymorphism over dependency computation (compute and equality are
// execution concerns and stay out of this core's scope).
//
// A nil InputDependencyMask/OutputDependencyMask is treated conservatively
// as "depends on everything" so traversal stays sound for node kinds that
// don't supply fine-grained dependency information.
type NodeSpec struct {
	Kind string

	// Speculation marks a node as a distinguished variant permitted to
	// admit feedback cycles.
	Speculation bool

	Inputs  []specreg.InputSpec
	Outputs []specreg.OutputSpec

	// InputDependencyMask, given one of this node's outputs and a
	// requested mask on it, returns the per-input masks the node needs to
	// compute that output (upstream direction; drives the input
	// traverser).
	InputDependencyMask func(outputName string, requestMask mask.Mask) map[string]mask.Mask

	// OutputDependencyMask, given one of this node's inputs and an
	// arriving mask on it, returns the per-output masks the node's
	// outputs are affected by that arrival (downstream direction; drives
	// the output traverser and the path finder).
	OutputDependencyMask func(inputName string, arrivingMask mask.Mask) map[string]mask.Mask

	// DebugName, if set, is stored lazily.
	DebugName func() string
}

// Node is a node in the network's topology: an ordered set of inputs and
// outputs derived from a shared spec, with a stable generational identity.
type Node struct {
	id          vid.ID
	kind        string
	speculation bool
	specs       *specreg.SharedSpecs
	inputs      []*Input
	outputs     []*Output
	network     *Network

	inputDepFn  func(outputName string, requestMask mask.Mask) map[string]mask.Mask
	outputDepFn func(inputName string, arrivingMask mask.Mask) map[string]mask.Mask
}

// ID returns the node's stable generational identity.
func (n *Node) ID() vid.ID { return n.id }

// Kind returns the node-kind name it was constructed with.
func (n *Node) Kind() string { return n.kind }

// Speculation reports whether this node is a speculation node.
func (n *Node) Speculation() bool { return n.speculation }

// Specs returns the shared input/output spec object this node's shape is
// derived from.
func (n *Node) Specs() *specreg.SharedSpecs { return n.specs }

// Inputs returns the node's ordered inputs. The returned slice must not be
// mutated by callers.
func (n *Node) Inputs() []*Input { return n.inputs }

// Outputs returns the node's ordered outputs. The returned slice must not
// be mutated by callers.
func (n *Node) Outputs() []*Output { return n.outputs }

// Input returns the input with the given name, or nil if none exists.
func (n *Node) Input(name string) *Input {
	for _, in := range n.inputs {
		if in.name == name {
			return in
		}
	}
	return nil
}

// Output returns the output with the given name, or nil if none exists.
func (n *Node) Output(name string) *Output {
	for _, out := range n.outputs {
		if out.name == name {
			return out
		}
	}
	return nil
}

// HasConnections reports whether any of the node's inputs or outputs carry
// at least one connection — the precondition Delete checks.
func (n *Node) HasConnections() bool {
	for _, in := range n.inputs {
		if len(in.connections) > 0 {
			return true
		}
	}
	for _, out := range n.outputs {
		if len(out.connections) > 0 {
			return true
		}
	}
	return false
}

// InputDependencyMask computes, for the given output name and requested
// mask, the per-input masks this node depends on to produce that output.
// Falls back to "depends on every input with the full requested mask" when
// the node kind didn't supply InputDependencyMask.
func (n *Node) InputDependencyMask(outputName string, requestMask mask.Mask) map[string]mask.Mask {
	if n.inputDepFn != nil {
		return n.inputDepFn(outputName, requestMask)
	}
	out := make(map[string]mask.Mask, len(n.inputs))
	for _, in := range n.inputs {
		out[in.name] = requestMask
	}
	return out
}

// OutputDependencyMask computes, for the given input name and an arriving
// mask on it, the per-output masks of this node that are affected. Falls
// back to "every output is affected with the full arriving mask" when the
// node kind didn't supply OutputDependencyMask.
func (n *Node) OutputDependencyMask(inputName string, arrivingMask mask.Mask) map[string]mask.Mask {
	if n.outputDepFn != nil {
		return n.outputDepFn(inputName, arrivingMask)
	}
	out := make(map[string]mask.Mask, len(n.outputs))
	for _, o := range n.outputs {
		out[o.name] = arrivingMask
	}
	return out
}

// Output is a named output slot of a node with a stable identity
// independent of the node's own identity.
type Output struct {
	id          vid.ID
	name        string
	node        *Node
	affectsMask *mask.Mask // nil ⇒ "all"
	width       int
	connections []*Connection
}

// ID returns the output's stable identity, used for per-output schedule
// keying.
func (o *Output) ID() vid.ID { return o.id }

// Name returns the output's declared name.
func (o *Output) Name() string { return o.name }

// Node returns the owning node.
func (o *Output) Node() *Node { return o.node }

// Width reports the output's logical value extent. A width greater than 1
// combined with an associated read-write input makes this output a pool
// output.
func (o *Output) Width() int { return o.width }

// SetWidth updates the output's logical width. Called by whatever drives
// node compute (out of this core's scope) once a value is produced; kept
// here because the pool-chain indexer's pool-output classification depends
// on it.
func (o *Output) SetWidth(width int) { o.width = width }

// AffectsMask returns the output's affects mask and whether one is set. An
// absent affects mask means "always affective".
func (o *Output) AffectsMask() (mask.Mask, bool) {
	if o.affectsMask == nil {
		return mask.Mask{}, false
	}
	return *o.affectsMask, true
}

// SetAffectsMask installs or clears the output's affects mask. Passing
// present=false clears it (equivalent to "always affective"); m is then
// ignored.
func (o *Output) SetAffectsMask(m mask.Mask, present bool) {
	if !present {
		o.affectsMask = nil
		return
	}
	o.affectsMask = vecutil.Ptr(m)
}

// Connections returns the connections on which this output appears as
// source, in insertion order. The returned slice must not be mutated.
func (o *Output) Connections() []*Connection { return o.connections }

// IsPool reports whether this output is a pool output: its owning input
// (the associated read-write input, if any) exists and this output's
// width exceeds 1.
func (o *Output) IsPool() bool {
	if o.width <= 1 {
		return false
	}
	for _, in := range o.node.inputs {
		if in.readWrite && in.associatedOutput == o {
			return true
		}
	}
	return false
}

// Input is a named input slot of a node. A single input may hold many
// connections; a read-write input holds exactly one at any time, enforced
// by the scheduler rather than by the connection primitive itself.
type Input struct {
	name             string
	node             *Node
	readWrite        bool
	associatedOutput *Output
	connections      []*Connection
}

// Name returns the input's declared name.
func (in *Input) Name() string { return in.name }

// Node returns the owning node.
func (in *Input) Node() *Node { return in.node }

// ReadWrite reports whether this input is the read-write member of an
// associated (input, output) pair.
func (in *Input) ReadWrite() bool { return in.readWrite }

// AssociatedOutput returns the output this read-write input is paired
// with, or nil if this input is not read-write.
func (in *Input) AssociatedOutput() *Output { return in.associatedOutput }

// Connections returns the input's ordered connection list. The returned
// slice must not be mutated; use Network.ReorderInputConnections to
// permute it.
func (in *Input) Connections() []*Connection { return in.connections }

// Connection carries a reference to its source output and target input
// (both non-null for its lifetime) and a mask of the source output's
// logical width selecting which indices flow through it.
// Unowned by node or input in the value sense — the Network owns it.
type Connection struct {
	seq    uint64
	source *Output
	target *Input
	mask   mask.Mask
}

// Seq returns a monotonically increasing sequence number assigned at
// connection creation, useful as a stable map key or tiebreaker
// independent of mask/pointer identity.
func (c *Connection) Seq() uint64 { return c.seq }

// Source returns the connection's source output.
func (c *Connection) Source() *Output { return c.source }

// Target returns the connection's target input.
func (c *Connection) Target() *Input { return c.target }

// Mask returns the connection's selection mask.
func (c *Connection) Mask() mask.Mask { return c.mask }

// Monitor is a bundle of optional callbacks an edit-notification observer
// implements. Only the callbacks it cares about need to be set — modeled
// as a struct of function fields rather than a Go interface, since the
// per-callback contract is intentionally minimal and a function-adapter
// shape avoids forcing every observer to stub out callbacks it ignores.
type Monitor struct {
	DidAddNode           func(n *Node)
	DidConnect           func(c *Connection)
	WillDeleteNode       func(n *Node)
	WillDeleteConnection func(c *Connection)
	WillClear            func()
}
