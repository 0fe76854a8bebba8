package network

import "github.com/vdfkit/vdf/mask"

// ScheduleInvalidator receives topology and affects-mask edit notifications
// so schedule invalidation registries (package invalidate) can keep their
// per-schedule node bitsets and process-wide nodeFilter prefilter current.
// Defined here, implemented there, so invalidate can import network one-way
// without a cycle.
type ScheduleInvalidator interface {
	// UpdateForConnectionChange is called whenever a connection is added
	// or removed, so that schedules depending on either endpoint can be
	// found via the node filter prefilter.
	UpdateForConnectionChange(c *Connection, added bool)

	// UpdateForAffectsMaskChange is called whenever an output's affects
	// mask changes.
	UpdateForAffectsMaskChange(o *Output, oldMask, newMask mask.Mask, oldPresent, newPresent bool)

	// InvalidateContainingNode is called before a node is deleted, so
	// that every live schedule referencing it is invalidated.
	InvalidateContainingNode(n *Node)

	// InvalidateAll is called from Network.Clear.
	InvalidateAll()
}

// noopScheduleInvalidator is the default installed when no
// WithScheduleInvalidator option is supplied.
type noopScheduleInvalidator struct{}

func (noopScheduleInvalidator) UpdateForConnectionChange(*Connection, bool)        {}
func (noopScheduleInvalidator) UpdateForAffectsMaskChange(*Output, mask.Mask, mask.Mask, bool, bool) {
}
func (noopScheduleInvalidator) InvalidateContainingNode(*Node) {}
func (noopScheduleInvalidator) InvalidateAll()                 {}
