// Package debug holds the engine's single runtime assertion switch.
//
// Covers the checks that panic "in debug builds" when they fail
// (read-write mask containment on Connect, the spec registry's
// released-pointer check, ReorderInputConnections' permutation check);
// each failure is reported as a diagnostic before Assert is reached.
// Modeled as a runtime flag rather than a Go build tag: these are
// runtime-configurable assertions, not code eliminated at compile time, and
// a runtime flag lets tests flip it on unconditionally.
package debug

import "sync/atomic"

var enabled atomic.Bool

// Enabled reports whether debug-mode invariant checks are active.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns debug-mode invariant checks on or off. Tests typically
// call SetEnabled(true) in TestMain or per-test to exercise the checks;
// production callers leave it at the default (false).
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Assert panics with msg if debug mode is enabled and ok is false. Used for
// the "unrecoverable invariant" class of checks: callers must already have
// emitted a diag.Diagnostic before calling Assert, since Assert itself only
// aborts the process — it does not log.
func Assert(ok bool, msg string) {
	if !ok && Enabled() {
		panic(msg)
	}
}
