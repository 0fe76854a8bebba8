// Package specreg implements the input/output spec registry: a
// small concurrent refcounted interner keyed by the full (input specs,
// output specs) pair, so structurally identical nodes share one SharedSpecs
// object instead of each allocating its own.
package specreg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vdfkit/vdf/debug"
	"github.com/vdfkit/vdf/diag"
)

// InputSpec describes one declared input slot shared by every node that
// acquires the same SharedSpecs.
type InputSpec struct {
	Name string
	// ReadWrite marks this input as associated with an output of the same
	// node.
	ReadWrite bool
	// AssociatedOutput is the output name this input is paired with when
	// ReadWrite is true; empty otherwise.
	AssociatedOutput string
}

// OutputSpec describes one declared output slot.
type OutputSpec struct {
	Name string
}

// SharedSpecs is the immutable, refcounted (inputs, outputs) pair acquired
// via Registry.Acquire and released via Registry.Release.
type SharedSpecs struct {
	Inputs  []InputSpec
	Outputs []OutputSpec

	key string
}

// InputByName returns the InputSpec with the given name, or false if none.
func (s *SharedSpecs) InputByName(name string) (InputSpec, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}

// OutputByName returns the OutputSpec with the given name, or false if none.
func (s *SharedSpecs) OutputByName(name string) (OutputSpec, bool) {
	for _, out := range s.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputSpec{}, false
}

type entry struct {
	specs    *SharedSpecs
	refcount atomic.Int64
}

// Registry is a refcounted interner over structurally identical
// (input, output) shapes. The zero value is not usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	provider diag.Provider
}

// New returns an empty Registry. A nil provider disables diagnostics.
func New(provider diag.Provider) *Registry {
	if provider == nil {
		provider = diag.NopProvider{}
	}
	return &Registry{entries: make(map[string]*entry), provider: provider}
}

func computeKey(inputs []InputSpec, outputs []OutputSpec) string {
	var b strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&b, "I:%s:%v:%s|", in.Name, in.ReadWrite, in.AssociatedOutput)
	}
	b.WriteByte(';')
	for _, out := range outputs {
		fmt.Fprintf(&b, "O:%s|", out.Name)
	}
	return b.String()
}

// Acquire either creates a new entry with refcount 1 or increments the
// refcount of an existing structurally-identical entry, returning the
// shared object either way. The common case bumps an atomic counter under
// a non-exclusive lock; only creating a brand-new entry falls back to the
// exclusive lock.
func (r *Registry) Acquire(inputs []InputSpec, outputs []OutputSpec) *SharedSpecs {
	key := computeKey(inputs, outputs)

	r.mu.RLock()
	if e, ok := r.entries[key]; ok {
		e.refcount.Add(1)
		r.mu.RUnlock()
		return e.specs
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.refcount.Add(1)
		return e.specs
	}

	specs := &SharedSpecs{Inputs: inputs, Outputs: outputs, key: key}
	e := &entry{specs: specs}
	e.refcount.Store(1)
	r.entries[key] = e
	return specs
}

// Release atomically decrements specs' refcount. If the decrement reaches
// zero, Release acquires exclusive access and erases the entry only if the
// refcount is still zero at that point — another goroutine may have
// resurrected it via Acquire in between, which is exactly the
// revive-after-erase race the two-phase protocol exists to avoid.
//
// Passing a *SharedSpecs not obtained from this Registry (or already fully
// released) is a programmer-contract bug: it is reported as an
// unrecoverable invariant via diag and, when debug.Enabled(),
// panics.
func (r *Registry) Release(specs *SharedSpecs) {
	r.mu.RLock()
	e, ok := r.entries[specs.key]
	r.mu.RUnlock()

	if !ok || e.specs != specs {
		diag.Emit(context.Background(), r.provider, diag.Diagnostic{
			Kind:    diag.KindUnrecoverable,
			Op:      "Registry.Release",
			Message: "released specs pointer does not match registry entry",
		})
		debug.Assert(false, "specreg: ReleaseSharedSpecs ref pointer mismatch")
		return
	}

	if e.refcount.Add(-1) > 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[specs.key]; ok && cur == e && e.refcount.Load() == 0 {
		delete(r.entries, specs.key)
	}
}

// Len returns the number of distinct SharedSpecs currently interned.
// Intended for tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RefCount returns the current refcount for specs, or 0 if not present.
// Intended for tests.
func (r *Registry) RefCount(specs *SharedSpecs) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[specs.key]
	if !ok {
		return 0
	}
	return e.refcount.Load()
}
