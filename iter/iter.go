// Package iter implements the engine's family of forward iterators over
// masked input/output storage: pull-based Next/Index/Value rather than an
// increment-then-dereference shape — idiomatic Go has no operator
// overloading, so a forward iterator without post-increment falls out
// naturally from a bool-returning Next() the same way database/sql's
// Rows.Next()/Rows.Scan() or bufio.Scanner.Scan()/Scanner.Text() already
// work.
//
// Grounded on original_source/pxr/exec/vdf/{readIterator,readWriteIterator,
// maskedIterator,countingIterator,iteratorRange}.h: a read iterator walks
// every connection on an input in order, unfolding a 1x1 boxed connection's
// stored sequence in place; a read-write iterator walks an output's affects
// mask (or its full extent, if it has none) exactly once; a masked
// iterator composes over either, filtering to positions set (or unset) in
// a visit mask; a weighted iterator composes over any of the above,
// looking up k sparse per-position weights alongside the primary walk.
package iter

import (
	stditer "iter"

	"github.com/vdfkit/vdf/mask"
)

// Forward is the minimal pull-based cursor every iterator in this package
// satisfies: advance, then read.
type Forward[T any] interface {
	Next() bool
	Value() T
}

// IndexedForward is a Forward iterator that also reports the logical
// position (Vdf_GetIteratorIndex) it currently sits on. MaskedIterator and
// WeightedIterator compose over this rather than over a concrete iterator
// type, so either can wrap a ReadIterator, a ReadWriteIterator, or each
// other.
type IndexedForward[T any] interface {
	Forward[T]
	Index() int
}

// Source is one connection's contribution to a ReadIterator: the mask
// selecting which logical positions it provides, and the values backing
// those positions. Dense holds one value per set mask bit, in mask
// iteration order. Boxed is set instead of Dense for a 1x1-masked
// connection whose stored value is itself a sequence — ReadIterator
// unfolds Boxed in full, ignoring the single mask bit, exactly as
// VdfReadIterator::ComputeSize's "fast path for single connection, boxed
// values" and its per-connection loop both special-case a 1x1 all-ones
// mask.
type Source[T any] struct {
	Mask  mask.Mask
	Dense []T
	Boxed []T
}

func (s Source[T]) isBoxedConnection() bool {
	return s.Mask.Size() == 1 && s.Mask.IsAllOnes() && s.Boxed != nil
}

func (s Source[T]) empty() bool {
	if s.isBoxedConnection() {
		return len(s.Boxed) == 0
	}
	return s.Mask.PopCount() == 0
}

// ReadIterator streams the values provided by a sequence of connections in
// order, unfolding any 1x1 boxed connection's sequence as it goes.
type ReadIterator[T any] struct {
	sources []Source[T]
	conn    int
	setIdx  []int
	pos     int
	valid   bool
}

// NewReadIterator returns a ReadIterator over sources, positioned before
// the first provided value.
func NewReadIterator[T any](sources []Source[T]) *ReadIterator[T] {
	return &ReadIterator[T]{sources: sources, conn: -1}
}

// Next advances to the next provided value, returning false once every
// source connection is exhausted.
func (it *ReadIterator[T]) Next() bool {
	if it.conn == -1 {
		it.valid = it.advanceConnection(0)
		return it.valid
	}

	if it.sources[it.conn].isBoxedConnection() {
		it.pos++
		if it.pos < len(it.sources[it.conn].Boxed) {
			return true
		}
		it.valid = it.advanceConnection(it.conn + 1)
		return it.valid
	}

	it.pos++
	if it.pos < len(it.setIdx) {
		return true
	}
	it.valid = it.advanceConnection(it.conn + 1)
	return it.valid
}

// advanceConnection scans forward from connIdx for the first connection
// that provides at least one value, positioning at its first element.
func (it *ReadIterator[T]) advanceConnection(connIdx int) bool {
	for i := connIdx; i < len(it.sources); i++ {
		s := it.sources[i]
		if s.empty() {
			continue
		}
		it.conn = i
		it.pos = 0
		if !s.isBoxedConnection() {
			it.setIdx = s.Mask.SetIndices()
		} else {
			it.setIdx = nil
		}
		return true
	}
	it.conn = -1
	return false
}

// Index returns the logical position of the current value: the set mask
// bit for a dense connection, or the 0-based offset into the boxed
// sequence for a boxed one.
func (it *ReadIterator[T]) Index() int {
	if !it.valid {
		return -1
	}
	if it.sources[it.conn].isBoxedConnection() {
		return it.pos
	}
	return it.setIdx[it.pos]
}

// Value returns the current element. Calling Value before a successful
// Next, or after Next returns false, is a programmer error; it returns the
// zero value in that case rather than panicking, since this package has no
// diag.Provider of its own to report through.
func (it *ReadIterator[T]) Value() T {
	if !it.valid {
		var zero T
		return zero
	}
	s := it.sources[it.conn]
	if s.isBoxedConnection() {
		return s.Boxed[it.pos]
	}
	return s.Dense[it.pos]
}

// ComputeSize returns the total number of logical values this iterator
// will walk across all of its source connections, without walking them.
func (it *ReadIterator[T]) ComputeSize() int {
	if len(it.sources) == 0 {
		return 0
	}

	// Fast path: a single connection with a boxed value contributes its
	// full boxed length regardless of mask size.
	if len(it.sources) == 1 && it.sources[0].isBoxedConnection() {
		return len(it.sources[0].Boxed)
	}

	size := 0
	for _, s := range it.sources {
		if s.isBoxedConnection() {
			size += len(s.Boxed)
			continue
		}
		size += s.Mask.PopCount()
	}
	return size
}

// AdvanceToEnd advances the iterator to its exhausted state.
func (it *ReadIterator[T]) AdvanceToEnd() {
	it.conn = -1
	it.pos = 0
	it.setIdx = nil
	it.valid = false
}

// IsAtEnd reports whether the iterator has been fully walked.
func (it *ReadIterator[T]) IsAtEnd() bool { return !it.valid }

// ReadWriteIterator walks the positions an output's affects mask selects —
// or, when the affects mask is absent (the empty-sentinel Mask), the
// output's full value extent — exactly once, exposing read and in-place
// write access at each position.
type ReadWriteIterator[T any] struct {
	values  []T
	indices []int
	pos     int
	valid   bool
}

// NewReadWriteIterator returns a ReadWriteIterator over values, limited to
// the positions affects selects. An affects whose size doesn't match
// len(values) — including the empty sentinel — is treated as "no affects
// mask": every position is visited, matching
// VdfReadWriteIterator::_Initialize's fallback to a freshly complemented
// bitset when the affects mask size mismatches the accessor's value count.
func NewReadWriteIterator[T any](values []T, affects mask.Mask) *ReadWriteIterator[T] {
	var indices []int
	if affects.IsEmptySentinel() || affects.Size() != len(values) {
		indices = make([]int, len(values))
		for i := range indices {
			indices[i] = i
		}
	} else {
		indices = affects.SetIndices()
	}
	return &ReadWriteIterator[T]{values: values, indices: indices, pos: -1}
}

// Allocate creates a boxed output of count default-initialized elements
// and returns a ReadWriteIterator positioned at its beginning. Values
// retrieves the allocated backing slice once the caller is done writing
// through the iterator.
func Allocate[T any](count int) *ReadWriteIterator[T] {
	return NewReadWriteIterator(make([]T, count), mask.Mask{})
}

// Next advances to the next selected position, returning false once
// exhausted.
func (it *ReadWriteIterator[T]) Next() bool {
	it.pos++
	it.valid = it.pos < len(it.indices)
	return it.valid
}

// Index returns the logical position the iterator currently sits on.
func (it *ReadWriteIterator[T]) Index() int {
	if !it.valid {
		return -1
	}
	return it.indices[it.pos]
}

// Value returns the current element.
func (it *ReadWriteIterator[T]) Value() T {
	if !it.valid {
		var zero T
		return zero
	}
	return it.values[it.indices[it.pos]]
}

// Set overwrites the current element in place. A no-op if called out of
// bounds.
func (it *ReadWriteIterator[T]) Set(v T) {
	if it.valid {
		it.values[it.indices[it.pos]] = v
	}
}

// Values returns the backing slice this iterator reads and writes
// through, including any positions not selected by its affects mask.
func (it *ReadWriteIterator[T]) Values() []T { return it.values }

// IsAtEnd reports whether the iterator has been fully walked.
func (it *ReadWriteIterator[T]) IsAtEnd() bool { return !it.valid }

// MaskMode selects which side of a visit mask MaskedIterator walks.
// Grounded on VdfMaskedIteratorMode.
type MaskMode int

const (
	// VisitSet visits only the positions set in the visit mask. This is
	// the default for VdfMaskedReadIterator/VdfMaskedReadWriteIterator.
	VisitSet MaskMode = iota
	// VisitUnset visits only the positions unset in the visit mask,
	// skipping the ones the mask selects.
	VisitUnset
)

// MaskedIterator composes over any IndexedForward iterator, restricting it
// to the positions a visit mask selects (or the positions it does not,
// under VisitUnset).
type MaskedIterator[T any] struct {
	inner     IndexedForward[T]
	visitMask mask.Mask
	mode      MaskMode
	valid     bool
}

// NewMaskedIterator wraps inner, filtering its positions against
// visitMask under mode.
func NewMaskedIterator[T any](inner IndexedForward[T], visitMask mask.Mask, mode MaskMode) *MaskedIterator[T] {
	return &MaskedIterator[T]{inner: inner, visitMask: visitMask, mode: mode}
}

// Next advances the wrapped iterator until it sits on a position the
// visit mask (and mode) select, or the wrapped iterator is exhausted. An
// empty visit mask never selects anything, matching maskedIterator.h's
// immediate advance-to-end for a zero-size visitMask.
func (it *MaskedIterator[T]) Next() bool {
	if it.visitMask.Size() == 0 {
		it.valid = false
		return false
	}
	for it.inner.Next() {
		inMask := it.visitMask.Test(it.inner.Index())
		visit := inMask
		if it.mode == VisitUnset {
			visit = !inMask
		}
		if visit {
			it.valid = true
			return true
		}
	}
	it.valid = false
	return false
}

// Index returns the position the iterator currently sits on.
func (it *MaskedIterator[T]) Index() int {
	if !it.valid {
		return -1
	}
	return it.inner.Index()
}

// Value returns the current element.
func (it *MaskedIterator[T]) Value() T {
	if !it.valid {
		var zero T
		return zero
	}
	return it.inner.Value()
}

// IsAtEnd reports whether the iterator has been fully walked.
func (it *MaskedIterator[T]) IsAtEnd() bool { return !it.valid }

// IndexedWeights is a sparse (index, weight) vector: explicit weight
// values at a handful of indices, with weight 0 implied everywhere else.
// Grounded on VdfIndexedWeights as exercised by testVdfIndexedWeights.cpp:
// built by Add calls in increasing index order, queried by the nearest
// explicit entry at or after a hint so a WeightedIterator can skip a long
// unset span in one step instead of probing one index at a time.
type IndexedWeights struct {
	indices []int
	weights []float64
}

// Add appends an explicit weight at index. Indices must be supplied in
// non-decreasing order.
func (w *IndexedWeights) Add(index int, weight float64) {
	w.indices = append(w.indices, index)
	w.weights = append(w.weights, weight)
}

// firstAtOrAfter returns the position of the first explicit entry with
// index >= target, searching forward from hint. Returns len(w.indices) if
// none exists. Mirrors VdfIndexedWeights::GetFirstDataIndex's two-argument
// overload that resumes from a previously discovered position.
func (w *IndexedWeights) firstAtOrAfter(target, hint int) int {
	if hint < 0 || hint > len(w.indices) {
		hint = 0
	}
	i := hint
	for i < len(w.indices) && w.indices[i] < target {
		i++
	}
	return i
}

// weightAt returns the explicit weight at index (or 0 if none was set),
// plus the position reached, to be passed back as the next call's hint.
func (w *IndexedWeights) weightAt(index, hint int) (float64, int) {
	pos := w.firstAtOrAfter(index, hint)
	if pos < len(w.indices) && w.indices[pos] == index {
		return w.weights[pos], pos
	}
	return 0, pos
}

// WeightedIterator composes over any IndexedForward iterator, exposing k
// numerical weight values at each position, drawn from k sparse
// IndexedWeights inputs indexed consistently with the primary iteration.
type WeightedIterator[T any] struct {
	inner   IndexedForward[T]
	weights []*IndexedWeights
	hints   []int
}

// NewWeightedIterator wraps inner with the given weight sources, indexed
// 0..len(weights)-1 for Weight.
func NewWeightedIterator[T any](inner IndexedForward[T], weights ...*IndexedWeights) *WeightedIterator[T] {
	return &WeightedIterator[T]{inner: inner, weights: weights, hints: make([]int, len(weights))}
}

// Next advances the wrapped iterator.
func (it *WeightedIterator[T]) Next() bool { return it.inner.Next() }

// Index returns the position the iterator currently sits on.
func (it *WeightedIterator[T]) Index() int { return it.inner.Index() }

// Value returns the current element from the wrapped iterator.
func (it *WeightedIterator[T]) Value() T { return it.inner.Value() }

// Weight returns the i-th weight source's value at the iterator's current
// position, defaulting to 0 when that source has no explicit entry there.
// Successive calls at increasing positions only scan forward over the
// span since the last lookup.
func (it *WeightedIterator[T]) Weight(i int) float64 {
	w, pos := it.weights[i].weightAt(it.Index(), it.hints[i])
	it.hints[i] = pos
	return w
}

// CountingIterator is a boundless forward iterator over consecutive
// integers, with no backing storage. Grounded on Vdf_CountingIterator.
type CountingIterator struct {
	cur int
}

// NewCountingIterator returns a CountingIterator that will yield start on
// its first Next.
func NewCountingIterator(start int) *CountingIterator {
	return &CountingIterator{cur: start - 1}
}

// Next advances to the next integer. Always returns true; CountingIterator
// has no inherent end, matching the original's use as the "begin" half of
// an explicit {begin, end} pair rather than a self-terminating sequence.
func (it *CountingIterator) Next() bool {
	it.cur++
	return true
}

// Index returns the current integer.
func (it *CountingIterator) Index() int { return it.cur }

// Value returns the current integer (identical to Index for a counting
// iterator).
func (it *CountingIterator) Value() int { return it.cur }

// Range wraps a repeatable iterator construction so it can participate in
// Go's range-over-func iteration and in building slices, mirroring
// VdfIteratorRange's STL-range-based-for support over a {begin, end} pair.
// new is called once per traversal to produce a fresh cursor positioned at
// the range's beginning.
type Range[T any] struct {
	new func() Forward[T]
}

// NewRange returns a Range that calls new to construct a fresh iterator
// each time it is walked.
func NewRange[T any](new func() Forward[T]) Range[T] {
	return Range[T]{new: new}
}

// IsEmpty reports whether the range contains no elements.
func (r Range[T]) IsEmpty() bool {
	it := r.new()
	return !it.Next()
}

// Values returns a range-over-func sequence walking every element in
// order, suitable for `for v := range r.Values() { ... }`.
func (r Range[T]) Values() stditer.Seq[T] {
	return func(yield func(T) bool) {
		it := r.new()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Collect copies the whole range into a slice, matching the
// `std::vector<T> values(range.begin(), range.end())` idiom.
func (r Range[T]) Collect() []T {
	var out []T
	for v := range r.Values() {
		out = append(out, v)
	}
	return out
}

// NewReadRange returns a Range walking a ReadIterator over sources,
// grounded on VdfReadIteratorRange.
func NewReadRange[T any](sources []Source[T]) Range[T] {
	return NewRange(func() Forward[T] { return NewReadIterator(sources) })
}

// NewReadWriteRange returns a Range walking a ReadWriteIterator over
// values restricted to affects, grounded on VdfReadWriteIteratorRange.
func NewReadWriteRange[T any](values []T, affects mask.Mask) Range[T] {
	return NewRange(func() Forward[T] { return NewReadWriteIterator(values, affects) })
}

// CountingRange returns a Range walking the integers [lo, hi).
func CountingRange(lo, hi int) Range[int] {
	return NewRange(func() Forward[int] { return &boundedCounter{cur: lo - 1, hi: hi} })
}

// boundedCounter is CountingIterator with an explicit upper bound, giving
// CountingRange a self-terminating sequence without requiring callers to
// construct and compare a separate "end" counting iterator the way
// VdfIteratorRange's constructor does via AdvanceToEnd.
type boundedCounter struct {
	cur, hi int
}

func (c *boundedCounter) Next() bool {
	c.cur++
	return c.cur < c.hi
}

func (c *boundedCounter) Value() int { return c.cur }
