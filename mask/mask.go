// Package mask implements the fixed-size boolean bitset that selects which
// indices of a masked output carry meaningful data.
//
// A Mask's size is fixed at construction. The zero-size Mask (Mask{}) is the
// distinguished "empty mask" used throughout the engine to mean "size not
// inferrable" — e.g. a dependency record for an output that currently has
// no connections. Implemented directly over []uint64 words using math/bits;
// see DESIGN.md for why no third-party dependency could serve this concern.
package mask

import (
	"fmt"
	"hash/maphash"
	"math/bits"
	"strings"
)

const wordBits = 64

// Mask is a fixed-size sequence of bits. The zero value is the size-0
// "empty mask".
type Mask struct {
	size  int
	words []uint64
}

// New returns a Mask of the given size with every bit unset.
func New(size int) Mask {
	if size <= 0 {
		return Mask{}
	}
	return Mask{size: size, words: make([]uint64, wordCount(size))}
}

// All returns a Mask of the given size with every bit set.
func All(size int) Mask {
	m := New(size)
	if size == 0 {
		return m
	}
	for i := range m.words {
		m.words[i] = ^uint64(0)
	}
	m.clearTail()
	return m
}

// FromIndices returns a Mask of the given size with exactly the supplied
// indices set. Indices outside [0, size) are ignored.
func FromIndices(size int, indices ...int) Mask {
	m := New(size)
	for _, idx := range indices {
		m.Set(idx)
	}
	return m
}

func wordCount(size int) int {
	return (size + wordBits - 1) / wordBits
}

// clearTail zeroes the unused high bits in the final word so popcount,
// equality, and all-ones queries aren't polluted by padding bits.
func (m *Mask) clearTail() {
	if m.size == 0 {
		return
	}
	rem := m.size % wordBits
	if rem == 0 {
		return
	}
	last := len(m.words) - 1
	m.words[last] &= (uint64(1) << rem) - 1
}

// Size returns the mask's fixed bit width.
func (m Mask) Size() int { return m.size }

// IsEmptySentinel reports whether m is the distinguished size-0 mask used
// to mean "size not inferrable".
func (m Mask) IsEmptySentinel() bool { return m.size == 0 }

func wordIndex(i int) (word, bit int) { return i / wordBits, i % wordBits }

// Set marks index i as selected. No-op if i is out of range.
func (m Mask) Set(i int) {
	if i < 0 || i >= m.size {
		return
	}
	w, b := wordIndex(i)
	m.words[w] |= uint64(1) << b
}

// Unset clears index i. No-op if i is out of range.
func (m Mask) Unset(i int) {
	if i < 0 || i >= m.size {
		return
	}
	w, b := wordIndex(i)
	m.words[w] &^= uint64(1) << b
}

// Test reports whether index i is set. Out-of-range indices are false.
func (m Mask) Test(i int) bool {
	if i < 0 || i >= m.size {
		return false
	}
	w, b := wordIndex(i)
	return m.words[w]&(uint64(1)<<b) != 0
}

// Clone returns an independent copy of m.
func (m Mask) Clone() Mask {
	if m.size == 0 {
		return Mask{}
	}
	words := make([]uint64, len(m.words))
	copy(words, m.words)
	return Mask{size: m.size, words: words}
}

// sameSizeOrPanic is used internally by binary operators; mismatched sizes
// are a programmer-contract bug the caller (network/traverse) is expected
// to have already diagnosed, so this package asserts rather than silently
// truncating.
func sameSizeOrPanic(a, b Mask, op string) {
	if a.size != b.size {
		panic(fmt.Sprintf("mask: %s requires equal sizes, got %d and %d", op, a.size, b.size))
	}
}

// Union returns a new Mask that is the bitwise OR of m and other. Both must
// have equal, non-zero size; the empty sentinel unions with anything by
// returning the other mask unchanged, matching its "size not inferrable"
// semantics.
func (m Mask) Union(other Mask) Mask {
	if m.IsEmptySentinel() {
		return other.Clone()
	}
	if other.IsEmptySentinel() {
		return m.Clone()
	}
	sameSizeOrPanic(m, other, "Union")
	result := New(m.size)
	for i := range result.words {
		result.words[i] = m.words[i] | other.words[i]
	}
	return result
}

// Intersect returns a new Mask that is the bitwise AND of m and other.
func (m Mask) Intersect(other Mask) Mask {
	if m.IsEmptySentinel() || other.IsEmptySentinel() {
		return Mask{}
	}
	sameSizeOrPanic(m, other, "Intersect")
	result := New(m.size)
	for i := range result.words {
		result.words[i] = m.words[i] & other.words[i]
	}
	return result
}

// Overlaps reports whether m and other share at least one set bit. The
// empty sentinel never overlaps — "no affects mask" is treated as
// always-affective at a higher layer, not here; Overlaps itself is a
// literal bit test.
func (m Mask) Overlaps(other Mask) bool {
	if m.IsEmptySentinel() || other.IsEmptySentinel() {
		return false
	}
	sameSizeOrPanic(m, other, "Overlaps")
	for i := range m.words {
		if m.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// Contains reports whether every bit set in other is also set in m
// (m ⊇ other). Two empty sentinels contain each other; the empty sentinel
// contains nothing else and is contained by nothing else, matching "size
// not inferrable" — containment against it is undefined at the bit level
// and callers (traversal accumulators) special-case it explicitly.
func (m Mask) Contains(other Mask) bool {
	if m.IsEmptySentinel() && other.IsEmptySentinel() {
		return true
	}
	if m.IsEmptySentinel() || other.IsEmptySentinel() {
		return false
	}
	sameSizeOrPanic(m, other, "Contains")
	for i := range m.words {
		if m.words[i]&other.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Equal reports whether m and other have the same size and the same bits set.
func (m Mask) Equal(other Mask) bool {
	if m.size != other.size {
		return false
	}
	for i := range m.words {
		if m.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// IsAllZeros reports whether no bit is set. The empty sentinel is
// considered all-zeros.
func (m Mask) IsAllZeros() bool {
	for _, w := range m.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// IsAllOnes reports whether every bit in [0, Size()) is set. A size-0 mask
// (including the empty sentinel) is vacuously all-ones.
func (m Mask) IsAllOnes() bool {
	if m.size == 0 {
		return true
	}
	full := New(m.size)
	for i := range full.words {
		full.words[i] = ^uint64(0)
	}
	full.clearTail()
	return m.Equal(full)
}

// PopCount returns the number of set bits.
func (m Mask) PopCount() int {
	n := 0
	for _, w := range m.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// SetIndices returns the sorted positions of every set bit.
func (m Mask) SetIndices() []int {
	out := make([]int, 0, m.PopCount())
	for wi, w := range m.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			idx := wi*wordBits + b
			if idx < m.size {
				out = append(out, idx)
			}
			w &= w - 1
		}
	}
	return out
}

// UnsetIndices returns the sorted positions of every unset bit within
// [0, Size()).
func (m Mask) UnsetIndices() []int {
	out := make([]int, 0, m.size-m.PopCount())
	for i := 0; i < m.size; i++ {
		if !m.Test(i) {
			out = append(out, i)
		}
	}
	return out
}

// RLEString renders m as a run-length-encoded debug string, e.g. "0x3,1x4"
// meaning 3 unset bits followed by 4 set bits. Used by diagnostics and
// tests, never by the engine's control flow.
func (m Mask) RLEString() string {
	if m.size == 0 {
		return "<empty>"
	}
	var b strings.Builder
	cur := m.Test(0)
	run := 1
	flush := func() {
		if cur {
			fmt.Fprintf(&b, "1x%d", run)
		} else {
			fmt.Fprintf(&b, "0x%d", run)
		}
	}
	for i := 1; i < m.size; i++ {
		bit := m.Test(i)
		if bit == cur {
			run++
			continue
		}
		flush()
		b.WriteByte(',')
		cur = bit
		run = 1
	}
	flush()
	return b.String()
}

var hashSeed = maphash.MakeSeed()

// Hash returns a hash of the mask's size and bit content, suitable for use
// as a map key component.
func (m Mask) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	var sizeBuf [8]byte
	putUint64(sizeBuf[:], uint64(m.size))
	h.Write(sizeBuf[:])
	for _, w := range m.words {
		var buf [8]byte
		putUint64(buf[:], w)
		h.Write(buf[:])
	}
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
