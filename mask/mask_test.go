package mask

import "testing"

func TestSetUnsetTest(t *testing.T) {
	m := New(10)
	if m.Test(3) {
		t.Fatalf("expected bit 3 unset initially")
	}
	m.Set(3)
	if !m.Test(3) {
		t.Fatalf("expected bit 3 set")
	}
	m.Unset(3)
	if m.Test(3) {
		t.Fatalf("expected bit 3 unset after Unset")
	}
}

func TestUnionIntersect(t *testing.T) {
	a := FromIndices(8, 0, 1, 2)
	b := FromIndices(8, 2, 3, 4)

	u := a.Union(b)
	want := FromIndices(8, 0, 1, 2, 3, 4)
	if !u.Equal(want) {
		t.Fatalf("Union = %v, want %v", u.SetIndices(), want.SetIndices())
	}

	i := a.Intersect(b)
	wantI := FromIndices(8, 2)
	if !i.Equal(wantI) {
		t.Fatalf("Intersect = %v, want %v", i.SetIndices(), wantI.SetIndices())
	}
}

func TestContainsWithEmptySentinel(t *testing.T) {
	empty := Mask{}
	other := FromIndices(4, 0)

	if !empty.Contains(Mask{}) {
		t.Fatalf("empty sentinel should contain itself")
	}
	if empty.Contains(other) || other.Contains(empty) {
		t.Fatalf("empty sentinel should not contain or be contained by a sized mask")
	}
}

func TestOverlapsAndAllOnesAllZeros(t *testing.T) {
	a := FromIndices(4, 1)
	b := FromIndices(4, 2)
	if a.Overlaps(b) {
		t.Fatalf("disjoint masks should not overlap")
	}
	b.Set(1)
	if !a.Overlaps(b) {
		t.Fatalf("masks sharing bit 1 should overlap")
	}

	zero := New(4)
	if !zero.IsAllZeros() {
		t.Fatalf("fresh mask should be all zeros")
	}
	full := All(4)
	if !full.IsAllOnes() {
		t.Fatalf("All(4) should be all ones")
	}
	if full.IsAllZeros() {
		t.Fatalf("All(4) should not be all zeros")
	}
}

func TestSetIndicesUnsetIndices(t *testing.T) {
	m := FromIndices(70, 0, 63, 64, 69)
	got := m.SetIndices()
	want := []int{0, 63, 64, 69}
	if len(got) != len(want) {
		t.Fatalf("SetIndices = %v, want %v", got, want)
	}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("SetIndices[%d] = %d, want %d", i, got[i], v)
		}
	}

	unset := New(4).UnsetIndices()
	if len(unset) != 4 {
		t.Fatalf("expected all 4 indices unset, got %v", unset)
	}
}

func TestRLEString(t *testing.T) {
	m := FromIndices(7, 3, 4, 5)
	got := m.RLEString()
	want := "0x3,1x3,0x1"
	if got != want {
		t.Fatalf("RLEString = %q, want %q", got, want)
	}
}

func TestHashStableAndDiscriminating(t *testing.T) {
	a := FromIndices(8, 1, 2)
	b := FromIndices(8, 1, 2)
	c := FromIndices(8, 1, 3)

	if a.Hash() != b.Hash() {
		t.Fatalf("equal masks must hash equal")
	}
	if a.Hash() == c.Hash() {
		t.Fatalf("different masks should (overwhelmingly likely) hash differently")
	}
}

func TestPopCountAndClone(t *testing.T) {
	m := FromIndices(10, 1, 2, 3)
	if m.PopCount() != 3 {
		t.Fatalf("PopCount = %d, want 3", m.PopCount())
	}
	clone := m.Clone()
	clone.Set(5)
	if m.Test(5) {
		t.Fatalf("mutating clone should not affect original")
	}
}

func TestEmptySentinelUnion(t *testing.T) {
	empty := Mask{}
	sized := FromIndices(4, 0, 2)

	if u := empty.Union(sized); !u.Equal(sized) {
		t.Fatalf("union of empty sentinel with sized mask should equal the sized mask")
	}
	if u := sized.Union(empty); !u.Equal(sized) {
		t.Fatalf("union of sized mask with empty sentinel should equal the sized mask")
	}
}
