package addr

import "testing"

func TestSetInsertMerge(t *testing.T) {
	s := NewSet()
	s.Insert(NewRange(0x1000, 0x1010))
	s.Insert(NewRange(0x1010, 0x1020))
	s.Insert(NewRange(0x2000, 0x2010))

	if got := len(s.Ranges()); got != 2 {
		t.Fatalf("expected 2 disjoint ranges after adjacent merge, got %d: %v", got, s.Ranges())
	}
	if !s.Contains(0x1005) || !s.Contains(0x1015) {
		t.Fatalf("expected merged range to contain both halves")
	}
	if s.Contains(0x1020) {
		t.Fatalf("end is exclusive, 0x1020 must not be contained")
	}
}

func TestSetRemoveSplits(t *testing.T) {
	s := NewSet(NewRange(0x1000, 0x2000))
	s.Remove(NewRange(0x1500, 0x1600))

	if got := len(s.Ranges()); got != 2 {
		t.Fatalf("expected removal to split into 2 ranges, got %d: %v", got, s.Ranges())
	}
	if s.Contains(0x1550) {
		t.Fatalf("removed hole must not be contained")
	}
	if !s.Contains(0x1000) || !s.Contains(0x1999) {
		t.Fatalf("remaining edges must still be contained")
	}
}

func TestSetRemoveWholeRangeLeavesNoZeroSize(t *testing.T) {
	s := NewSet(NewRange(0x1000, 0x1010))
	s.Remove(NewRange(0x1000, 0x1010))
	if !s.IsEmpty() {
		t.Fatalf("expected set to be empty, got %v", s.Ranges())
	}
}

func TestRangeOf(t *testing.T) {
	s := NewSet(NewRange(0x1000, 0x1010), NewRange(0x2000, 0x2010))
	r := s.RangeOf(0x2005)
	if r == nil || r.Start != 0x2000 {
		t.Fatalf("expected range starting at 0x2000, got %v", r)
	}
	if s.RangeOf(0x1800) != nil {
		t.Fatalf("expected no range in the gap")
	}
}
