package itemset

import "testing"

func TestAddDedupSorted(t *testing.T) {
	s := New(3, 1, 2, 1)
	if s.Size() != 3 {
		t.Fatalf("expected size 3, got %d", s.Size())
	}
	if got := s.Items(); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected sorted [1 2 3], got %v", got)
	}
}

func TestContainsSet(t *testing.T) {
	abc := New("a", "b", "c")
	ab := New("a", "b")
	if !abc.ContainsSet(ab) {
		t.Fatal("expected abc to contain ab")
	}
	if ab.ContainsSet(abc) {
		t.Fatal("ab should not contain abc")
	}
}

func TestUnionIntersection(t *testing.T) {
	a := New(1, 2, 3)
	b := New(2, 3, 4)

	u := a.Union(b)
	if u.Size() != 4 {
		t.Fatalf("expected union size 4, got %d", u.Size())
	}
	if a.Size() != 3 {
		t.Fatal("Union must not mutate receiver")
	}

	i := a.Intersection(b)
	if !i.Equal(New(2, 3)) {
		t.Fatalf("expected intersection {2,3}, got %v", i.Items())
	}

	c := a.Clone()
	c.RetainAll(b)
	if !c.Equal(New(2, 3)) {
		t.Fatalf("expected retainAll {2,3}, got %v", c.Items())
	}
	if a.Size() != 3 {
		t.Fatal("RetainAll must not mutate other operand's source")
	}
}

func TestCompareLex(t *testing.T) {
	a := New(1, 2)
	b := New(1, 2, 3)
	if a.Compare(b) >= 0 {
		t.Fatal("expected a < b (prefix is smaller)")
	}
	c := New(1, 3)
	if a.Compare(c) >= 0 {
		t.Fatal("expected {1,2} < {1,3}")
	}
}

func TestCompareHistory(t *testing.T) {
	h := NewHistory[string]()
	// first-seen order: c, a, b
	h.Observe("c")
	h.Observe("a")
	h.Observe("b")

	empty := Itemset[string]{}
	onlyC := New("c")
	if !LessHistory(h, empty, onlyC) {
		t.Fatal("empty itemset must be smaller than any non-empty one")
	}

	ca := New("c", "a")
	cb := New("c", "b")
	// rank(a)=1 < rank(b)=2, so {c,a} <h {c,b}
	if !LessHistory(h, ca, cb) {
		t.Fatal("expected {c,a} <h {c,b} by history rank")
	}
}

func TestSubsetsInDescendingLength(t *testing.T) {
	s := New(1, 2, 3)
	subs := s.SubsetsInDescendingLength()
	if len(subs) != 7 {
		t.Fatalf("expected 7 non-empty subsets of a 3-item set, got %d", len(subs))
	}
	if subs[0].Size() != 3 {
		t.Fatalf("expected largest subset first, got size %d", subs[0].Size())
	}
	if subs[len(subs)-1].Size() != 1 {
		t.Fatalf("expected smallest subset last, got size %d", subs[len(subs)-1].Size())
	}
}

func TestKeyEquality(t *testing.T) {
	a := New(3, 1, 2)
	b := New(1, 2, 3)
	if a.Key() != b.Key() {
		t.Fatal("equal itemsets (regardless of construction order) must share a key")
	}
	c := New(1, 2)
	if a.Key() == c.Key() {
		t.Fatal("different itemsets must not share a key")
	}
}
