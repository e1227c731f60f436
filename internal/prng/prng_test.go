package prng

import "testing"

func TestDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("same seed produced divergent sequences at step %d", i)
		}
	}
}

func TestShufflePermutes(t *testing.T) {
	g := New(7)
	s := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	g.Shuffle(s)

	seen := make(map[int]bool, len(s))
	for _, v := range s {
		seen[v] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle lost elements: %v", s)
	}
}
