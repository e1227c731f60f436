package bitvector

import "testing"

func TestAppendBitsAndGetBits(t *testing.T) {
	bv := New()
	positions := []int{}
	values := []uint64{5, 0, 63, 1 << 10, (1 << 12) - 1}
	widths := []int{3, 1, 6, 11, 12}

	for i, v := range values {
		positions = append(positions, bv.Len())
		bv.AppendBits(v, widths[i])
	}

	for i, v := range values {
		got, ok := bv.GetBits(positions[i], widths[i])
		if !ok || got != v {
			t.Fatalf("entry %d: got (%d,%v), want (%d,true)", i, got, ok, v)
		}
	}
}

func TestAppendBits64(t *testing.T) {
	bv := New()
	bv.AppendBits(^uint64(0), 64)
	got, ok := bv.GetBits(0, 64)
	if !ok || got != ^uint64(0) {
		t.Fatalf("got (%d,%v)", got, ok)
	}
}

func TestPushAndGet(t *testing.T) {
	bv := New()
	bits := []bool{true, false, true, true, false}
	for _, b := range bits {
		bv.Push(b)
	}
	for i, want := range bits {
		got, ok := bv.Get(i)
		if !ok || got != want {
			t.Fatalf("bit %d: got (%v,%v), want %v", i, got, ok, want)
		}
	}
	if _, ok := bv.Get(len(bits)); ok {
		t.Fatalf("expected out-of-range Get to fail")
	}
}

func TestSet(t *testing.T) {
	bv := WithZeroes(10)
	bv.Set(3, true)
	got, _ := bv.Get(3)
	if !got {
		t.Fatalf("expected bit 3 set")
	}
	bv.Set(3, false)
	got, _ = bv.Get(3)
	if got {
		t.Fatalf("expected bit 3 cleared")
	}
}

func TestNextOnePrevOne(t *testing.T) {
	bv := WithZeroes(70)
	bv.Set(5, true)
	bv.Set(64, true)
	bv.Set(69, true)

	j, ok := bv.NextOne(0)
	if !ok || j != 5 {
		t.Fatalf("NextOne(0) = (%d,%v), want (5,true)", j, ok)
	}
	j, ok = bv.NextOne(5)
	if !ok || j != 64 {
		t.Fatalf("NextOne(5) = (%d,%v), want (64,true)", j, ok)
	}
	j, ok = bv.NextOne(69)
	if ok {
		t.Fatalf("NextOne(69) = (%d,%v), want false", j, ok)
	}

	j, ok = bv.PrevOne(70)
	if !ok || j != 69 {
		t.Fatalf("PrevOne(70) = (%d,%v), want (69,true)", j, ok)
	}
	j, ok = bv.PrevOne(64)
	if !ok || j != 5 {
		t.Fatalf("PrevOne(64) = (%d,%v), want (5,true)", j, ok)
	}
	if _, ok := bv.PrevOne(0); ok {
		t.Fatalf("PrevOne(0) should fail")
	}
}

func TestNextOneAgreesWithPrevOne(t *testing.T) {
	bv := WithZeroes(200)
	set := []int{0, 1, 63, 64, 65, 127, 199}
	for _, i := range set {
		bv.Set(i, true)
	}
	for _, j := range set {
		if prev, ok := bv.PrevOne(j + 1); j == set[0] {
			_ = prev
			_ = ok
		}
	}
	for i := 1; i < len(set); i++ {
		j := set[i]
		prev, ok := bv.PrevOne(j)
		if !ok || prev != set[i-1] {
			t.Fatalf("PrevOne(%d) = (%d,%v), want (%d,true)", j, prev, ok, set[i-1])
		}
		next, ok := bv.NextOne(prev)
		if !ok || next != j {
			t.Fatalf("NextOne(%d) = (%d,%v), want (%d,true)", prev, next, ok, j)
		}
	}
}
