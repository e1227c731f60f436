package lpm

import "testing"

func TestMatcherSingleByteTokensAlwaysMatch(t *testing.T) {
	m := NewMatcher(16)
	for b := 0; b < 256; b++ {
		m.Insert([]byte{byte(b)}, uint32(b))
	}
	for b := 0; b < 256; b++ {
		id, length, ok := m.FindLongestMatch([]byte{byte(b)})
		if !ok || length != 1 || id != uint32(b) {
			t.Fatalf("byte %d: got (%d,%d,%v)", b, id, length, ok)
		}
	}
}

func TestMatcherInsertAndFindShort(t *testing.T) {
	m := NewMatcher(16)
	for b := 0; b < 256; b++ {
		m.Insert([]byte{byte(b)}, uint32(b))
	}
	m.Insert([]byte("he"), 256)
	m.Insert([]byte("hell"), 257)

	id, length, ok := m.FindLongestMatch([]byte("hello"))
	if !ok || id != 257 || length != 4 {
		t.Fatalf("got (%d,%d,%v), want (257,4,true)", id, length, ok)
	}
}

func TestMatcherInsertAndFindLong(t *testing.T) {
	m := NewMatcher(16)
	for b := 0; b < 256; b++ {
		m.Insert([]byte{byte(b)}, uint32(b))
	}
	m.Insert([]byte("0123456789abcdef"), 256)

	id, length, ok := m.FindLongestMatch([]byte("0123456789abcdefGHI"))
	if !ok || id != 256 || length != 16 {
		t.Fatalf("got (%d,%d,%v), want (256,16,true)", id, length, ok)
	}
}

func TestMatcherBucketOverflow(t *testing.T) {
	m := NewMatcher(16)
	m.bucketSizeLimit = 2
	ok1 := m.Insert([]byte("aaaaaaaaX"), 0)
	ok2 := m.Insert([]byte("aaaaaaaaY"), 1)
	ok3 := m.Insert([]byte("aaaaaaaaZ"), 2)
	if !ok1 || !ok2 {
		t.Fatalf("expected first two inserts to succeed")
	}
	if ok3 {
		t.Fatalf("expected third insert to report bucket overflow")
	}
}

func TestStaticMatcherAgreesWithMutable(t *testing.T) {
	m := NewMatcher(16)
	for b := 0; b < 256; b++ {
		m.Insert([]byte{byte(b)}, uint32(b))
	}
	m.Insert([]byte("he"), 256)
	m.Insert([]byte("hell"), 257)
	m.Insert([]byte("hello world!"), 258)

	sm := m.Finalize()

	cases := [][]byte{
		[]byte("h"),
		[]byte("he"),
		[]byte("hel"),
		[]byte("hell"),
		[]byte("hello"),
		[]byte("hello world!"),
		[]byte("xyz"),
	}
	for _, haystack := range cases {
		wantID, wantLen, wantOK := m.FindLongestMatch(haystack)
		gotID, gotLen, gotOK := sm.FindLongestMatch(haystack)
		if wantID != gotID || wantLen != gotLen || wantOK != gotOK {
			t.Fatalf("haystack %q: mutable=(%d,%d,%v) static=(%d,%d,%v)",
				haystack, wantID, wantLen, wantOK, gotID, gotLen, gotOK)
		}
	}
}
