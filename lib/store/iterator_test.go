package store

import (
	"testing"
)

func TestKeyIteratorWalk(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	it := NewKeyIterator(keys)

	if got := it.Remaining(); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}

	for i, want := range []string{"a", "b", "c"} {
		k, ok := it.Next()
		if !ok {
			t.Fatalf("Next() reported exhaustion at position %d", i)
		}
		if string(k) != want {
			t.Errorf("Next() = %q, want %q", k, want)
		}
		if got := it.Remaining(); got != 2-i {
			t.Errorf("Remaining() after %d steps = %d, want %d", i+1, got, 2-i)
		}
	}

	if _, ok := it.Next(); ok {
		t.Error("Next() on exhausted iterator must report ok=false")
	}
	if _, ok := it.Next(); ok {
		t.Error("Next() must keep reporting ok=false")
	}
}

func TestKeyIteratorEmpty(t *testing.T) {
	for _, keys := range [][][]byte{nil, {}} {
		it := NewKeyIterator(keys)
		if got := it.Remaining(); got != 0 {
			t.Errorf("Remaining() = %d, want 0", got)
		}
		if _, ok := it.Next(); ok {
			t.Error("Next() on empty iterator must report ok=false")
		}
	}
}
