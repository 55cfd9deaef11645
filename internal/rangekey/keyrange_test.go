package rangekey

import (
	"math/big"
	"testing"
)

func TestSplitCoversRangeExactly(t *testing.T) {
	r, err := New(big.NewInt(1), big.NewInt(1000))
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{1, 3, 7, 16, 64} {
		parts, err := r.Split(n)
		if err != nil {
			t.Fatal(err)
		}
		assertDisjointCover(t, r, parts)
	}
}

func assertDisjointCover(t *testing.T, r Range, parts []Range) {
	t.Helper()
	cursor := new(big.Int).Set(r.Lo)
	for i, p := range parts {
		if p.Lo.Cmp(cursor) != 0 {
			t.Fatalf("part %d: expected Lo=%s got %s (gap or overlap)", i, cursor, p.Lo)
		}
		if p.Lo.Cmp(p.Hi) > 0 {
			t.Fatalf("part %d: Lo > Hi", i)
		}
		cursor = new(big.Int).Add(p.Hi, big.NewInt(1))
	}
	if cursor.Cmp(new(big.Int).Add(r.Hi, big.NewInt(1))) != 0 {
		t.Fatalf("parts did not cover up to Hi: ended at %s, want %s", cursor, new(big.Int).Add(r.Hi, big.NewInt(1)))
	}
}

func TestSplitMoreThanSize(t *testing.T) {
	r, err := New(big.NewInt(1), big.NewInt(5))
	if err != nil {
		t.Fatal(err)
	}
	parts, err := r.Split(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 5 {
		t.Fatalf("expected 5 unit chunks, got %d", len(parts))
	}
	assertDisjointCover(t, r, parts)
}

func TestNewRejectsLoGreaterThanHi(t *testing.T) {
	if _, err := New(big.NewInt(10), big.NewInt(1)); err == nil {
		t.Fatal("expected error for lo>hi")
	}
}

func TestSplitBySize(t *testing.T) {
	r, err := New(big.NewInt(0), big.NewInt(99))
	if err != nil {
		t.Fatal(err)
	}
	var p Partitioner
	parts, err := p.SplitBySize(r, big.NewInt(30))
	if err != nil {
		t.Fatal(err)
	}
	assertDisjointCover(t, r, parts)
	if len(parts) != 4 {
		t.Fatalf("expected 4 chunks of size 30 covering 100, got %d", len(parts))
	}
}
