package bloom

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func randItems(n int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	items := make([][]byte, n)
	for i := range items {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, r.Uint64())
		items[i] = b
	}
	return items
}

// P7: every inserted element tests positive afterward (no false negatives).
func TestP7NoFalseNegativesFilter(t *testing.T) {
	items := randItems(2000, 1)
	f := NewFilter(len(items), 0.01)
	for _, it := range items {
		f.Add(it)
	}
	for _, it := range items {
		if !f.Test(it) {
			t.Fatalf("false negative for inserted item")
		}
	}
}

func TestP7NoFalseNegativesCascade(t *testing.T) {
	items := randItems(2000, 2)
	c := NewCascade(len(items), 0.001, 3)
	for _, it := range items {
		c.Add(it)
	}
	for _, it := range items {
		if !c.Test(it) {
			t.Fatalf("cascade false negative for inserted item")
		}
	}
}

func TestP7NoFalseNegativesPartitioned(t *testing.T) {
	items := randItems(5000, 3)
	pf := NewPartitioned(len(items), 0.01, 64)
	for _, it := range items {
		pf.Add(it)
	}
	for _, it := range items {
		if !pf.Test(it) {
			t.Fatalf("partitioned false negative for inserted item")
		}
	}
}

func TestFalsePositiveRateIsBounded(t *testing.T) {
	items := randItems(5000, 4)
	f := NewFilter(len(items), 0.01)
	for _, it := range items {
		f.Add(it)
	}

	absent := randItems(20000, 999)
	falsePositives := 0
	for _, it := range absent {
		if f.Test(it) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(len(absent))
	// Generous bound: real FPR should track ~1%, fail only if wildly off.
	if rate > 0.2 {
		t.Fatalf("false positive rate too high: %.4f", rate)
	}
}

func TestOptimalBitsAndHashesMonotonic(t *testing.T) {
	small := OptimalBits(100, 0.01)
	large := OptimalBits(10000, 0.01)
	if large <= small {
		t.Fatalf("expected more bits for more items")
	}

	loose := OptimalHashes(OptimalBits(1000, 0.1), 1000)
	tight := OptimalHashes(OptimalBits(1000, 0.0001), 1000)
	if tight <= loose {
		t.Fatalf("expected more hashes for a tighter target rate")
	}
}
