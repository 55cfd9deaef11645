package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Filter is a single-layer bloom filter: a bit-array of length B with k
// independent hash seeds derived from one 64-bit hash of the input bytes.
// add(x) sets k bits; test(x) returns false iff any of those bits is 0.
type Filter struct {
	bits *bitset.BitSet
	k    int
	b    int

	mu sync.RWMutex
}

// NewFilter builds a filter sized from n expected items and a target
// false-positive rate p, using OptimalBits/OptimalHashes.
func NewFilter(n int, p float64) *Filter {
	b := OptimalBits(n, p)
	k := OptimalHashes(b, n)
	return NewFilterSized(b, k)
}

// NewFilterSized builds a filter with an explicit bit count and hash count.
func NewFilterSized(bits, k int) *Filter {
	if bits < 1 {
		bits = 1
	}
	if k < 1 {
		k = 1
	}
	return &Filter{
		bits: bitset.New(uint(bits)),
		k:    k,
		b:    bits,
	}
}

// Add inserts x into the filter.
func (f *Filter) Add(x []byte) {
	h := hash64(x)
	f.AddHash(h)
}

// AddHash inserts a precomputed 64-bit hash into the filter, avoiding a
// re-hash when the caller already has one.
func (f *Filter) AddHash(h64 uint64) {
	positions := probePositions(h64, f.k, f.b)
	f.mu.Lock()
	for _, p := range positions {
		f.bits.Set(uint(p))
	}
	f.mu.Unlock()
}

// Test reports whether x is possibly a member; false means definitely not.
func (f *Filter) Test(x []byte) bool {
	return f.TestHash(hash64(x))
}

// TestHash is Test for a precomputed hash.
func (f *Filter) TestHash(h64 uint64) bool {
	positions := probePositions(h64, f.k, f.b)
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range positions {
		if !f.bits.Test(uint(p)) {
			return false
		}
	}
	return true
}

// Bits returns the size of the underlying bit array.
func (f *Filter) Bits() int { return f.b }

// Hashes returns the number of probe positions per insert/test.
func (f *Filter) Hashes() int { return f.k }
