// Package bloom implements the probabilistic membership filters used to
// prefilter baby-step table lookups: a single-layer filter, a cascading
// chain of geometrically shrinking layers, and a partitioned filter sharded
// for concurrent insert.
package bloom

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// goldenGamma is the odd 64-bit constant used to decorrelate the k probe
// positions derived from a single 64-bit hash (Fibonacci hashing gamma).
const goldenGamma = 0x9E3779B97F4A7C15

// hash64 returns the single 64-bit hash of b that seeds the probe family.
func hash64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// probePositions returns the k bit positions in [0, bits) derived from a
// 64-bit hash, per hᵢ = (h64 XOR (i * goldenGamma)) mod bits.
func probePositions(h64 uint64, k, bits int) []uint64 {
	positions := make([]uint64, k)
	for i := 0; i < k; i++ {
		mixed := h64 ^ (uint64(i) * goldenGamma)
		positions[i] = mixed % uint64(bits)
	}
	return positions
}

// OptimalBits returns the bit-array size minimizing false positives for n
// inserted items at target false-positive rate p:
// ceil(-n*ln(p) / (ln 2)^2).
func OptimalBits(n int, p float64) int {
	if n <= 0 {
		n = 1
	}
	if p <= 0 {
		p = 1e-9
	}
	bits := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if bits < 1 {
		bits = 1
	}
	return int(bits)
}

// OptimalHashes returns ceil((bits/n)*ln 2), the number of probes that
// minimizes the false-positive rate for a given bits-per-item ratio.
func OptimalHashes(bits, n int) int {
	if n <= 0 {
		n = 1
	}
	k := math.Ceil((float64(bits) / float64(n)) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return int(k)
}
