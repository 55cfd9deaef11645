// Package babystep implements the baby-step table: a fingerprint-indexed
// lookup of m precomputed points with a bloom prefilter, as described by
// the BSGS engine's build phase.
package babystep

import "btc_bsgs/internal/field"

// Record pairs a 32-bit fingerprint of a baby-step point's X coordinate
// with its row index in the table.
type Record struct {
	XHash uint32
	Index uint32
}

// fnv1a32 hashes bytes using the 32-bit FNV-1a algorithm, offset and
// prime per the canonical constants.
func fnv1a32(b []byte) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime
	}
	return h
}

// XHash computes the table fingerprint of an X coordinate: FNV-1a over
// the big-endian bytes of its 8 32-bit limbs.
func XHash(x field.Fp) uint32 {
	b := x.ToBytes()
	return fnv1a32(b[:])
}
