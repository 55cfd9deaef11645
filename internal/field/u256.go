// Package field implements 256-bit unsigned integer arithmetic and modular
// field arithmetic over the secp256k1 prime p = 2^256 - 2^32 - 977.
package field

import (
	"encoding/binary"
	"fmt"
)

// U256 is an unsigned 256-bit integer stored as 8 little-endian 32-bit
// limbs: limbs[0] holds the least significant word.
type U256 struct {
	limbs [8]uint32
}

// Zero is the additive identity.
var Zero = U256{}

// One is the multiplicative identity of the integers (not a field element).
var One = U256{limbs: [8]uint32{1}}

// NewFromLimbs builds a U256 from little-endian 32-bit limbs.
func NewFromLimbs(limbs [8]uint32) U256 {
	return U256{limbs: limbs}
}

// NewFromUint64 builds a U256 from a single 64-bit value.
func NewFromUint64(v uint64) U256 {
	return U256{limbs: [8]uint32{uint32(v), uint32(v >> 32)}}
}

// FromBytes decodes a big-endian 32-byte value, as produced by ToBytes.
func FromBytes(b []byte) (U256, error) {
	if len(b) != 32 {
		return U256{}, fmt.Errorf("field: want 32 bytes, got %d", len(b))
	}
	var u U256
	for i := 0; i < 8; i++ {
		// limb i covers bytes [32-4*(i+1), 32-4*i)
		off := 32 - 4*(i+1)
		u.limbs[i] = binary.BigEndian.Uint32(b[off : off+4])
	}
	return u, nil
}

// ToBytes encodes the value as a big-endian 32-byte array.
func (a U256) ToBytes() [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		off := 32 - 4*(i+1)
		binary.BigEndian.PutUint32(out[off:off+4], a.limbs[i])
	}
	return out
}

// Limbs returns the little-endian limb array.
func (a U256) Limbs() [8]uint32 { return a.limbs }

// IsZero reports whether a is the zero value.
func (a U256) IsZero() bool {
	for _, l := range a.limbs {
		if l != 0 {
			return false
		}
	}
	return true
}

// Bit returns bit i (0 = least significant) of a, for i in [0, 256).
func (a U256) Bit(i int) uint32 {
	limb := a.limbs[i/32]
	return (limb >> uint(i%32)) & 1
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func Cmp(a, b U256) int {
	for i := 7; i >= 0; i-- {
		if a.limbs[i] != b.limbs[i] {
			if a.limbs[i] < b.limbs[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Add256 computes a+b and the carry out of the top limb.
func Add256(a, b U256) (U256, uint32) {
	var r U256
	var carry uint64
	for i := 0; i < 8; i++ {
		sum := uint64(a.limbs[i]) + uint64(b.limbs[i]) + carry
		r.limbs[i] = uint32(sum)
		carry = sum >> 32
	}
	return r, uint32(carry)
}

// Sub256 computes a-b and the borrow out of the top limb (1 if a<b).
func Sub256(a, b U256) (U256, uint32) {
	var r U256
	var borrow uint64
	for i := 0; i < 8; i++ {
		diff := uint64(a.limbs[i]) - uint64(b.limbs[i]) - borrow
		r.limbs[i] = uint32(diff)
		if uint64(a.limbs[i]) < uint64(b.limbs[i])+borrow {
			borrow = 1
		} else {
			borrow = 0
		}
	}
	return r, uint32(borrow)
}

// AddUint32 adds a small constant and returns the carry.
func AddUint32(a U256, v uint32) (U256, uint32) {
	return Add256(a, NewFromUint64(uint64(v)))
}

// mul256 performs an 8x8 -> 16-limb schoolbook product, returned as
// low and high 256-bit halves.
func mul256(a, b U256) (lo, hi U256) {
	var prod [16]uint64
	for i := 0; i < 8; i++ {
		if a.limbs[i] == 0 {
			continue
		}
		var carry uint64
		ai := uint64(a.limbs[i])
		for j := 0; j < 8; j++ {
			p := ai*uint64(b.limbs[j]) + prod[i+j] + carry
			prod[i+j] = p & 0xFFFFFFFF
			carry = p >> 32
		}
		prod[i+8] += carry
	}
	// propagate any residual carries (prod[i+8] accumulation above can
	// itself overflow a 32-bit lane when added across iterations)
	var carry uint64
	for i := 0; i < 16; i++ {
		v := prod[i] + carry
		prod[i] = v & 0xFFFFFFFF
		carry = v >> 32
	}
	for i := 0; i < 8; i++ {
		lo.limbs[i] = uint32(prod[i])
		hi.limbs[i] = uint32(prod[i+8])
	}
	return lo, hi
}
