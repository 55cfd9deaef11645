package field

// Fp is a field element modulo the secp256k1 prime p = 2^256 - 2^32 - 977.
// It is distinguished from a bare U256 so that callers can't accidentally
// mix field elements (mod p) with scalars (mod the curve order n).
type Fp struct {
	v U256
}

// c is the 977+2^32 correction constant: p = 2^256 - c.
const fpC = 0x1000003D1

// P is the secp256k1 field prime, canonical form.
var P = U256{limbs: [8]uint32{
	0xFFFFFC2F, 0xFFFFFFFE, 0xFFFFFFFF, 0xFFFFFFFF,
	0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF,
}}

// FpZero is the additive identity in Fp.
var FpZero = Fp{}

// FpOne is the multiplicative identity in Fp.
var FpOne = Fp{v: One}

// NewFp reduces a U256 into canonical [0, p) form.
func NewFp(v U256) Fp {
	return Fp{v: reduceOnce(v)}
}

// FromBytesFp decodes a big-endian 32-byte value and reduces it mod p.
func FromBytesFp(b []byte) (Fp, error) {
	u, err := FromBytes(b)
	if err != nil {
		return Fp{}, err
	}
	return NewFp(u), nil
}

// ToBytes encodes the canonical value as big-endian 32 bytes.
func (a Fp) ToBytes() [32]byte { return a.v.ToBytes() }

// U256 exposes the canonical backing value.
func (a Fp) U256() U256 { return a.v }

// IsZero reports whether a == 0 mod p.
func (a Fp) IsZero() bool { return a.v.IsZero() }

// Equal reports field equality.
func (a Fp) Equal(b Fp) bool { return Cmp(a.v, b.v) == 0 }

// reduceOnce subtracts p at most twice to bring v into [0, p); v is assumed
// to already be within [0, 2p) or so (the common case after one mod_add).
func reduceOnce(v U256) U256 {
	for Cmp(v, P) >= 0 {
		v, _ = Sub256(v, P)
	}
	return v
}

// Add returns a+b mod p via a single correction subtraction.
func (a Fp) Add(b Fp) Fp {
	sum, carry := Add256(a.v, b.v)
	if carry != 0 || Cmp(sum, P) >= 0 {
		sum, _ = Sub256(sum, P)
	}
	return Fp{v: sum}
}

// Sub returns a-b mod p via a single correction addition.
func (a Fp) Sub(b Fp) Fp {
	diff, borrow := Sub256(a.v, b.v)
	if borrow != 0 {
		diff, _ = Add256(diff, P)
	}
	return Fp{v: diff}
}

// Neg returns -a mod p.
func (a Fp) Neg() Fp {
	if a.IsZero() {
		return a
	}
	d, _ := Sub256(P, a.v)
	return Fp{v: d}
}

// Mul returns a*b mod p using schoolbook multiplication followed by the
// Mersenne-like fast reduction exploiting p = 2^256 - c, c = 0x1000003D1.
func (a Fp) Mul(b Fp) Fp {
	lo, hi := mul256(a.v, b.v)
	return Fp{v: fastReduce(lo, hi)}
}

// Sqr returns a^2 mod p. It is implemented directly as Mul(a, a); an
// optimized diagonal/off-diagonal merge is a valid substitute under the
// same contract.
func (a Fp) Sqr() Fp {
	return a.Mul(a)
}

// fastReduce folds the high 256 bits of a 512-bit product back into the
// field by repeatedly multiplying the high half by c and adding it to the
// low half, since 2^256 === c (mod p). The loop terminates once the high
// half is zero, then a final conditional subtraction brings the result
// into canonical [0, p) form.
func fastReduce(lo, hi U256) U256 {
	for !hi.IsZero() {
		// hi * c fits in low + high again (c < 2^34), so multiply and add.
		cLo, cHi := mulByC(hi)
		var carry uint32
		lo, carry = Add256(lo, cLo)
		hi, _ = AddUint32(cHi, carry)
	}
	return reduceOnce(lo)
}

// mulByC multiplies a U256 by the 33-bit constant c = 0x1000003D1 and
// returns the 256-bit low and high halves of the product. c is applied as
// 2^32 + 977 so that each limb product stays within 64 bits.
func mulByC(a U256) (lo, hi U256) {
	var carry uint64
	var loLimbs [8]uint32
	for i := 0; i < 8; i++ {
		p := uint64(a.limbs[i])*977 + carry
		loLimbs[i] = uint32(p)
		carry = p>>32 + uint64(a.limbs[i])
	}
	lo = U256{limbs: loLimbs}
	hi = NewFromUint64(carry)
	return lo, hi
}

// Inv returns the modular inverse of a, computed via Fermat's little
// theorem a^(p-2) mod p using right-to-left binary exponentiation over
// 256 bits. a must be nonzero; inverting zero is a programming error
// (§7 "Arithmetic") and panics.
func (a Fp) Inv() Fp {
	if a.IsZero() {
		panic("field: inverse of zero")
	}
	// p - 2, precomputed.
	exp := pMinus2()
	result := FpOne
	base := a
	for i := 0; i < 256; i++ {
		if exp.Bit(i) == 1 {
			result = result.Mul(base)
		}
		base = base.Sqr()
	}
	return result
}

func pMinus2() U256 {
	p2, _ := Sub256(P, NewFromUint64(2))
	return p2
}
