package curve

import "btc_bsgs/internal/field"

// N is the order of the secp256k1 base point G.
var N = field.NewFromLimbs([8]uint32{
	0xD0364141, 0xBFD25E8C, 0xAF48A03B, 0xBAAEDCE6,
	0xFFFFFFFE, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF,
})

var gX = mustFp("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798")
var gY = mustFp("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8")

// G is the secp256k1 base point.
var G = Affine{X: gX, Y: gY}

func mustFp(hexStr string) field.Fp {
	b, err := hexDecode32(hexStr)
	if err != nil {
		panic(err)
	}
	fp, err := field.FromBytesFp(b)
	if err != nil {
		panic(err)
	}
	return fp
}

// hexDecode32 decodes a 64-hex-char big-endian string into 32 bytes
// without importing encoding/hex at init time complexity; kept local
// so curve parameter literals stay self-contained.
func hexDecode32(s string) ([]byte, error) {
	if len(s) != 64 {
		panic("curve: constant must be 64 hex chars")
	}
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		hi := hexNibble(s[2*i])
		lo := hexNibble(s[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		panic("curve: invalid hex digit")
	}
}
