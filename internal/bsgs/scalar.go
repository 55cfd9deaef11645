package bsgs

import (
	"math/big"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
)

// nBig is the secp256k1 group order as a big.Int, used for the scalar mod-n
// arithmetic the endomorphism candidate recovery needs (field.U256 is
// unreduced and Fp reduces mod p, neither of which is mod n).
var nBig = u256ToBig(curve.N)

// lambdaInv is the modular inverse of the GLV lambda constant mod n.
var lambdaInv = new(big.Int).ModInverse(u256ToBig(curve.Lambda), nBig)

func u256ToBig(u field.U256) *big.Int {
	b := u.ToBytes()
	return new(big.Int).SetBytes(b[:])
}

// bigToScalar reduces b mod n if necessary and encodes it as a field.U256
// for use with curve.ScalarMul/ScalarBaseMul.
func bigToScalar(b *big.Int) field.U256 {
	r := new(big.Int).Mod(b, nBig)
	bs := r.Bytes()
	var buf [32]byte
	copy(buf[32-len(bs):], bs)
	u, err := field.FromBytes(buf[:])
	if err != nil {
		panic("bsgs: scalar out of range after mod n reduction: " + err.Error())
	}
	return u
}
