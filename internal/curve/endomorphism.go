package curve

import "btc_bsgs/internal/field"

// beta is a primitive cube root of unity mod p such that
// (beta*x, y) is on the curve whenever (x, y) is.
var beta = mustFp("7ae96a2b657c07106e64479eac3434e99cf0497512f58995c1396c28719501ee")

// Lambda is the scalar with Phi(P) = Lambda*P for every P, reduced mod N.
var Lambda = field.NewFromLimbs(lambdaLimbs())

func lambdaLimbs() [8]uint32 {
	b, err := hexDecode32("5363ad4cc05c30e0a5261c028812645a122e22ea20816678df02967c1b23bd72")
	if err != nil {
		panic(err)
	}
	u, err := field.FromBytes(b)
	if err != nil {
		panic(err)
	}
	return u.Limbs()
}

// Phi applies the secp256k1 endomorphism: given P=(x,y), returns
// (beta*x, y), which equals Lambda*P. The point at infinity maps to
// itself.
func Phi(a Affine) Affine {
	if a.Infinity {
		return a
	}
	return Affine{X: beta.Mul(a.X), Y: a.Y}
}

// PhiJacobian applies Phi in Jacobian coordinates without an inversion:
// beta scales X only, Y and Z are unchanged, since X is Jacobian-scaled
// by Z^2 and beta is just a field unit multiplying the affine x.
func PhiJacobian(j Jacobian) Jacobian {
	if j.IsInfinity() {
		return j
	}
	return Jacobian{X: beta.Mul(j.X), Y: j.Y, Z: j.Z}
}
