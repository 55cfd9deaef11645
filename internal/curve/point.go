// Package curve implements secp256k1 group arithmetic (y^2 = x^3 + 7) over
// Jacobian coordinates, built on internal/field's Fp type.
package curve

import "btc_bsgs/internal/field"

// Affine is a point in affine coordinates, or the point at infinity when
// Infinity is true.
type Affine struct {
	X, Y     field.Fp
	Infinity bool
}

// Jacobian is a point in Jacobian projective coordinates: affine
// equivalence is x = X/Z^2, y = Y/Z^3. Z == 0 denotes the point at
// infinity.
type Jacobian struct {
	X, Y, Z field.Fp
}

// InfinityJacobian is the canonical Jacobian representation of O.
func InfinityJacobian() Jacobian {
	return Jacobian{X: field.FpOne, Y: field.FpOne, Z: field.FpZero}
}

// IsInfinity reports whether j represents the point at infinity.
func (j Jacobian) IsInfinity() bool {
	return j.Z.IsZero()
}

// FromAffine lifts an affine point into Jacobian coordinates (Z=1).
func FromAffine(a Affine) Jacobian {
	if a.Infinity {
		return InfinityJacobian()
	}
	return Jacobian{X: a.X, Y: a.Y, Z: field.FpOne}
}

// ToAffine converts back to affine form, dividing X by Z^2 and Y by Z^3.
// The point at infinity maps to itself.
func ToAffine(j Jacobian) Affine {
	if j.IsInfinity() {
		return Affine{Infinity: true}
	}
	zInv := j.Z.Inv()
	zInv2 := zInv.Sqr()
	zInv3 := zInv2.Mul(zInv)
	return Affine{
		X: j.X.Mul(zInv2),
		Y: j.Y.Mul(zInv3),
	}
}

// Equal compares two affine points, including the infinity case.
func (a Affine) Equal(b Affine) bool {
	if a.Infinity || b.Infinity {
		return a.Infinity == b.Infinity
	}
	return a.X.Equal(b.X) && a.Y.Equal(b.Y)
}

// PointDouble computes 2*P using the standard a=0 short-Weierstrass
// doubling formulae (4 field squarings, 3 general field multiplications,
// and 4 multiplications by the small constants 2, 3, 4 and 8).
// P.Z == 0 or P.Y == 0 both yield the point at infinity.
func PointDouble(p Jacobian) Jacobian {
	if p.IsInfinity() || p.Y.IsZero() {
		return InfinityJacobian()
	}

	ySq := p.Y.Sqr()
	s := p.X.Mul(ySq).Mul(field.NewFp(field.NewFromUint64(4)))
	m := p.X.Sqr().Mul(field.NewFp(field.NewFromUint64(3))) // a=0, so no a*Z^4 term

	x3 := m.Sqr().Sub(s).Sub(s)
	yFour := ySq.Sqr().Mul(field.NewFp(field.NewFromUint64(8)))
	y3 := m.Mul(s.Sub(x3)).Sub(yFour)
	z3 := p.Y.Mul(p.Z).Mul(field.NewFp(field.NewFromUint64(2)))

	return Jacobian{X: x3, Y: y3, Z: z3}
}

// PointAdd computes P+Q with full Jacobian+Jacobian formulae. Handles
// P==O, Q==O, dispatches to PointDouble when P==Q, and returns O when
// P == -Q.
func PointAdd(p, q Jacobian) Jacobian {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}

	z1z1 := p.Z.Sqr()
	z2z2 := q.Z.Sqr()
	u1 := p.X.Mul(z2z2)
	u2 := q.X.Mul(z1z1)
	s1 := p.Y.Mul(q.Z).Mul(z2z2)
	s2 := q.Y.Mul(p.Z).Mul(z1z1)

	h := u2.Sub(u1)
	r := s2.Sub(s1)

	if h.IsZero() {
		if r.IsZero() {
			return PointDouble(p)
		}
		return InfinityJacobian()
	}

	hh := h.Sqr()
	hhh := hh.Mul(h)
	v := u1.Mul(hh)

	x3 := r.Sqr().Sub(hhh).Sub(v).Sub(v)
	y3 := r.Mul(v.Sub(x3)).Sub(s1.Mul(hhh))
	z3 := p.Z.Mul(q.Z).Mul(h)

	return Jacobian{X: x3, Y: y3, Z: z3}
}

// PointAddMixed adds a Jacobian point P to an affine point Q by lifting Q
// to Jacobian form (Z=1) and calling the full PointAdd; no mixed-coordinate
// shortcut is taken.
func PointAddMixed(p Jacobian, q Affine) Jacobian {
	if q.Infinity {
		return p
	}
	return PointAdd(p, FromAffine(q))
}

// Neg returns the additive inverse -P by negating Y.
func (j Jacobian) Neg() Jacobian {
	if j.IsInfinity() {
		return j
	}
	return Jacobian{X: j.X, Y: j.Y.Neg(), Z: j.Z}
}

// OnCurve reports whether an affine point satisfies y^2 = x^3 + 7,
// implementing property P3.
func OnCurve(a Affine) bool {
	if a.Infinity {
		return true
	}
	lhs := a.Y.Sqr()
	rhs := a.X.Sqr().Mul(a.X).Add(field.NewFp(field.NewFromUint64(7)))
	return lhs.Equal(rhs)
}
