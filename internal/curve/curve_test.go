package curve

import (
	"math/rand"
	"testing"

	"btc_bsgs/internal/field"
)

func randScalar(r *rand.Rand) Scalar {
	var limbs [8]uint32
	for i := range limbs {
		limbs[i] = r.Uint32()
	}
	return field.NewFromLimbs(limbs)
}

// P3: to_affine(k*G) lies on the curve.
func TestP3OnCurve(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	for i := 0; i < 20; i++ {
		k := randScalar(r)
		p := ToAffine(ScalarBaseMul(k))
		if !OnCurve(p) {
			t.Fatalf("k*G not on curve for k limbs=%v", k.Limbs())
		}
	}
}

// P4: (a+b)*G == a*G + b*G.
func TestP4Linearity(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		a := field.NewFromUint64(r.Uint64() % 1_000_000)
		b := field.NewFromUint64(r.Uint64() % 1_000_000)
		sum, _ := field.Add256(a, b)

		lhs := ToAffine(ScalarBaseMul(sum))
		rhs := ToAffine(PointAdd(ScalarBaseMul(a), ScalarBaseMul(b)))

		if !lhs.Equal(rhs) {
			t.Fatalf("(a+b)*G != a*G+b*G")
		}
	}
}

// P5: 2*P == P+P.
func TestP5DoubleEqualsAdd(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	for i := 0; i < 20; i++ {
		k := field.NewFromUint64(r.Uint64()%1_000_000 + 1)
		p := ScalarBaseMul(k)
		dbl := ToAffine(PointDouble(p))
		add := ToAffine(PointAdd(p, p))
		if !dbl.Equal(add) {
			t.Fatalf("2*P != P+P")
		}
	}
}

func TestInfinityIdentities(t *testing.T) {
	inf := InfinityJacobian()
	p := ScalarBaseMul(field.NewFromUint64(42))

	if !ToAffine(PointAdd(inf, p)).Equal(ToAffine(p)) {
		t.Fatal("O + P != P")
	}
	if !ToAffine(PointAdd(p, inf)).Equal(ToAffine(p)) {
		t.Fatal("P + O != P")
	}
	if !ToAffine(PointDouble(inf)).Infinity {
		t.Fatal("2*O != O")
	}
}

func TestPointPlusNegationIsInfinity(t *testing.T) {
	p := ScalarBaseMul(field.NewFromUint64(99))
	neg := p.Neg()
	sum := PointAdd(p, neg)
	if !ToAffine(sum).Infinity {
		t.Fatal("P + (-P) != O")
	}
}

func TestEndomorphismMatchesLambdaMul(t *testing.T) {
	k := field.NewFromUint64(777)
	p := ScalarBaseMul(k)
	phi := ToAffine(PhiJacobian(p))
	viaLambda := ToAffine(ScalarMul(Lambda, p))
	if !phi.Equal(viaLambda) {
		t.Fatal("Phi(P) != Lambda*P")
	}
}

func TestGeneratorKnownMultiples(t *testing.T) {
	// 1*G should equal G itself.
	one := ToAffine(ScalarBaseMul(field.NewFromUint64(1)))
	if !one.Equal(G) {
		t.Fatal("1*G != G")
	}
}
