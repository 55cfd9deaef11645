package curve

import "btc_bsgs/internal/field"

// BatchToAffine converts a slice of Jacobian points to affine form using
// Montgomery's trick: one field inversion amortized across the whole
// batch instead of one inversion per point. Points at infinity map to
// Affine{Infinity: true} and do not participate in the shared inversion.
func BatchToAffine(points []Jacobian) []Affine {
	out := make([]Affine, len(points))

	// Collect non-infinity Z values and running products.
	idx := make([]int, 0, len(points))
	zs := make([]field.Fp, 0, len(points))
	for i, p := range points {
		if p.IsInfinity() {
			out[i] = Affine{Infinity: true}
			continue
		}
		idx = append(idx, i)
		zs = append(zs, p.Z)
	}
	if len(zs) == 0 {
		return out
	}

	prefix := make([]field.Fp, len(zs))
	acc := field.FpOne
	for i, z := range zs {
		acc = acc.Mul(z)
		prefix[i] = acc
	}

	inv := acc.Inv()

	for i := len(zs) - 1; i >= 0; i-- {
		var zInv field.Fp
		if i == 0 {
			zInv = inv
		} else {
			zInv = inv.Mul(prefix[i-1])
		}
		inv = inv.Mul(zs[i])

		p := points[idx[i]]
		zInv2 := zInv.Sqr()
		zInv3 := zInv2.Mul(zInv)
		out[idx[i]] = Affine{
			X: p.X.Mul(zInv2),
			Y: p.Y.Mul(zInv3),
		}
	}

	return out
}
