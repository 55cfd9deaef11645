// Package rangekey implements KeyRange, the scalar interval type the BSGS
// engine and worker pool partition work over, per §3 and §4.4.
package rangekey

import (
	"fmt"
	"math/big"
)

// Range is a closed scalar interval [Lo, Hi], Lo <= Hi. Scalars are
// represented as *big.Int here rather than field.U256: range arithmetic
// (size, splitting) needs ordinary integer subtraction and division that
// are awkward to express against a field element fixed to mod p, and the
// values here are never reduced mod the curve order or the field prime —
// they are indices into [0, n).
type Range struct {
	Lo, Hi *big.Int
}

// New builds a Range, validating Lo <= Hi.
func New(lo, hi *big.Int) (Range, error) {
	if lo.Cmp(hi) > 0 {
		return Range{}, fmt.Errorf("rangekey: lo (%s) > hi (%s)", lo.String(), hi.String())
	}
	return Range{Lo: new(big.Int).Set(lo), Hi: new(big.Int).Set(hi)}, nil
}

// Size returns hi-lo+1, the number of scalars in the range.
func (r Range) Size() *big.Int {
	size := new(big.Int).Sub(r.Hi, r.Lo)
	size.Add(size, big.NewInt(1))
	return size
}

// Contains reports whether k falls within [Lo, Hi].
func (r Range) Contains(k *big.Int) bool {
	return k.Cmp(r.Lo) >= 0 && k.Cmp(r.Hi) <= 0
}

// Split partitions the range into n disjoint sub-ranges (size of them when
// n exceeds size) that cover it exactly; the first size mod n sub-ranges
// are one scalar longer than the rest. n must be positive.
func (r Range) Split(n int) ([]Range, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rangekey: split count must be positive, got %d", n)
	}

	size := r.Size()
	nBig := big.NewInt(int64(n))
	chunk := new(big.Int).Div(size, nBig)
	rem := new(big.Int).Mod(size, nBig)
	if chunk.Sign() == 0 {
		chunk = big.NewInt(1)
	}

	// n may exceed size (e.g. more threads than scalars); cap the number
	// of non-empty chunks actually produced at size.
	effectiveN := n
	if size.Cmp(nBig) < 0 {
		effectiveN = int(size.Int64())
		chunk = big.NewInt(1)
		rem = big.NewInt(0)
	}

	out := make([]Range, 0, effectiveN)
	cursor := new(big.Int).Set(r.Lo)
	for i := 0; i < effectiveN; i++ {
		width := new(big.Int).Set(chunk)
		if big.NewInt(int64(i)).Cmp(rem) < 0 {
			width.Add(width, big.NewInt(1))
		}
		end := new(big.Int).Add(cursor, width)
		end.Sub(end, big.NewInt(1))
		out = append(out, Range{Lo: new(big.Int).Set(cursor), Hi: new(big.Int).Set(end)})
		cursor = new(big.Int).Add(end, big.NewInt(1))
	}
	return out, nil
}

// String renders the range as lo:hi in hex, matching the CLI's literal
// range syntax.
func (r Range) String() string {
	return fmt.Sprintf("%x:%x", r.Lo, r.Hi)
}
