package babystep

import (
	"fmt"
	"sort"

	"btc_bsgs/internal/bloom"
	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
)

// BatchSize is the default Montgomery batch-inversion group size used
// while building the table (§4.2: "typically 256-4096").
const BatchSize = 1024

// Table is an immutable, ordered list of m affine X coordinates for
// scalars [0, m) against the base point G, with a bloom prefilter and a
// sorted probe index for exact lookup. It must be frozen (built) before
// any probe, per the engine's "no writes during probing" invariant.
type Table struct {
	m       int
	xs      []field.Fp // xs[i] is the X coordinate of i*G, for i in [1, m)
	records []Record   // sorted by XHash for binary search
	filter  *bloom.Partitioned
}

// Build computes P_i = i*G for i in [0, m), retains affine X coordinates,
// and builds the bloom/probe index. i=0 (the point at infinity) is
// handled by Lookup directly rather than inserted into the index, since
// it has no well-defined X coordinate.
func Build(m int) (*Table, error) {
	if m <= 0 {
		return nil, fmt.Errorf("babystep: m must be positive, got %d", m)
	}

	t := &Table{
		m:  m,
		xs: make([]field.Fp, m),
	}

	cur := curve.InfinityJacobian()

	batch := make([]curve.Jacobian, 0, BatchSize)
	batchStart := 0
	flush := func() {
		affines := curve.BatchToAffine(batch)
		for off, a := range affines {
			idx := batchStart + off
			if idx == 0 {
				continue // infinity; Lookup special-cases index 0
			}
			t.xs[idx] = a.X
		}
		batch = batch[:0]
	}

	for i := 0; i < m; i++ {
		batch = append(batch, cur)
		if len(batch) == BatchSize || i == m-1 {
			flush()
			batchStart = i + 1
		}
		cur = curve.PointAddMixed(cur, curve.G)
	}

	t.buildIndex()
	return t, nil
}

// buildIndex populates the fingerprint records and bloom filter from xs.
func (t *Table) buildIndex() {
	t.filter = bloom.NewPartitioned(t.m, 0.001, bloom.DefaultShards)
	t.records = make([]Record, 0, t.m-1)
	for i := 1; i < t.m; i++ {
		b := t.xs[i].ToBytes()
		t.records = append(t.records, Record{XHash: XHash(t.xs[i]), Index: uint32(i)})
		t.filter.Add(b[:])
	}
	sort.Slice(t.records, func(a, b int) bool {
		return t.records[a].XHash < t.records[b].XHash
	})
}

// Size returns m, the number of baby steps the table covers.
func (t *Table) Size() int { return t.m }

// Lookup returns the index i such that P_i.X == c.X, if any. The bloom
// filter is probed first; on a hit, candidate rows are located in the
// sorted index by xhash and the full X is byte-compared to filter out
// bloom false positives. False negatives are forbidden (P8).
func (t *Table) Lookup(c curve.Affine) (int, bool) {
	if c.Infinity {
		if t.m > 0 {
			return 0, true
		}
		return 0, false
	}

	xb := c.X.ToBytes()
	h := XHash(c.X)
	if !t.filter.Test(xb[:]) {
		return 0, false
	}

	// Binary search for the first record with this xhash, then scan the
	// (typically single) run of same-hash rows for an exact X match.
	n := len(t.records)
	start := sort.Search(n, func(i int) bool { return t.records[i].XHash >= h })
	for i := start; i < n && t.records[i].XHash == h; i++ {
		idx := t.records[i].Index
		if t.xs[idx].Equal(c.X) {
			return int(idx), true
		}
	}
	return 0, false
}

// PointAt returns the stored X coordinate of i*G as an Affine whose Y is
// left zero (index 0 gives the point at infinity). It is enough to probe
// Lookup, which matches on X alone, but it is not a full curve point.
func (t *Table) PointAt(i int) curve.Affine {
	if i == 0 {
		return curve.Affine{Infinity: true}
	}
	return curve.Affine{X: t.xs[i]}
}
