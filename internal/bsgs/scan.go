package bsgs

import (
	"context"
	"math/big"
	"sync"
	"time"

	"btc_bsgs/internal/bloom"
	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
	"btc_bsgs/internal/pool"
	"btc_bsgs/internal/rangekey"
	"btc_bsgs/internal/target"

	"github.com/btcsuite/btcd/btcutil"
)

// runAddressScan implements the supplemented address-mode search (§9 Open
// Questions: "BSGS requires the public key, not just its hash"). When only
// a Hash160 is known there is no point to meet BSGS's table against, so
// this walks the range by straight scalar increment, bloom-prefiltered
// against the set of target hashes, exactly the exhaustive-cost fallback
// the spec inherits from its source.
func (e *Engine) runAddressScan(ctx context.Context, targets []target.Target, n *big.Int) {
	filter := bloom.NewFilter(len(targets), 0.0001)
	for _, t := range targets {
		filter.Add(t.Hash160[:])
	}

	rng, err := rangekey.New(e.lo, e.hi)
	if err != nil {
		e.warnf("address scan: invalid range: %v", err)
		return
	}

	threadCount := e.params.ThreadCount
	if threadCount <= 0 {
		threadCount = 1
	}
	parts, err := rng.Split(threadCount)
	if err != nil {
		e.warnf("address scan: splitting range: %v", err)
		return
	}

	starts := e.batchPartitionStartPoints(parts)

	var wg sync.WaitGroup
	for idx, part := range parts {
		part := part
		start := starts[idx]
		wg.Add(1)
		e.pool.Submit(func(_ context.Context) {
			defer wg.Done()
			e.scanRange(part, targets, filter, start)
		}, pool.Normal)
	}
	wg.Wait()
}

// batchPartitionStartPoints computes each address-scan partition's
// starting point through the engine's compute backend in one batched
// call, the same wiring runGiantStepSweep uses for its chunk starts.
func (e *Engine) batchPartitionStartPoints(parts []rangekey.Range) []curve.Affine {
	scalars := make([]field.U256, len(parts))
	for i, p := range parts {
		scalars[i] = bigToScalar(p.Lo)
	}
	return e.backend.ScalarBaseMulBatch(scalars)
}

func (e *Engine) scanRange(r rangekey.Range, targets []target.Target, filter *bloom.Filter, start curve.Affine) {
	cur := curve.FromAffine(start)
	one := curve.FromAffine(curve.G)

	k := new(big.Int).Set(r.Lo)
	size := r.Size()
	checked := big.NewInt(0)

	for checked.Cmp(size) < 0 {
		if e.stopFlag.Load() {
			return
		}
		for e.paused.Load() {
			time.Sleep(time.Millisecond)
			if e.stopFlag.Load() {
				return
			}
		}

		affine := curve.ToAffine(cur)
		compressedHash := btcutil.Hash160(target.EncodeCompressed(affine))
		uncompressedHash := btcutil.Hash160(target.EncodeUncompressed(affine))

		if filter.Test(compressedHash) || filter.Test(uncompressedHash) {
			for _, t := range targets {
				if t.Matches(affine) {
					e.verifyAndPublish(new(big.Int).Set(k), t)
				}
			}
		}

		e.keysChecked.Add(1)
		cur = curve.PointAdd(cur, one)
		k.Add(k, big.NewInt(1))
		checked.Add(checked, big.NewInt(1))
	}
}
