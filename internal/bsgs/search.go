package bsgs

import (
	"context"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
	"btc_bsgs/internal/pool"
	"btc_bsgs/internal/target"
)

// stepChunk is a contiguous sub-range of giant-step indices [start, end)
// assigned to one goroutine.
type stepChunk struct {
	start, end uint64
	reverse    bool
}

// buildChunks splits [0, total) into n contiguous pieces, remainder
// distributed to the first pieces, mirroring rangekey.Range.Split but
// kept local to avoid a big.Int round trip on the hot dispatch path.
func buildChunks(total uint64, n int) []stepChunk {
	if n < 1 {
		n = 1
	}
	if total == 0 {
		return nil
	}
	if uint64(n) > total {
		n = int(total)
	}

	base := total / uint64(n)
	rem := total % uint64(n)

	chunks := make([]stepChunk, 0, n)
	cursor := uint64(0)
	for i := 0; i < n; i++ {
		width := base
		if uint64(i) < rem {
			width++
		}
		chunks = append(chunks, stepChunk{start: cursor, end: cursor + width})
		cursor += width
	}
	return chunks
}

// orderChunks applies each Mode's traversal heuristic (§4.3) to a plain
// sequential split: sequential/backward set a uniform direction, bothways
// has the first half run toward the middle from the low end and the
// second half from the high end, random shuffles dispatch order
// deterministically from RandomSeed, and dance alternates direction by
// chunk index. Every mode still visits every index in [0, total) exactly
// once, so P9/P10-style coverage holds regardless of traversal order.
func orderChunks(chunks []stepChunk, mode Mode, seed int64) []stepChunk {
	out := make([]stepChunk, len(chunks))
	copy(out, chunks)

	switch mode {
	case ModeSequential:
		// already forward
	case ModeBackward:
		for i := range out {
			out[i].reverse = true
		}
	case ModeBothways:
		half := len(out) / 2
		for i := half; i < len(out); i++ {
			out[i].reverse = true
		}
	case ModeRandom:
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case ModeDance:
		for i := range out {
			out[i].reverse = i%2 == 1
		}
	}
	return out
}

// clipChunksForResume narrows or drops chunks so that no giant-step index
// below resumeFrom is revisited, regardless of a chunk's traversal
// direction: index comparison, not traversal order, is what decides
// whether a step was already swept.
func clipChunksForResume(chunks []stepChunk, resumeFrom uint64) []stepChunk {
	out := make([]stepChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.start < resumeFrom {
			c.start = resumeFrom
		}
		if c.start >= c.end {
			continue
		}
		out = append(out, c)
	}
	return out
}

// targetTracker carries one target's running giant-step point across the
// iterations of a single chunk.
type targetTracker struct {
	t  target.Target
	cj curve.Jacobian
}

// runGiantStepSweep dispatches the giant-step sweep over every pubkey
// target across the pool's worker threads, per §4.3. resumeFrom is the
// NextGiantStep boundary restored from a checkpoint (0 on a fresh run);
// indices below it were already swept before the checkpoint was taken
// and are skipped, bounding lost work to the interval since the last
// save instead of resweeping the whole range (§7).
func (e *Engine) runGiantStepSweep(ctx context.Context, targets []target.Target, totalSteps, resumeFrom uint64) {
	m := e.m
	lo := e.lo
	n := new(big.Int).Sub(e.hi, e.lo)
	n.Add(n, big.NewInt(1))
	nU64 := clampBigToUint64(n)

	giant := curve.ScalarBaseMul(bigToScalar(big.NewInt(int64(m))))
	negGiant := giant.Neg()

	chunks := orderChunks(buildChunks(totalSteps, e.params.ThreadCount), e.params.Mode, e.params.RandomSeed)
	if resumeFrom > 0 {
		chunks = clipChunksForResume(chunks, resumeFrom)
	}

	starts := e.batchChunkStartPoints(chunks, lo, m)

	var wg sync.WaitGroup
	for idx, c := range chunks {
		c := c
		start := starts[idx]
		wg.Add(1)
		e.pool.Submit(func(_ context.Context) {
			defer wg.Done()
			if e.stopFlag.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			e.processChunk(targets, lo, start, m, nU64, c, giant, negGiant)
		}, pool.Normal)
	}
	wg.Wait()
}

// batchChunkStartPoints computes lo+startJ*m for every chunk's leading
// giant-step index in a single call through the engine's compute backend
// (internal/gpubackend), so a CUDA backend can run the whole sweep's
// per-chunk bootstrap as one batched scalar_base_mul instead of the pool
// issuing one at a time from inside each worker.
func (e *Engine) batchChunkStartPoints(chunks []stepChunk, lo *big.Int, m int) []curve.Affine {
	scalars := make([]field.U256, len(chunks))
	for i, c := range chunks {
		startJ := c.start
		if c.reverse {
			startJ = c.end - 1
		}
		kStart := new(big.Int).Mul(big.NewInt(int64(startJ)), big.NewInt(int64(m)))
		kStart.Add(kStart, lo)
		scalars[i] = bigToScalar(kStart)
	}
	return e.backend.ScalarBaseMulBatch(scalars)
}

// processChunk walks one contiguous giant-step range for every target,
// updating Cj incrementally by one point_add per step.
func (e *Engine) processChunk(targets []target.Target, lo *big.Int, start curve.Affine, m int, n uint64, c stepChunk, giant, negGiant curve.Jacobian) {
	count := c.end - c.start
	if count == 0 {
		return
	}

	startPoint := curve.FromAffine(start)

	trackers := make([]*targetTracker, len(targets))
	for idx, t := range targets {
		cj := curve.PointAdd(curve.FromAffine(t.Point), startPoint.Neg())
		trackers[idx] = &targetTracker{t: t, cj: cj}
	}

	currentJ := c.start
	if c.reverse {
		currentJ = c.end - 1
	}
	for step := uint64(0); step < count; step++ {
		if e.stopFlag.Load() {
			return
		}
		for e.paused.Load() {
			time.Sleep(time.Millisecond)
			if e.stopFlag.Load() {
				return
			}
		}

		delta := uint64(m)
		if remaining := n - currentJ*uint64(m); remaining < uint64(m) {
			delta = remaining
		}

		for _, tr := range trackers {
			affine := curve.ToAffine(tr.cj)

			if i, ok := e.table.Lookup(affine); ok {
				k := candidateKey(lo, currentJ, m, int64(i))
				e.verifyAndPublish(k, tr.t)
			}

			if e.params.Endomorphism {
				phi := curve.Phi(affine)
				if i2, ok := e.table.Lookup(phi); ok {
					k := candidateKeyEndo(lo, currentJ, m, i2)
					e.verifyAndPublish(k, tr.t)
				}
			}

			if step+1 < count {
				if !c.reverse {
					tr.cj = curve.PointAdd(tr.cj, negGiant)
				} else {
					tr.cj = curve.PointAdd(tr.cj, giant)
				}
			}
		}

		e.keysChecked.Add(delta)
		e.nextGiantStep.Store(currentJ + 1)

		if c.reverse {
			if currentJ == 0 {
				break
			}
			currentJ--
		} else {
			currentJ++
		}
	}
}

// candidateKey computes k = lo + j*m + i, the direct (non-endomorphism)
// baby-step hit formula of §4.3 step 4.
func candidateKey(lo *big.Int, j uint64, m int, i int64) *big.Int {
	k := new(big.Int).Mul(big.NewInt(int64(j)), big.NewInt(int64(m)))
	k.Add(k, lo)
	k.Add(k, big.NewInt(i))
	return k
}

// candidateKeyEndo recovers k from a φ(Cⱼ) hit at baby-step index i: the
// hit means φ(Cⱼ) = i·G, i.e. λ·Cⱼ = i·G, i.e. Cⱼ = λ⁻¹·i·G, so the
// scalar s = λ⁻¹·i mod n satisfies Cⱼ = s·G, and since Cⱼ = T - (lo+jm)·G
// by construction, k = (lo + j*m + s) mod n.
func candidateKeyEndo(lo *big.Int, j uint64, m int, i int) *big.Int {
	s := new(big.Int).Mul(lambdaInv, big.NewInt(int64(i)))
	s.Mod(s, nBig)
	k := new(big.Int).Mul(big.NewInt(int64(j)), big.NewInt(int64(m)))
	k.Add(k, lo)
	k.Add(k, s)
	k.Mod(k, nBig)
	return k
}

// verifyAndPublish re-derives k*G (or the Hash160 of it, per the target's
// kind) and compares against the target before publishing, so a bloom
// false positive or an endomorphism misfire never reaches the result sink.
// Candidates outside [lo, hi] (from the partial last giant step) are dropped.
func (e *Engine) verifyAndPublish(k *big.Int, t target.Target) {
	if k.Cmp(e.lo) < 0 || k.Cmp(e.hi) > 0 {
		return
	}
	scalar := bigToScalar(k)
	p := curve.ToAffine(curve.ScalarBaseMul(scalar))
	if !t.Matches(p) {
		return
	}
	e.publish(Result{
		PrivateKey: new(big.Int).Set(k),
		Target:     t,
		FoundAtMs:  time.Since(e.startedAt).Milliseconds(),
	})
}
