package pool

import (
	"context"
	"sort"
	"sync"
)

// DefaultChunkSize picks max(1, (hi-lo)/(workers*4)) to balance load, per
// §4.4's default autoscaler.
func DefaultChunkSize(lo, hi, workers int) int {
	if workers < 1 {
		workers = 1
	}
	span := hi - lo
	chunk := span / (workers * 4)
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

// ParallelFor splits [lo, hi) into chunks and submits each as a Normal
// priority task that calls f(start, end) for its sub-range. It blocks
// until every chunk has executed. chunkSize of 0 selects DefaultChunkSize.
func (p *Pool) ParallelFor(ctx context.Context, lo, hi int, f func(start, end int), chunkSize int) {
	if hi <= lo {
		return
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize(lo, hi, p.Workers())
	}

	var wg sync.WaitGroup
	for start := lo; start < hi; start += chunkSize {
		end := start + chunkSize
		if end > hi {
			end = hi
		}
		wg.Add(1)
		s, e := start, end
		p.Submit(func(taskCtx context.Context) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			default:
			}
			f(s, e)
		}, Normal)
	}
	wg.Wait()
}

// ParallelReduce applies f to each chunk of [lo, hi), producing a partial
// accumulator per chunk via newAcc, then combines all partial
// accumulators sequentially with combine once every chunk has completed.
func ParallelReduce[T any](p *Pool, ctx context.Context, lo, hi int, chunkSize int, newAcc func() T, f func(acc T, start, end int) T, combine func(a, b T) T) T {
	if hi <= lo {
		return newAcc()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize(lo, hi, p.Workers())
	}

	type chunkResult struct {
		order int
		value T
	}

	var mu sync.Mutex
	var results []chunkResult
	var wg sync.WaitGroup

	order := 0
	for start := lo; start < hi; start += chunkSize {
		end := start + chunkSize
		if end > hi {
			end = hi
		}
		wg.Add(1)
		s, e, o := start, end, order
		order++
		p.Submit(func(taskCtx context.Context) {
			defer wg.Done()
			acc := f(newAcc(), s, e)
			mu.Lock()
			results = append(results, chunkResult{order: o, value: acc})
			mu.Unlock()
		}, Normal)
	}
	wg.Wait()

	// Combine deterministically in submission order, independent of the
	// order workers happened to finish in.
	sort.Slice(results, func(i, j int) bool { return results[i].order < results[j].order })
	acc := newAcc()
	for _, r := range results {
		acc = combine(acc, r.value)
	}
	return acc
}
