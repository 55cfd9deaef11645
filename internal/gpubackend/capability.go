// Package gpubackend implements §9's capability-record replacement for a
// virtual "engine backend" hierarchy: a small interface both a CPU and an
// (optional, build-tagged) CUDA implementation satisfy, so the BSGS engine
// can batch scalar_base_mul over many scalars at once (the start points
// of its giant-step chunks and scan partitions) without caring which
// backend produced the points.
package gpubackend

import (
	"context"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
	"btc_bsgs/internal/pool"
)

// Backend computes k*G for a batch of scalars, on whichever device it
// wraps. A CPU backend is always available; a CUDA backend is only
// compiled in by the "cuda" build tag and may still report itself
// unavailable at runtime (no device, no driver).
type Backend interface {
	Name() string
	Available() bool
	ScalarBaseMulBatch(scalars []field.U256) []curve.Affine
	Close() error
}

// CPUBackend runs the batch across the given worker pool using the same
// Jacobian scalar multiplication the engine itself uses; it is the
// fallback every call site can rely on unconditionally.
type CPUBackend struct {
	pool *pool.Pool
}

// NewCPUBackend builds a CPUBackend that parallelizes batches across p.
// A nil pool runs the batch on the calling goroutine.
func NewCPUBackend(p *pool.Pool) *CPUBackend {
	return &CPUBackend{pool: p}
}

func (b *CPUBackend) Name() string    { return "cpu" }
func (b *CPUBackend) Available() bool { return true }
func (b *CPUBackend) Close() error    { return nil }

// ScalarBaseMulBatch computes scalars[i]*G for every i, splitting the
// batch across the backend's pool when one is set.
func (b *CPUBackend) ScalarBaseMulBatch(scalars []field.U256) []curve.Affine {
	out := make([]curve.Affine, len(scalars))
	if b.pool == nil || len(scalars) < 2*b.pool.Workers() {
		for i, s := range scalars {
			out[i] = curve.ToAffine(curve.ScalarBaseMul(s))
		}
		return out
	}

	chunk := pool.DefaultChunkSize(0, len(scalars), b.pool.Workers())
	b.pool.ParallelFor(context.Background(), 0, len(scalars), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = curve.ToAffine(curve.ScalarBaseMul(scalars[i]))
		}
	}, chunk)
	return out
}

// Select returns the preferred backend: a working CUDA backend if the
// binary was built with the "cuda" tag and a device is present, the CPU
// backend otherwise. Callers that don't care about the distinction should
// just use this.
func Select(p *pool.Pool) Backend {
	if gpu, err := newCUDABackend(); err == nil && gpu.Available() {
		return gpu
	}
	return NewCPUBackend(p)
}
