package gpubackend

import (
	"fmt"
	"os"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
)

// WindowSize is the number of points per window chunk; a 256-bit scalar
// split into 16-bit windows needs 16 chunks of 2^16 precomputed points
// each, trading 67MB of device memory for doing any scalar_base_mul in
// 16 point additions instead of 256 doublings.
const (
	WindowChunks = 16
	WindowSize   = 1 << 16
)

// WindowTable holds WindowChunks*WindowSize precomputed points: chunk i,
// entry j holds (j+1) * 2^(16*i) * G. A CUDA kernel (or a CPU fallback)
// reconstructs k*G for any 256-bit k by summing one entry per 16-bit
// window of k, avoiding per-scalar doubling entirely.
type WindowTable struct {
	X [][WindowSize][32]byte
	Y [][WindowSize][32]byte
}

// BuildWindowTable computes the table by repeated point addition: the
// base of chunk i is 2^16 times the base of chunk i-1, and each chunk's
// entries are that base added to itself successively.
func BuildWindowTable(progress func(chunk int)) (*WindowTable, error) {
	wt := &WindowTable{
		X: make([][WindowSize][32]byte, WindowChunks),
		Y: make([][WindowSize][32]byte, WindowChunks),
	}

	base := curve.FromAffine(curve.G)
	for chunk := 0; chunk < WindowChunks; chunk++ {
		if progress != nil {
			progress(chunk)
		}

		cur := base
		for j := 0; j < WindowSize; j++ {
			a := curve.ToAffine(cur)
			wt.X[chunk][j] = a.X.ToBytes()
			wt.Y[chunk][j] = a.Y.ToBytes()
			cur = curve.PointAdd(cur, base)
		}

		// cur is now (WindowSize+1)*base; the next chunk's base is
		// WindowSize*base, i.e. cur - base.
		base = curve.PointAdd(cur, base.Neg())
	}

	return wt, nil
}

// Save writes the table as two flat binary files, chunk-major, entry
// order within a chunk, 32 big-endian bytes per coordinate.
func (wt *WindowTable) Save(xPath, yPath string) error {
	xBuf := make([]byte, 0, WindowChunks*WindowSize*32)
	yBuf := make([]byte, 0, WindowChunks*WindowSize*32)
	for c := 0; c < WindowChunks; c++ {
		for j := 0; j < WindowSize; j++ {
			xBuf = append(xBuf, wt.X[c][j][:]...)
			yBuf = append(yBuf, wt.Y[c][j][:]...)
		}
	}
	if err := os.WriteFile(xPath, xBuf, 0644); err != nil {
		return fmt.Errorf("gpubackend: writing window table X: %w", err)
	}
	if err := os.WriteFile(yPath, yBuf, 0644); err != nil {
		return fmt.Errorf("gpubackend: writing window table Y: %w", err)
	}
	return nil
}

// LoadWindowTable reads a table previously written by Save.
func LoadWindowTable(xPath, yPath string) (*WindowTable, error) {
	xb, err := os.ReadFile(xPath)
	if err != nil {
		return nil, fmt.Errorf("gpubackend: reading window table X: %w", err)
	}
	yb, err := os.ReadFile(yPath)
	if err != nil {
		return nil, fmt.Errorf("gpubackend: reading window table Y: %w", err)
	}

	const expect = WindowChunks * WindowSize * 32
	if len(xb) != expect || len(yb) != expect {
		return nil, fmt.Errorf("gpubackend: window table size mismatch: got (%d,%d), want %d each", len(xb), len(yb), expect)
	}

	wt := &WindowTable{
		X: make([][WindowSize][32]byte, WindowChunks),
		Y: make([][WindowSize][32]byte, WindowChunks),
	}
	off := 0
	for c := 0; c < WindowChunks; c++ {
		for j := 0; j < WindowSize; j++ {
			copy(wt.X[c][j][:], xb[off:off+32])
			copy(wt.Y[c][j][:], yb[off:off+32])
			off += 32
		}
	}
	return wt, nil
}

// PointAt returns the table entry (entry+1)*2^(16*chunk)*G as an affine
// point, for verification and for the CPU-side kernel fallback.
func (wt *WindowTable) PointAt(chunk, entry int) (curve.Affine, error) {
	if chunk < 0 || chunk >= WindowChunks || entry < 0 || entry >= WindowSize {
		return curve.Affine{}, fmt.Errorf("gpubackend: window index out of range: chunk=%d entry=%d", chunk, entry)
	}
	x, err := field.FromBytesFp(wt.X[chunk][entry][:])
	if err != nil {
		return curve.Affine{}, err
	}
	y, err := field.FromBytesFp(wt.Y[chunk][entry][:])
	if err != nil {
		return curve.Affine{}, err
	}
	return curve.Affine{X: x, Y: y}, nil
}

// ScalarBaseMul reconstructs k*G by summing, for each of the 16 windows
// of k (16 bits each, little-endian order), the table entry for that
// window's nonzero 16-bit value; a zero window contributes nothing. This is
// the CPU-side mirror of the kernel the CUDA backend launches, used both
// as a fallback and to cross-check device output.
func (wt *WindowTable) ScalarBaseMul(k field.U256) (curve.Jacobian, error) {
	acc := curve.InfinityJacobian()
	for chunk := 0; chunk < WindowChunks; chunk++ {
		w := windowAt(k, chunk)
		if w == 0 {
			continue
		}
		p, err := wt.PointAt(chunk, int(w-1))
		if err != nil {
			return curve.Jacobian{}, err
		}
		acc = curve.PointAdd(acc, curve.FromAffine(p))
	}
	return acc, nil
}

func windowAt(k field.U256, chunk int) uint32 {
	limbIdx := chunk / 2
	limbs := k.Limbs()
	limb := limbs[limbIdx]
	if chunk%2 == 0 {
		return limb & 0xFFFF
	}
	return limb >> 16
}
