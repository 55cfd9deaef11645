package gpubackend

import (
	"math/big"
	"path/filepath"
	"testing"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
	"btc_bsgs/internal/pool"
)

func u256FromInt64(v int64) field.U256 {
	b := big.NewInt(v)
	var buf [32]byte
	b.FillBytes(buf[:])
	u, err := field.FromBytes(buf[:])
	if err != nil {
		panic(err)
	}
	return u
}

func TestCPUBackendMatchesDirectScalarMul(t *testing.T) {
	scalars := []field.U256{
		u256FromInt64(1),
		u256FromInt64(2),
		u256FromInt64(12345),
		u256FromInt64(999999),
	}

	b := NewCPUBackend(nil)
	got := b.ScalarBaseMulBatch(scalars)
	if len(got) != len(scalars) {
		t.Fatalf("expected %d results, got %d", len(scalars), len(got))
	}
	for i, s := range scalars {
		want := curve.ToAffine(curve.ScalarBaseMul(s))
		if got[i] != want {
			t.Fatalf("scalar %d: expected %+v, got %+v", i, want, got[i])
		}
	}
}

func TestCPUBackendParallelMatchesSequential(t *testing.T) {
	scalars := make([]field.U256, 5000)
	for i := range scalars {
		scalars[i] = u256FromInt64(int64(i + 1))
	}

	p := pool.New(4)
	defer p.Shutdown()
	b := NewCPUBackend(p)
	got := b.ScalarBaseMulBatch(scalars)

	for i, s := range scalars {
		want := curve.ToAffine(curve.ScalarBaseMul(s))
		if got[i] != want {
			t.Fatalf("scalar %d: expected %+v, got %+v", i, want, got[i])
		}
	}
}

func TestCPUBackendNameAndAvailability(t *testing.T) {
	b := NewCPUBackend(nil)
	if b.Name() != "cpu" {
		t.Fatalf("expected name cpu, got %s", b.Name())
	}
	if !b.Available() {
		t.Fatalf("expected CPU backend to always be available")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestSelectFallsBackToCPUWithoutCUDA(t *testing.T) {
	b := Select(nil)
	if b.Name() != "cpu" {
		t.Fatalf("expected Select to fall back to cpu backend, got %s", b.Name())
	}
}

func TestWindowTableScalarBaseMulMatchesDirect(t *testing.T) {
	wt, err := BuildWindowTable(nil)
	if err != nil {
		t.Fatalf("building window table: %v", err)
	}

	cases := []int64{0, 1, 2, 65536, 65537, 131072, 123456789}
	for _, v := range cases {
		k := u256FromInt64(v)
		got, err := wt.ScalarBaseMul(k)
		if err != nil {
			t.Fatalf("scalar %d: %v", v, err)
		}
		want := curve.ScalarBaseMul(k)
		if curve.ToAffine(got) != curve.ToAffine(want) {
			t.Fatalf("scalar %d: window table result does not match direct scalar mul", v)
		}
	}
}

func TestWindowTableZeroScalarIsInfinity(t *testing.T) {
	wt, err := BuildWindowTable(nil)
	if err != nil {
		t.Fatalf("building window table: %v", err)
	}
	got, err := wt.ScalarBaseMul(u256FromInt64(0))
	if err != nil {
		t.Fatalf("scalar 0: %v", err)
	}
	a := curve.ToAffine(got)
	if !a.Infinity {
		t.Fatalf("expected scalar 0 to map to the point at infinity, got %+v", a)
	}
}

func TestWindowTableSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	xPath := filepath.Join(dir, "gx.bin")
	yPath := filepath.Join(dir, "gy.bin")

	wt, err := BuildWindowTable(nil)
	if err != nil {
		t.Fatalf("building window table: %v", err)
	}
	if err := wt.Save(xPath, yPath); err != nil {
		t.Fatalf("saving window table: %v", err)
	}

	loaded, err := LoadWindowTable(xPath, yPath)
	if err != nil {
		t.Fatalf("loading window table: %v", err)
	}

	for _, v := range []int64{1, 65536, 500000} {
		k := u256FromInt64(v)
		want, err := wt.ScalarBaseMul(k)
		if err != nil {
			t.Fatalf("scalar %d: %v", v, err)
		}
		got, err := loaded.ScalarBaseMul(k)
		if err != nil {
			t.Fatalf("scalar %d: %v", v, err)
		}
		if curve.ToAffine(want) != curve.ToAffine(got) {
			t.Fatalf("scalar %d: loaded table disagrees with original", v)
		}
	}
}

func TestWindowTablePointAtOutOfRange(t *testing.T) {
	wt, err := BuildWindowTable(nil)
	if err != nil {
		t.Fatalf("building window table: %v", err)
	}
	if _, err := wt.PointAt(-1, 0); err == nil {
		t.Fatalf("expected error for negative chunk")
	}
	if _, err := wt.PointAt(WindowChunks, 0); err == nil {
		t.Fatalf("expected error for out-of-range chunk")
	}
	if _, err := wt.PointAt(0, WindowSize); err == nil {
		t.Fatalf("expected error for out-of-range entry")
	}
}
