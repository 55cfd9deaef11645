package bsgs

import (
	"fmt"
	"runtime"
)

// Mode selects the giant-step traversal order (§4.3).
type Mode uint8

const (
	ModeSequential Mode = iota
	ModeBackward
	ModeBothways
	ModeRandom
	ModeDance
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeBackward:
		return "backward"
	case ModeBothways:
		return "bothways"
	case ModeRandom:
		return "random"
	case ModeDance:
		return "dance"
	default:
		return "unknown"
	}
}

// Compression selects which public-key encoding(s) hit verification
// compares against for Hash160 targets.
type Compression uint8

const (
	CompressionCompressed Compression = iota
	CompressionUncompressed
	CompressionBoth
)

// Params holds the tunables of §3's BSGSParams.
type Params struct {
	// M is the baby-step table size; 0 selects the automatic
	// m = ceil(sqrt(N/K)) from §4.3 step 1. A value set explicitly by the
	// caller is never silently overridden (§7).
	M uint64

	// K is the memory/time trade-off factor; K>1 shrinks m by sqrt(K) at
	// the cost of more giant steps. Must be >= 1.
	K uint32

	Mode        Mode
	Compression Compression

	BloomBitsPerItem float64
	BloomHashCount   int
	MaxMemoryBytes   uint64
	ThreadCount      int

	// Endomorphism enables the φ-branch probe of §4.3 step 5.
	Endomorphism bool

	// RandomSeed seeds the deterministic shuffle used by ModeRandom, so
	// runs (and tests) are reproducible.
	RandomSeed int64
}

// DefaultParams returns sensible defaults: automatic m, K=1, sequential
// mode, one thread per CPU, endomorphism enabled.
func DefaultParams() Params {
	return Params{
		K:            1,
		Mode:         ModeSequential,
		Compression:  CompressionBoth,
		ThreadCount:  runtime.NumCPU(),
		Endomorphism: true,
		RandomSeed:   1,
	}
}

// Validate checks the params for internal consistency. Range-dependent
// checks (m vs N) happen at Start, since they need the range.
func (p Params) Validate() error {
	if p.K == 0 {
		return fmt.Errorf("bsgs: K must be >= 1, got 0")
	}
	if p.ThreadCount < 0 {
		return fmt.Errorf("bsgs: thread count must be >= 0, got %d", p.ThreadCount)
	}
	return nil
}
