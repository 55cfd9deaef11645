package rangekey

import (
	"math/big"
	"time"
)

// Partitioner groups the scalar-range splitting strategies §4.4 names
// beyond the even Split above.
type Partitioner struct{}

// SplitEqual divides the range's size by n with the remainder distributed
// to the first (size mod n) chunks; it is Range.Split by another name,
// kept here so callers reach for the partitioner type uniformly.
func (Partitioner) SplitEqual(r Range, n int) ([]Range, error) {
	return r.Split(n)
}

// SplitBySize yields ceil(size/chunkSize) chunks of the given width, the
// last one possibly shorter.
func (Partitioner) SplitBySize(r Range, chunkSize *big.Int) ([]Range, error) {
	if chunkSize.Sign() <= 0 {
		chunkSize = big.NewInt(1)
	}
	size := r.Size()
	n := new(big.Int).Add(size, new(big.Int).Sub(chunkSize, big.NewInt(1)))
	n.Div(n, chunkSize)

	out := make([]Range, 0, n.Int64())
	cursor := new(big.Int).Set(r.Lo)
	for cursor.Cmp(r.Hi) <= 0 {
		end := new(big.Int).Add(cursor, chunkSize)
		end.Sub(end, big.NewInt(1))
		if end.Cmp(r.Hi) > 0 {
			end = new(big.Int).Set(r.Hi)
		}
		out = append(out, Range{Lo: new(big.Int).Set(cursor), Hi: new(big.Int).Set(end)})
		cursor = new(big.Int).Add(end, big.NewInt(1))
	}
	return out, nil
}

// OptimalChunkSize estimates a dispatch chunk width from measured
// keys/second and a target dispatch interval, so that workers report back
// roughly every targetChunkSeconds.
func (Partitioner) OptimalChunkSize(workers int, keysPerSecond float64, targetChunkSeconds time.Duration) *big.Int {
	if workers < 1 {
		workers = 1
	}
	if keysPerSecond <= 0 {
		keysPerSecond = 1
	}
	perWorkerRate := keysPerSecond / float64(workers)
	chunk := perWorkerRate * targetChunkSeconds.Seconds()
	if chunk < 1 {
		chunk = 1
	}
	return big.NewInt(int64(chunk))
}
