package bloom

import "math"

// Cascade is an ordered list of L filters of geometrically decreasing size,
// each fed identical inserts. A negative at any layer short-circuits the
// test, so the combined false-positive probability is approximately the
// product of the per-layer rates.
type Cascade struct {
	layers []*Filter
}

// DefaultCascadeLevels is the default layer count (§4.2).
const DefaultCascadeLevels = 3

// CascadeShrink is the per-level size reduction factor.
const CascadeShrink = 4

// NewCascade builds a cascading filter for n expected items at a combined
// target false-positive rate p, spread geometrically across levels layers.
func NewCascade(n int, p float64, levels int) *Cascade {
	if levels < 1 {
		levels = DefaultCascadeLevels
	}
	// Every level gets the same per-level rate p^(1/levels), an even split
	// in log-space, so the product of rates approximates p.
	perLevelP := geometricRoot(p, levels)

	c := &Cascade{layers: make([]*Filter, levels)}
	size := n
	for i := 0; i < levels; i++ {
		if size < 1 {
			size = 1
		}
		c.layers[i] = NewFilter(size, perLevelP)
		size /= CascadeShrink
	}
	return c
}

// geometricRoot returns p^(1/levels), so that levels independent layers
// each at this rate combine to approximately p.
func geometricRoot(p float64, levels int) float64 {
	if levels <= 1 {
		return p
	}
	return math.Pow(p, 1.0/float64(levels))
}

// AddHash inserts a precomputed hash into every layer.
func (c *Cascade) AddHash(h64 uint64) {
	for _, f := range c.layers {
		f.AddHash(h64)
	}
}

// Add inserts x into every layer.
func (c *Cascade) Add(x []byte) {
	h := hash64(x)
	c.AddHash(h)
}

// TestHash short-circuits on the first layer that reports absence.
func (c *Cascade) TestHash(h64 uint64) bool {
	for _, f := range c.layers {
		if !f.TestHash(h64) {
			return false
		}
	}
	return true
}

// Test is TestHash for raw bytes.
func (c *Cascade) Test(x []byte) bool {
	return c.TestHash(hash64(x))
}

// Levels returns the number of layers.
func (c *Cascade) Levels() int { return len(c.layers) }
