package bloom

// DefaultShards is the default number of shards a Partitioned filter
// splits its keyspace into (§4.2).
const DefaultShards = 256

// Partitioned splits the keyspace of xhashes into S shards by the top 8
// bits of the hash, each with its own Filter (and thus its own internal
// lock), so concurrent build from multiple threads contends on at most
// one shard lock per insert.
type Partitioned struct {
	shards []*Filter
}

// NewPartitioned builds a partitioned filter sized for a total of n
// expected items spread evenly across shards shards at combined
// false-positive rate p.
func NewPartitioned(n int, p float64, shards int) *Partitioned {
	if shards < 1 {
		shards = DefaultShards
	}
	perShard := n / shards
	if perShard < 1 {
		perShard = 1
	}
	pf := &Partitioned{shards: make([]*Filter, shards)}
	for i := range pf.shards {
		pf.shards[i] = NewFilter(perShard, p)
	}
	return pf
}

// shardIndex selects a shard from the top 8 bits of the 64-bit hash. The
// in-shard probe positions are derived from the whole hash, top bits
// included.
func (pf *Partitioned) shardIndex(h64 uint64) int {
	top := h64 >> 56 // top 8 bits
	return int(top) % len(pf.shards)
}

// AddHash inserts a precomputed hash, touching exactly one shard's lock.
func (pf *Partitioned) AddHash(h64 uint64) {
	pf.shards[pf.shardIndex(h64)].AddHash(h64)
}

// Add inserts x, touching exactly one shard's lock.
func (pf *Partitioned) Add(x []byte) {
	pf.AddHash(hash64(x))
}

// TestHash probes exactly one shard.
func (pf *Partitioned) TestHash(h64 uint64) bool {
	return pf.shards[pf.shardIndex(h64)].TestHash(h64)
}

// Test is TestHash for raw bytes.
func (pf *Partitioned) Test(x []byte) bool {
	return pf.TestHash(hash64(x))
}

// Shards returns the number of shards.
func (pf *Partitioned) Shards() int { return len(pf.shards) }
