package das

import (
	"math/rand/v2"
	"sync"
)

// indexSampler draws fragment indices uniformly at random.
type indexSampler struct {
	lk  sync.Mutex
	rng *rand.Rand
}

func newIndexSampler(src rand.Source) *indexSampler {
	return &indexSampler{rng: rand.New(src)}
}

// sample draws n indices from [0, total) with replacement and appends index
// 0, so the result always has n+1 entries and may repeat indices.
func (s *indexSampler) sample(total uint32, n uint) []uint32 {
	indices := make([]uint32, 0, n+1)

	s.lk.Lock()
	for range n {
		indices = append(indices, s.rng.Uint32N(total))
	}
	s.lk.Unlock()

	return append(indices, 0)
}
