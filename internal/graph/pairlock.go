package graph

import (
	"hash/fnv"
	"sync"

	"github.com/NuoNuo720/TheNuo2/internal/models"
)

const lockStripes = 64

// pairLock serializes mutations on a single unordered user pair without
// serializing unrelated pairs. Both directions of a pair hash to the same
// stripe because the key is canonicalized first.
type pairLock struct {
	stripes [lockStripes]sync.Mutex
}

func (p *pairLock) lock(a, b models.UserID) func() {
	x, y := models.CanonicalPair(a, b)
	h := fnv.New32a()
	h.Write([]byte(x))
	h.Write([]byte{0})
	h.Write([]byte(y))
	mu := &p.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
