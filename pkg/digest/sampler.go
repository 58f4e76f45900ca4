package digest

import (
	"math/rand"
	"time"
)

// Weighted pairs a sampling weight with a payload.
type Weighted[T any] struct {
	Weight  int
	Payload T
}

// NewRand returns a rand.Rand for one selection run. A non-nil seed makes the
// run reproducible; nil falls back to a time-based seed.
func NewRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// SampleWithoutReplacement draws up to k payloads from items, each draw
// weight-proportional over the remaining pool. Weights below 1 count as 1.
// The result carries no duplicates and is at most min(k, len(items)) long;
// its order is the draw order, callers re-sort for presentation.
func SampleWithoutReplacement[T any](items []Weighted[T], k int, rng *rand.Rand) []T {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	pool := make([]Weighted[T], len(items))
	copy(pool, items)

	var chosen []T
	for len(pool) > 0 && len(chosen) < k {
		total := 0
		for _, it := range pool {
			total += effectiveWeight(it.Weight)
		}

		pick := rng.Float64() * float64(total)
		acc := 0.0
		idx := len(pool) - 1
		for i, it := range pool {
			acc += float64(effectiveWeight(it.Weight))
			if acc >= pick {
				idx = i
				break
			}
		}

		chosen = append(chosen, pool[idx].Payload)
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return chosen
}

func effectiveWeight(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
