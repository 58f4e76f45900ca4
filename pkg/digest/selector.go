package digest

import (
	"sort"
)

// SelectOpts controls daily selection.
type SelectOpts struct {
	// Limit is the maximum digest size. Zero or negative yields an empty digest.
	Limit int
	// Sample enables weighted sampling over the normal tier; 0 falls back to
	// plain recency ordering.
	Sample int
	// Seed makes sampling reproducible when non-nil.
	Seed *int64
}

// SelectDaily produces the day's ranked video list: one video per creator,
// must-watch creators first, the remainder filled from the normal tier either
// by recency or by weighted sampling.
func SelectDaily(candidates []Candidate, opts SelectOpts) []Candidate {
	if opts.Limit <= 0 || len(candidates) == 0 {
		return nil
	}

	// One entry per creator: keep the most recently published candidate,
	// preserving first-appearance order so sampling stays reproducible for
	// identical input order.
	latestIdx := make(map[int64]int)
	var latest []Candidate
	for _, c := range candidates {
		if i, ok := latestIdx[c.UID]; ok {
			if c.PubTS > latest[i].PubTS {
				latest[i] = c
			}
			continue
		}
		latestIdx[c.UID] = len(latest)
		latest = append(latest, c)
	}

	var mustWatch, normal []Candidate
	for _, c := range latest {
		if c.CreatorPriority > 0 {
			mustWatch = append(mustWatch, c)
		} else {
			normal = append(normal, c)
		}
	}

	sort.SliceStable(mustWatch, func(i, j int) bool {
		if mustWatch[i].CreatorPriority != mustWatch[j].CreatorPriority {
			return mustWatch[i].CreatorPriority > mustWatch[j].CreatorPriority
		}
		return mustWatch[i].PubTS > mustWatch[j].PubTS
	})

	selected := mustWatch
	if len(selected) > opts.Limit {
		return selected[:opts.Limit]
	}

	remaining := opts.Limit - len(selected)
	if remaining == 0 {
		return selected
	}

	if opts.Sample == 0 {
		sort.SliceStable(normal, func(i, j int) bool {
			return normal[i].PubTS > normal[j].PubTS
		})
		if len(normal) > remaining {
			normal = normal[:remaining]
		}
		return append(selected, normal...)
	}

	pool := make([]Weighted[Candidate], len(normal))
	for i, c := range normal {
		pool[i] = Weighted[Candidate]{Weight: c.CreatorWeight, Payload: c}
	}
	picked := SampleWithoutReplacement(pool, remaining, NewRand(opts.Seed))

	// Stable presentation: sampled subset is re-sorted by recency.
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].PubTS > picked[j].PubTS
	})
	return append(selected, picked...)
}
