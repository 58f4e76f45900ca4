package digest

import (
	"context"
	"fmt"
	"strings"
)

// UnknownTname is the shared bucket for candidates with a blank category.
const UnknownTname = "(unknown)"

// PushLogView is the read access the throttle needs over prior deliveries.
type PushLogView interface {
	// PushedBvids reports which of the given bvids were already pushed on channel.
	PushedBvids(ctx context.Context, channel string, bvids []string) (map[string]bool, error)
	// RecentPushedUIDs returns creators that had any video pushed on channel
	// since the given timestamp.
	RecentPushedUIDs(ctx context.Context, channel string, since int64) (map[int64]bool, error)
}

// ThrottleConfig tunes the filter cascade. Zero disables a stage; negative
// values are treated as zero.
type ThrottleConfig struct {
	CreatorCooldownHours int   `yaml:"creator_cooldown_hours" json:"creator_cooldown_hours"`
	MinView              int64 `yaml:"min_view" json:"min_view"`
	TnameMaxPerPush      int   `yaml:"tname_max_per_push" json:"tname_max_per_push"`
}

// ThrottleStats attributes every dropped candidate to exactly one stage.
type ThrottleStats struct {
	Candidates          int `json:"candidates"`
	DropPushLogDedup    int `json:"drop_push_log_dedup"`
	DropCreatorCooldown int `json:"drop_creator_cooldown"`
	DropMinView         int `json:"drop_min_view"`
	DropTnameCap        int `json:"drop_tname_cap"`
	Final               int `json:"final"`
}

// ApplyThrottle runs the four-stage filter cascade in its fixed order:
// push-log dedup, creator cooldown, minimum view floor, per-category cap.
// Each stage sees only the survivors of the previous one.
func ApplyThrottle(
	ctx context.Context,
	log PushLogView,
	channel string,
	candidates []Candidate,
	cfg ThrottleConfig,
	now int64,
) ([]Candidate, ThrottleStats, error) {
	stats := ThrottleStats{Candidates: len(candidates)}

	cooldownHours := cfg.CreatorCooldownHours
	if cooldownHours < 0 {
		cooldownHours = 0
	}
	minView := cfg.MinView
	if minView < 0 {
		minView = 0
	}
	tnameCap := cfg.TnameMaxPerPush
	if tnameCap < 0 {
		tnameCap = 0
	}

	// Stage 1: push-log dedup. Unconditional.
	var bvids []string
	for _, c := range candidates {
		if c.Bvid != "" {
			bvids = append(bvids, c.Bvid)
		}
	}
	pushed := map[string]bool{}
	if len(bvids) > 0 {
		var err error
		pushed, err = log.PushedBvids(ctx, channel, bvids)
		if err != nil {
			return nil, stats, fmt.Errorf("load pushed bvids: %w", err)
		}
	}
	var stage1 []Candidate
	for _, c := range candidates {
		if pushed[c.Bvid] {
			stats.DropPushLogDedup++
			continue
		}
		stage1 = append(stage1, c)
	}

	// Stage 2: creator cooldown.
	var stage2 []Candidate
	if cooldownHours > 0 {
		coolUIDs, err := log.RecentPushedUIDs(ctx, channel, now-int64(cooldownHours)*3600)
		if err != nil {
			return nil, stats, fmt.Errorf("load cooldown uids: %w", err)
		}
		for _, c := range stage1 {
			if coolUIDs[c.UID] {
				stats.DropCreatorCooldown++
				continue
			}
			stage2 = append(stage2, c)
		}
	} else {
		stage2 = stage1
	}

	// Stage 3: minimum view floor. Missing view counts are let through to
	// avoid punishing freshly published videos.
	var stage3 []Candidate
	for _, c := range stage2 {
		if minView > 0 && c.View != nil && *c.View < minView {
			stats.DropMinView++
			continue
		}
		stage3 = append(stage3, c)
	}

	// Stage 4: per-category cap, greedy in candidate order.
	var stage4 []Candidate
	counts := make(map[string]int)
	for _, c := range stage3 {
		if tnameCap <= 0 {
			stage4 = append(stage4, c)
			continue
		}
		bucket := strings.TrimSpace(c.Tname)
		if bucket == "" {
			bucket = UnknownTname
		}
		if counts[bucket] >= tnameCap {
			stats.DropTnameCap++
			continue
		}
		counts[bucket]++
		stage4 = append(stage4, c)
	}

	stats.Final = len(stage4)
	return stage4, stats, nil
}
