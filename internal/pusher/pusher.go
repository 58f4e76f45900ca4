// Package pusher runs the daily-digest push pipeline: candidate query,
// selection, throttling, message building, delivery, and the push-log write.
// The pipeline mutates nothing until the final write, so a failed run is
// always safe to re-run from the top.
package pusher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant11tna/bililite/internal/config"
	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/digest"
	"github.com/ant11tna/bililite/pkg/push"
)

// Pusher orchestrates one digest push per invocation.
type Pusher struct {
	store   store.Store
	cfg     config.PushConfig
	baseURL string
	log     zerolog.Logger
}

// New creates a pusher.
func New(s store.Store, cfg config.PushConfig, baseURL string, log zerolog.Logger) *Pusher {
	return &Pusher{store: s, cfg: cfg, baseURL: baseURL, log: log}
}

// BuildNotifier resolves the configured channel. An unrecognized provider is
// a hard error: the push attempt must fail without touching the push log.
func BuildNotifier(cfg config.PushConfig) (push.Notifier, error) {
	switch cfg.Provider {
	case "serverchan":
		return push.NewServerChan(cfg.ServerChan.SendKey), nil
	case "webhook":
		return push.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Secret), nil
	}
	return nil, fmt.Errorf("unsupported push channel %q", cfg.Provider)
}

// Run executes the pipeline once. With push disabled it is a no-op; with an
// empty post-throttle digest the delivery side effect is skipped entirely.
func (p *Pusher) Run(ctx context.Context) error {
	if !p.cfg.Enabled {
		p.log.Info().Msg("push disabled, skipping")
		return nil
	}

	notifier, err := BuildNotifier(p.cfg)
	if err != nil {
		return err
	}
	return p.RunWith(ctx, notifier)
}

// Preview runs selection and throttling for a channel without delivering or
// touching the push log.
func (p *Pusher) Preview(ctx context.Context, channel string, now time.Time) ([]digest.Candidate, digest.ThrottleStats, error) {
	return p.selectDigest(ctx, channel, now)
}

func (p *Pusher) selectDigest(ctx context.Context, channel string, now time.Time) ([]digest.Candidate, digest.ThrottleStats, error) {
	candidates, err := p.store.DailyCandidates(ctx, store.CandidateOpts{
		Group: p.cfg.Daily.Group,
		Hours: p.cfg.Daily.Hours,
		Now:   now.Unix(),
	})
	if err != nil {
		return nil, digest.ThrottleStats{}, fmt.Errorf("load candidates: %w", err)
	}

	selected := digest.SelectDaily(candidates, digest.SelectOpts{
		Limit:  p.cfg.Daily.Limit,
		Sample: p.cfg.Daily.Sample,
		Seed:   p.cfg.Daily.Seed,
	})

	survivors, stats, err := digest.ApplyThrottle(
		ctx, p.store, channel, selected, p.cfg.Throttle, now.Unix())
	if err != nil {
		return nil, digest.ThrottleStats{}, fmt.Errorf("throttle: %w", err)
	}

	if p.cfg.Daily.MaxItems > 0 && len(survivors) > p.cfg.Daily.MaxItems {
		survivors = survivors[:p.cfg.Daily.MaxItems]
	}
	return survivors, stats, nil
}

// RunWith executes the pipeline against an explicit notifier.
func (p *Pusher) RunWith(ctx context.Context, notifier push.Notifier) error {
	now := time.Now()
	channel := notifier.Name()

	survivors, stats, err := p.selectDigest(ctx, channel, now)
	if err != nil {
		return err
	}

	p.log.Info().
		Str("channel", channel).
		Int("candidates", stats.Candidates).
		Int("drop_push_log_dedup", stats.DropPushLogDedup).
		Int("drop_creator_cooldown", stats.DropCreatorCooldown).
		Int("drop_min_view", stats.DropMinView).
		Int("drop_tname_cap", stats.DropTnameCap).
		Int("final", len(survivors)).
		Msg("push throttle stats")

	if len(survivors) == 0 {
		p.log.Info().Msg("no new content, delivery skipped")
		return nil
	}

	title, content := digest.BuildMessage(survivors, p.baseURL, now)
	if err := notifier.Send(ctx, &push.Message{Title: title, Content: content}); err != nil {
		// No push-log write on failure: a retried run reconsiders these.
		return fmt.Errorf("deliver digest: %w", err)
	}

	bvids := make([]string, 0, len(survivors))
	for _, v := range survivors {
		bvids = append(bvids, v.Bvid)
	}
	inserted, err := p.store.RecordPush(ctx, channel, bvids, now.Unix())
	if err != nil {
		return fmt.Errorf("record push: %w", err)
	}

	p.log.Info().Int("delivered", len(survivors)).Int("logged", inserted).
		Str("channel", channel).Msg("digest pushed")
	return nil
}
