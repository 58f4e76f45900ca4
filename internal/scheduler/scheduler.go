// Package scheduler drives the periodic fetch pass and the once-daily digest
// push.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant11tna/bililite/internal/pusher"
	"github.com/ant11tna/bililite/pkg/fetch"
)

// Scheduler runs periodic collection and the daily push.
type Scheduler struct {
	fetcher  *fetch.Fetcher
	pusher   *pusher.Pusher
	interval time.Duration
	pushHour int
	pushMin  int
	pushSet  bool
	log      zerolog.Logger
}

// New creates a scheduler. pushAt is a local "HH:MM" time of day; empty or
// malformed disables the daily push.
func New(f *fetch.Fetcher, p *pusher.Pusher, interval time.Duration, pushAt string, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}

	s := &Scheduler{
		fetcher:  f,
		pusher:   p,
		interval: interval,
		log:      log,
	}

	if pushAt != "" {
		var hh, mm int
		if _, err := fmt.Sscanf(pushAt, "%d:%d", &hh, &mm); err == nil &&
			hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59 {
			s.pushHour, s.pushMin, s.pushSet = hh, mm, true
		} else {
			log.Warn().Str("push_at", pushAt).Msg("bad push_at, daily push disabled")
		}
	}
	return s
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	fetchTicker := time.NewTicker(s.interval)
	defer fetchTicker.Stop()

	// Collect immediately on start so a fresh deployment has data.
	s.log.Info().Msg("initial fetch pass")
	s.runFetch(ctx)

	pushTimer := time.NewTimer(s.untilNextPush(time.Now()))
	defer pushTimer.Stop()

	s.log.Info().Dur("fetch_interval", s.interval).Bool("daily_push", s.pushSet).
		Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-fetchTicker.C:
			s.runFetch(ctx)
		case <-pushTimer.C:
			if s.pushSet {
				if err := s.pusher.Run(ctx); err != nil {
					s.log.Error().Err(err).Msg("daily push failed")
				}
			}
			pushTimer.Reset(s.untilNextPush(time.Now()))
		}
	}
}

func (s *Scheduler) runFetch(ctx context.Context) {
	creators, videos, err := s.fetcher.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch pass failed")
		return
	}
	s.log.Info().Int("creators", creators).Int("videos", videos).Msg("fetch pass complete")
}

// untilNextPush returns the wait until the next configured push time of day,
// or a long idle wait when the daily push is disabled.
func (s *Scheduler) untilNextPush(now time.Time) time.Duration {
	if !s.pushSet {
		return 24 * time.Hour
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), s.pushHour, s.pushMin, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
