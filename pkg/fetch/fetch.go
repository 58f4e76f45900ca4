// Package fetch runs one collection pass over the enabled creators.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant11tna/bililite/internal/config"
	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/source"
)

// Fetcher collects videos for every enabled creator through one source.
type Fetcher struct {
	store    store.Store
	src      source.Source
	limit    int
	sleepMin time.Duration
	sleepMax time.Duration
	log      zerolog.Logger
}

// New creates a fetcher.
func New(s store.Store, src source.Source, cfg config.FetchConfig, log zerolog.Logger) *Fetcher {
	limit := cfg.PerCreatorLimit
	if limit <= 0 {
		limit = 10
	}
	return &Fetcher{
		store:    s,
		src:      src,
		limit:    limit,
		sleepMin: time.Duration(cfg.PoliteSleepMinMS) * time.Millisecond,
		sleepMax: time.Duration(cfg.PoliteSleepMaxMS) * time.Millisecond,
		log:      log,
	}
}

// SyncCreators upserts the configured creator list into the store.
func SyncCreators(ctx context.Context, s store.Store, creators []config.CreatorConfig) error {
	for _, c := range creators {
		err := s.UpsertCreator(ctx, store.Creator{
			UID:       c.UID,
			Name:      c.Name,
			GroupName: c.Group,
			Priority:  c.Priority,
			Weight:    c.Weight,
			Enabled:   c.IsEnabled(),
		})
		if err != nil {
			return fmt.Errorf("sync creator %d: %w", c.UID, err)
		}
	}
	return nil
}

// Run fetches videos for every enabled creator and upserts them. It returns
// the number of creators visited and videos written; per-creator errors are
// logged and skipped so one bad upstream does not starve the rest.
func (f *Fetcher) Run(ctx context.Context) (creators, videos int, err error) {
	enabled, err := f.store.EnabledCreators(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load enabled creators: %w", err)
	}

	for _, c := range enabled {
		if ctx.Err() != nil {
			return creators, videos, ctx.Err()
		}

		fetchedTS := time.Now().Unix()
		vids, err := f.src.FetchCreatorVideos(ctx, c.UID, f.limit)
		if err != nil {
			f.log.Warn().Err(err).Int64("uid", c.UID).Msg("fetch creator failed")
			continue
		}

		for _, v := range vids {
			if err := f.store.UpsertVideo(ctx, v, fetchedTS); err != nil {
				f.log.Warn().Err(err).Str("bvid", v.Bvid).Msg("upsert video failed")
				continue
			}
			if err := f.store.ReplaceTags(ctx, v.Bvid, v.Tags); err != nil {
				f.log.Warn().Err(err).Str("bvid", v.Bvid).Msg("replace tags failed")
			}
			videos++
		}

		if err := f.store.TouchCreatorFetched(ctx, c.UID, fetchedTS); err != nil {
			f.log.Warn().Err(err).Int64("uid", c.UID).Msg("touch creator failed")
		}
		creators++
		f.log.Debug().Int64("uid", c.UID).Int("videos", len(vids)).Msg("creator fetched")

		f.politeSleep(ctx)
	}

	f.log.Info().Int("creators", creators).Int("videos", videos).
		Str("source", f.src.Name()).Msg("fetch pass done")
	return creators, videos, nil
}

func (f *Fetcher) politeSleep(ctx context.Context) {
	if f.sleepMax <= 0 {
		return
	}
	d := f.sleepMin
	if f.sleepMax > f.sleepMin {
		d += time.Duration(rand.Int63n(int64(f.sleepMax - f.sleepMin)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
