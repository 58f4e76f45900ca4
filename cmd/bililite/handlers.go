package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant11tna/bililite/internal/config"
	"github.com/ant11tna/bililite/internal/pusher"
	"github.com/ant11tna/bililite/internal/scheduler"
	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/digest"
	"github.com/ant11tna/bililite/pkg/fetch"
	"github.com/ant11tna/bililite/pkg/server"
	"github.com/ant11tna/bililite/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	db, err := store.New(cfg.App.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Fetch.Source {
	case "stub":
		return source.NewStub(), nil
	case "rsshub":
		return source.NewRSSHub(cfg.RSSHub.BaseURL, cfg.RSSHub.RouteTemplate), nil
	}
	return nil, fmt.Errorf("unknown fetch source %q", cfg.Fetch.Source)
}

func dailyDefaults(cfg *config.Config) server.DailyDefaults {
	return server.DailyDefaults{
		Group:  cfg.Push.Daily.Group,
		Hours:  cfg.Push.Daily.Hours,
		Limit:  cfg.Push.Daily.Limit,
		Sample: cfg.Push.Daily.Sample,
		Seed:   cfg.Push.Daily.Seed,
	}
}

func runFetch(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fetch.SyncCreators(ctx, db, cfg.Creators); err != nil {
		return fmt.Errorf("sync creators: %w", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	f := fetch.New(db, src, cfg.Fetch, log)
	creators, videos, err := f.Run(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	log.Info().Int("creators", creators).Int("videos", videos).Msg("fetch complete")
	return nil
}

func runPush(ctx context.Context, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	p := pusher.New(db, cfg.Push, cfg.App.BaseURL, log)

	if dryRun {
		channel := cfg.Push.Provider
		now := time.Now()
		items, stats, err := p.Preview(ctx, channel, now)
		if err != nil {
			return fmt.Errorf("preview digest: %w", err)
		}

		title, content := digest.BuildMessage(items, cfg.App.BaseURL, now)
		fmt.Printf("%s\n\n%s\n", title, content)
		fmt.Fprintf(os.Stderr,
			"\ncandidates=%d dropped(dedup=%d cooldown=%d min_view=%d tname_cap=%d) final=%d\n",
			stats.Candidates, stats.DropPushLogDedup, stats.DropCreatorCooldown,
			stats.DropMinView, stats.DropTnameCap, len(items))
		return nil
	}

	notifier, err := pusher.BuildNotifier(cfg.Push)
	if err != nil {
		return err
	}
	return p.RunWith(ctx, notifier)
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, dailyDefaults(cfg), port, log)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fetch.SyncCreators(ctx, db, cfg.Creators); err != nil {
		return fmt.Errorf("sync creators: %w", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	f := fetch.New(db, src, cfg.Fetch, log)
	p := pusher.New(db, cfg.Push, cfg.App.BaseURL, log)
	sched := scheduler.New(f, p, cfg.Fetch.ParseInterval(), cfg.Push.PushAt, log)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("scheduler exited")
		}
	}()

	srv := server.New(db, dailyDefaults(cfg), port, log)
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
	}()

	return srv.ListenAndServe()
}
