package pusher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ant11tna/bililite/internal/config"
	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/push"
	"github.com/ant11tna/bililite/pkg/source"
)

// fakeNotifier records sends and optionally fails them.
type fakeNotifier struct {
	sent []push.Message
	fail error
}

func (f *fakeNotifier) Name() string { return "serverchan" }

func (f *fakeNotifier) Send(_ context.Context, m *push.Message) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, *m)
	return nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVideos(t *testing.T, s store.Store, n int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, s.UpsertCreator(ctx, store.Creator{
		UID: 1, Name: "up", Priority: 1, Weight: 1, Enabled: true,
	}))
	for i := 0; i < n; i++ {
		v := source.Video{
			Bvid:  "BV" + string(rune('A'+i)),
			UID:   1,
			Title: "video",
			PubTS: now - int64(i)*60,
			URL:   "https://example.com",
			Tname: "游戏",
		}
		require.NoError(t, s.UpsertVideo(ctx, v, now))
	}
}

func pushCfg() config.PushConfig {
	return config.PushConfig{
		Enabled:  true,
		Provider: "serverchan",
		Daily: config.DailyConfig{
			Hours: 24,
			Limit: 50,
		},
	}
}

func TestRunWithDeliversAndLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	seedVideos(t, db, 1)

	p := New(db, pushCfg(), "http://127.0.0.1:9000", zerolog.Nop())
	n := &fakeNotifier{}

	require.NoError(t, p.RunWith(ctx, n))
	require.Len(t, n.sent, 1)
	require.Contains(t, n.sent[0].Title, "今日必看（1条）")

	pushed, err := db.PushedBvids(ctx, "serverchan", []string{"BVA"})
	require.NoError(t, err)
	require.True(t, pushed["BVA"])
}

func TestRunWithSecondRunSkipsDelivery(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	seedVideos(t, db, 1)

	p := New(db, pushCfg(), "http://127.0.0.1:9000", zerolog.Nop())
	n := &fakeNotifier{}

	require.NoError(t, p.RunWith(ctx, n))
	require.NoError(t, p.RunWith(ctx, n))

	// Everything was already pushed, so no second message went out.
	require.Len(t, n.sent, 1)
}

func TestRunWithFailedDeliveryLeavesLogEmpty(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	seedVideos(t, db, 1)

	p := New(db, pushCfg(), "http://127.0.0.1:9000", zerolog.Nop())
	n := &fakeNotifier{fail: errors.New("boom")}

	err := p.RunWith(ctx, n)
	require.Error(t, err)

	pushed, err := db.PushedBvids(ctx, "serverchan", []string{"BVA"})
	require.NoError(t, err)
	require.False(t, pushed["BVA"], "failed delivery must not be logged")

	// A retry after the outage delivers the same content.
	n.fail = nil
	require.NoError(t, p.RunWith(ctx, n))
	require.Len(t, n.sent, 1)
}

func TestRunWithMaxItemsCap(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	seedVideos(t, db, 1)

	// A second creator so the digest would have two entries without the cap.
	require.NoError(t, db.UpsertCreator(ctx, store.Creator{
		UID: 2, Name: "other", Enabled: true,
	}))
	require.NoError(t, db.UpsertVideo(ctx, source.Video{
		Bvid: "BVZ", UID: 2, Title: "video", PubTS: time.Now().Unix(), URL: "u",
	}, time.Now().Unix()))

	cfg := pushCfg()
	cfg.Daily.MaxItems = 1

	p := New(db, cfg, "http://127.0.0.1:9000", zerolog.Nop())
	n := &fakeNotifier{}

	require.NoError(t, p.RunWith(ctx, n))
	require.Len(t, n.sent, 1)
	require.Contains(t, n.sent[0].Title, "（1条）")
}

func TestRunDisabledIsNoop(t *testing.T) {
	db := newTestStore(t)

	cfg := pushCfg()
	cfg.Enabled = false

	p := New(db, cfg, "http://127.0.0.1:9000", zerolog.Nop())
	require.NoError(t, p.Run(context.Background()))
}

func TestBuildNotifier(t *testing.T) {
	cfg := pushCfg()
	n, err := BuildNotifier(cfg)
	require.NoError(t, err)
	require.Equal(t, "serverchan", n.Name())

	cfg.Provider = "webhook"
	n, err = BuildNotifier(cfg)
	require.NoError(t, err)
	require.Equal(t, "webhook", n.Name())

	cfg.Provider = "telegram"
	_, err = BuildNotifier(cfg)
	require.Error(t, err)
}

func TestPreviewDoesNotTouchPushLog(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	seedVideos(t, db, 1)

	p := New(db, pushCfg(), "http://127.0.0.1:9000", zerolog.Nop())

	items, stats, err := p.Preview(ctx, "serverchan", time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, stats.Candidates)

	pushed, err := db.PushedBvids(ctx, "serverchan", []string{"BVA"})
	require.NoError(t, err)
	require.False(t, pushed["BVA"])
}
