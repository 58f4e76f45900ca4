package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ant11tna/bililite/pkg/digest"
	"github.com/ant11tna/bililite/pkg/source"
)

// Video states. Absence of a row means StateNew.
const (
	StateNew     = "NEW"
	StateRead    = "READ"
	StateLater   = "LATER"
	StateStar    = "STAR"
	StateWatched = "WATCHED"
	StateHidden  = "HIDDEN"
)

// ValidState reports whether s is a known video state.
func ValidState(s string) bool {
	switch s {
	case StateNew, StateRead, StateLater, StateStar, StateWatched, StateHidden:
		return true
	}
	return false
}

// Creator is a tracked content source.
type Creator struct {
	UID         int64  `db:"uid" json:"uid"`
	Name        string `db:"name" json:"name"`
	GroupName   string `db:"group_name" json:"group"`
	Priority    int    `db:"priority" json:"priority"`
	Weight      int    `db:"weight" json:"weight"`
	Enabled     bool   `db:"enabled" json:"enabled"`
	LastFetchTS int64  `db:"last_fetch_ts" json:"last_fetch_ts"`
}

// CreatorUpdate is a partial admin update; nil fields keep the stored value.
type CreatorUpdate struct {
	UID      int64 `json:"uid"`
	Enabled  *bool `json:"enabled"`
	Priority *int  `json:"priority"`
	Weight   *int  `json:"weight"`
}

// Video is a stored video row joined with its current state.
type Video struct {
	Bvid        string   `db:"bvid" json:"bvid"`
	UID         int64    `db:"uid" json:"uid"`
	AuthorName  string   `db:"author_name" json:"author_name"`
	Title       string   `db:"title" json:"title"`
	PubTS       int64    `db:"pub_ts" json:"pub_ts"`
	DurationSec int64    `db:"duration_sec" json:"duration_sec"`
	URL         string   `db:"url" json:"url"`
	CoverURL    string   `db:"cover_url" json:"cover_url"`
	Description string   `db:"description" json:"description"`
	Tname       string   `db:"tname" json:"tname"`
	View        *int64   `db:"view" json:"view"`
	LikeCnt     *int64   `db:"like_cnt" json:"like_cnt"`
	ReplyCnt    *int64   `db:"reply_cnt" json:"reply_cnt"`
	FetchedTS   int64    `db:"fetched_ts" json:"fetched_ts"`
	StatsTS     *int64   `db:"stats_ts" json:"stats_ts"`
	State       string   `db:"state" json:"state"`
	Tags        []string `db:"-" json:"tags"`
}

// VideoState is one explicit per-video state row.
type VideoState struct {
	Bvid      string `db:"bvid" json:"bvid"`
	State     string `db:"state" json:"state"`
	UpdatedTS int64  `db:"updated_ts" json:"updated_ts"`
}

// VideoListOpts controls video listing.
type VideoListOpts struct {
	Query           string
	UID             int64
	Group           string
	State           string
	ViewMin         *int64
	ViewMax         *int64
	Tag             string
	Sort            string // "pub" or "view"
	Limit           int
	Offset          int
	IncludeDisabled bool
}

// CandidateOpts controls the daily candidate query.
type CandidateOpts struct {
	Group string
	Hours int
	Now   int64
}

// StateListOpts controls video state listing.
type StateListOpts struct {
	Bvid   string
	State  string
	Limit  int
	Offset int
}

// TnameCount is a category with a push count.
type TnameCount struct {
	Tname string `db:"tname" json:"tname"`
	Cnt   int    `db:"cnt" json:"cnt"`
}

// CreatorCount is a creator with a push count.
type CreatorCount struct {
	UID        int64  `db:"uid" json:"uid"`
	AuthorName string `db:"author_name" json:"author_name"`
	Cnt        int    `db:"cnt" json:"cnt"`
}

// Overview summarizes push activity over a trailing window.
type Overview struct {
	WindowDays             int            `json:"window_days"`
	TotalCreators          int            `json:"total_creators"`
	EnabledCreators        int            `json:"enabled_creators"`
	PriorityCreators       int            `json:"priority_creators"`
	VideosInWindow         int            `json:"videos_in_window"`
	PushedInWindow         int            `json:"pushed_in_window"`
	DistinctCreatorsPushed int            `json:"distinct_creators_pushed"`
	TopTnamesPushed        []TnameCount   `json:"top_tnames_pushed"`
	TopCreatorsPushed      []CreatorCount `json:"top_creators_pushed"`
}

// CreatorStat is one row of the per-creator push report.
type CreatorStat struct {
	UID             int64        `json:"uid"`
	AuthorName      string       `json:"author_name"`
	Enabled         bool         `json:"enabled"`
	Priority        int          `json:"priority"`
	Weight          int          `json:"weight"`
	LastPubTS       *int64       `json:"last_pub_ts"`
	LastPushedTS    *int64       `json:"last_pushed_ts"`
	PushedCount     int          `json:"pushed_count"`
	PushedSample    []string     `json:"pushed_bvids_sample"`
	PushedTnameMix  []TnameCount `json:"pushed_tname_mix"`
	HiddenInWindow  int          `json:"hidden_count_window"`
	ReadInWindow    int          `json:"read_count_window"`
	FreshnessHours  *float64     `json:"freshness_hours"`
	SuppressionHint string       `json:"suppression_hint"`
}

// StatsOpts controls the stats queries.
type StatsOpts struct {
	Days    int
	Channel string
	Limit   int
	Now     int64
}

// Store is the persistence interface.
type Store interface {
	UpsertCreator(ctx context.Context, c Creator) error
	ListCreators(ctx context.Context) ([]Creator, error)
	EnabledCreators(ctx context.Context) ([]Creator, error)
	ApplyCreatorUpdates(ctx context.Context, updates []CreatorUpdate) error
	ListGroups(ctx context.Context) ([]string, error)
	TouchCreatorFetched(ctx context.Context, uid, ts int64) error

	UpsertVideo(ctx context.Context, v source.Video, fetchedTS int64) error
	ReplaceTags(ctx context.Context, bvid string, tags []string) error
	ListVideos(ctx context.Context, opts VideoListOpts) ([]Video, error)

	SetVideoState(ctx context.Context, bvid, state string, ts int64) error
	ListVideoStates(ctx context.Context, opts StateListOpts) ([]VideoState, error)

	DailyCandidates(ctx context.Context, opts CandidateOpts) ([]digest.Candidate, error)

	PushedBvids(ctx context.Context, channel string, bvids []string) (map[string]bool, error)
	RecentPushedUIDs(ctx context.Context, channel string, since int64) (map[int64]bool, error)
	RecordPush(ctx context.Context, channel string, bvids []string, ts int64) (int, error)

	StatsOverview(ctx context.Context, opts StatsOpts) (*Overview, error)
	CreatorStats(ctx context.Context, opts StatsOpts) ([]CreatorStat, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// A pool of connections would each get their own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertCreator writes a creator row, normalizing priority to {0,1} and
// flooring the weight at 1.
func (s *SQLiteStore) UpsertCreator(ctx context.Context, c Creator) error {
	priority := 0
	if c.Priority > 0 {
		priority = 1
	}
	weight := c.Weight
	if weight < 1 {
		weight = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO creators (uid, name, group_name, priority, weight, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			group_name = excluded.group_name,
			priority = excluded.priority,
			weight = excluded.weight,
			enabled = excluded.enabled
	`, c.UID, c.Name, c.GroupName, priority, weight, c.Enabled)
	if err != nil {
		return fmt.Errorf("upsert creator %d: %w", c.UID, err)
	}
	return nil
}

func (s *SQLiteStore) ListCreators(ctx context.Context) ([]Creator, error) {
	var creators []Creator
	err := s.db.SelectContext(ctx, &creators, "SELECT * FROM creators ORDER BY uid")
	if err != nil {
		return nil, fmt.Errorf("list creators: %w", err)
	}
	return creators, nil
}

func (s *SQLiteStore) EnabledCreators(ctx context.Context) ([]Creator, error) {
	var creators []Creator
	err := s.db.SelectContext(ctx, &creators, "SELECT * FROM creators WHERE enabled = 1 ORDER BY uid")
	if err != nil {
		return nil, fmt.Errorf("list enabled creators: %w", err)
	}
	return creators, nil
}

// ApplyCreatorUpdates applies partial updates; unknown uids are inserted with
// defaults for the unset fields.
func (s *SQLiteStore) ApplyCreatorUpdates(ctx context.Context, updates []CreatorUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin creator updates: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		var current Creator
		err := tx.GetContext(ctx, &current, "SELECT * FROM creators WHERE uid = ?", u.UID)
		missing := err != nil

		enabled := true
		priority := 0
		weight := 1
		if !missing {
			enabled = current.Enabled
			priority = current.Priority
			weight = current.Weight
		}
		if u.Enabled != nil {
			enabled = *u.Enabled
		}
		if u.Priority != nil {
			priority = *u.Priority
		}
		if u.Weight != nil {
			weight = *u.Weight
			if weight < 1 {
				weight = 1
			}
		}

		if missing {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO creators (uid, priority, weight, enabled)
				VALUES (?, ?, ?, ?)
			`, u.UID, priority, weight, enabled)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE creators SET enabled = ?, priority = ?, weight = ? WHERE uid = ?
			`, enabled, priority, weight, u.UID)
		}
		if err != nil {
			return fmt.Errorf("update creator %d: %w", u.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit creator updates: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.db.SelectContext(ctx, &groups, `
		SELECT DISTINCT group_name FROM creators
		WHERE group_name != ''
		ORDER BY group_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *SQLiteStore) TouchCreatorFetched(ctx context.Context, uid, ts int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE creators SET last_fetch_ts = ? WHERE uid = ?", ts, uid)
	if err != nil {
		return fmt.Errorf("touch creator %d: %w", uid, err)
	}
	return nil
}

// UpsertVideo writes a video row. Incoming stats merge instead of clobbering:
// a NULL incoming counter preserves the stored value, so view always reflects
// the most recently known non-null count.
func (s *SQLiteStore) UpsertVideo(ctx context.Context, v source.Video, fetchedTS int64) error {
	var statsTS *int64
	if v.Stats.View != nil || v.Stats.Like != nil || v.Stats.Reply != nil {
		statsTS = &fetchedTS
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (
			bvid, uid, author_name, title, pub_ts, duration_sec, url, cover_url,
			description, tname, view, like_cnt, reply_cnt, fetched_ts, stats_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bvid) DO UPDATE SET
			uid = excluded.uid,
			author_name = CASE WHEN excluded.author_name = '' THEN videos.author_name ELSE excluded.author_name END,
			title = excluded.title,
			pub_ts = excluded.pub_ts,
			duration_sec = excluded.duration_sec,
			url = excluded.url,
			cover_url = excluded.cover_url,
			description = excluded.description,
			tname = excluded.tname,
			view = COALESCE(excluded.view, videos.view),
			like_cnt = COALESCE(excluded.like_cnt, videos.like_cnt),
			reply_cnt = COALESCE(excluded.reply_cnt, videos.reply_cnt),
			fetched_ts = excluded.fetched_ts,
			stats_ts = COALESCE(excluded.stats_ts, videos.stats_ts)
	`, v.Bvid, v.UID, v.AuthorName, v.Title, v.PubTS, v.DurationSec, v.URL, v.CoverURL,
		v.Description, v.Tname, v.Stats.View, v.Stats.Like, v.Stats.Reply, fetchedTS, statsTS)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.Bvid, err)
	}
	return nil
}

func (s *SQLiteStore) ReplaceTags(ctx context.Context, bvid string, tags []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tags: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM video_tags WHERE bvid = ?", bvid); err != nil {
		return fmt.Errorf("clear tags %s: %w", bvid, err)
	}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO video_tags (bvid, tag) VALUES (?, ?)", bvid, t)
		if err != nil {
			return fmt.Errorf("insert tag %s/%s: %w", bvid, t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tags: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListVideos(ctx context.Context, opts VideoListOpts) ([]Video, error) {
	query := `
		SELECT v.bvid, v.uid, v.author_name, v.title, v.pub_ts, v.duration_sec,
		       v.url, v.cover_url, v.description, v.tname, v.view, v.like_cnt,
		       v.reply_cnt, v.fetched_ts, v.stats_ts,
		       COALESCE(st.state, 'NEW') AS state
		FROM videos v
		LEFT JOIN creators c ON c.uid = v.uid
		LEFT JOIN video_state st ON st.bvid = v.bvid
		WHERE 1=1`
	var args []any

	if opts.Query != "" {
		query += " AND v.title LIKE ?"
		args = append(args, "%"+opts.Query+"%")
	}
	if opts.UID != 0 {
		query += " AND v.uid = ?"
		args = append(args, opts.UID)
	}
	if !opts.IncludeDisabled {
		query += " AND c.enabled = 1"
	}
	if opts.Group != "" {
		query += " AND c.group_name = ?"
		args = append(args, opts.Group)
	}
	if opts.ViewMin != nil {
		query += " AND COALESCE(v.view, 0) >= ?"
		args = append(args, *opts.ViewMin)
	}
	if opts.ViewMax != nil {
		query += " AND COALESCE(v.view, 0) <= ?"
		args = append(args, *opts.ViewMax)
	}
	if opts.Tag != "" {
		query += " AND EXISTS (SELECT 1 FROM video_tags vt WHERE vt.bvid = v.bvid AND vt.tag = ?)"
		args = append(args, opts.Tag)
	}
	if opts.State != "" {
		query += " AND COALESCE(st.state, 'NEW') = ?"
		args = append(args, opts.State)
	} else {
		query += " AND COALESCE(st.state, 'NEW') NOT IN ('HIDDEN', 'READ')"
	}

	if opts.Sort == "view" {
		query += " ORDER BY COALESCE(v.view, 0) DESC, v.pub_ts DESC"
	} else {
		query += " ORDER BY v.pub_ts DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	var videos []Video
	if err := s.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	for i := range videos {
		tags, err := s.videoTags(ctx, videos[i].Bvid)
		if err != nil {
			return nil, err
		}
		videos[i].Tags = tags
	}
	return videos, nil
}

func (s *SQLiteStore) videoTags(ctx context.Context, bvid string) ([]string, error) {
	var tags []string
	err := s.db.SelectContext(ctx, &tags,
		"SELECT tag FROM video_tags WHERE bvid = ? ORDER BY tag", bvid)
	if err != nil {
		return nil, fmt.Errorf("list tags %s: %w", bvid, err)
	}
	return tags, nil
}

// SetVideoState upserts the explicit state of one video.
func (s *SQLiteStore) SetVideoState(ctx context.Context, bvid, state string, ts int64) error {
	if !ValidState(state) {
		return fmt.Errorf("unknown video state %q", state)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_state (bvid, state, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT(bvid) DO UPDATE SET
			state = excluded.state,
			updated_ts = excluded.updated_ts
	`, bvid, state, ts)
	if err != nil {
		return fmt.Errorf("set state %s=%s: %w", bvid, state, err)
	}
	return nil
}

func (s *SQLiteStore) ListVideoStates(ctx context.Context, opts StateListOpts) ([]VideoState, error) {
	query := "SELECT bvid, state, updated_ts FROM video_state WHERE 1=1"
	var args []any

	if opts.Bvid != "" {
		query += " AND bvid = ?"
		args = append(args, opts.Bvid)
	}
	if opts.State != "" {
		query += " AND state = ?"
		args = append(args, opts.State)
	}

	query += " ORDER BY updated_ts DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	var states []VideoState
	if err := s.db.SelectContext(ctx, &states, query, args...); err != nil {
		return nil, fmt.Errorf("list video states: %w", err)
	}
	return states, nil
}

// DailyCandidates returns the visible, fresh candidate rows for one selection
// run: enabled creators only, state not HIDDEN/READ, published within the
// freshness window, newest first. A group filter that matches no enabled
// creator is ignored rather than producing an empty digest.
func (s *SQLiteStore) DailyCandidates(ctx context.Context, opts CandidateOpts) ([]digest.Candidate, error) {
	group := opts.Group
	if group != "" {
		var n int
		err := s.db.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM creators WHERE enabled = 1 AND group_name = ?", group)
		if err != nil {
			return nil, fmt.Errorf("check group %q: %w", group, err)
		}
		if n == 0 {
			group = ""
		}
	}

	hours := opts.Hours
	if hours <= 0 {
		hours = 24
	}
	cutoff := opts.Now - int64(hours)*3600

	query := `
		SELECT v.bvid, v.uid, v.author_name, v.title, v.pub_ts, v.duration_sec,
		       v.url, v.cover_url, v.tname, v.view,
		       COALESCE(st.state, 'NEW') AS state,
		       COALESCE(c.priority, 0) AS creator_priority,
		       COALESCE(c.weight, 1) AS creator_weight
		FROM videos v
		LEFT JOIN creators c ON c.uid = v.uid
		LEFT JOIN video_state st ON st.bvid = v.bvid
		WHERE c.enabled = 1
		  AND v.pub_ts >= ?
		  AND COALESCE(st.state, 'NEW') NOT IN ('HIDDEN', 'READ')`
	args := []any{cutoff}

	if group != "" {
		query += " AND c.group_name = ?"
		args = append(args, group)
	}
	query += " ORDER BY v.pub_ts DESC LIMIT 2000"

	var candidates []digest.Candidate
	if err := s.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("daily candidates: %w", err)
	}
	return candidates, nil
}

func (s *SQLiteStore) PushedBvids(ctx context.Context, channel string, bvids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(bvids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		"SELECT bvid FROM push_log WHERE channel = ? AND bvid IN (?)", channel, bvids)
	if err != nil {
		return nil, fmt.Errorf("build pushed bvids query: %w", err)
	}

	var pushed []string
	if err := s.db.SelectContext(ctx, &pushed, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("pushed bvids: %w", err)
	}
	for _, b := range pushed {
		out[b] = true
	}
	return out, nil
}

func (s *SQLiteStore) RecentPushedUIDs(ctx context.Context, channel string, since int64) (map[int64]bool, error) {
	var uids []int64
	err := s.db.SelectContext(ctx, &uids, `
		SELECT DISTINCT v.uid
		FROM push_log pl
		JOIN videos v ON v.bvid = pl.bvid
		WHERE pl.channel = ? AND pl.pushed_ts >= ?
	`, channel, since)
	if err != nil {
		return nil, fmt.Errorf("recent pushed uids: %w", err)
	}

	out := make(map[int64]bool, len(uids))
	for _, uid := range uids {
		out[uid] = true
	}
	return out, nil
}

// RecordPush idempotently records delivered videos for a channel. Duplicate
// (bvid, channel) pairs are absorbed silently; the return value counts rows
// actually inserted.
func (s *SQLiteStore) RecordPush(ctx context.Context, channel string, bvids []string, ts int64) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin record push: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, bvid := range bvids {
		if bvid == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO push_log (bvid, channel, pushed_ts) VALUES (?, ?, ?)",
			bvid, channel, ts)
		if err != nil {
			return 0, fmt.Errorf("record push %s/%s: %w", bvid, channel, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record push: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) StatsOverview(ctx context.Context, opts StatsOpts) (*Overview, error) {
	days := opts.Days
	if days <= 0 {
		days = 7
	}
	cutoff := opts.Now - int64(days)*86400

	o := &Overview{WindowDays: days}

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&o.TotalCreators, "SELECT COUNT(*) FROM creators", nil},
		{&o.EnabledCreators, "SELECT COUNT(*) FROM creators WHERE enabled = 1", nil},
		{&o.PriorityCreators, "SELECT COUNT(*) FROM creators WHERE priority > 0", nil},
		{&o.VideosInWindow, `
			SELECT COUNT(*) FROM videos v
			LEFT JOIN video_state st ON st.bvid = v.bvid AND st.state = 'HIDDEN'
			WHERE st.bvid IS NULL AND v.pub_ts >= ?`, []any{cutoff}},
		{&o.PushedInWindow,
			"SELECT COUNT(*) FROM push_log WHERE channel = ? AND pushed_ts >= ?",
			[]any{opts.Channel, cutoff}},
		{&o.DistinctCreatorsPushed, `
			SELECT COUNT(DISTINCT v.uid) FROM push_log pl
			JOIN videos v ON v.bvid = pl.bvid
			WHERE pl.channel = ? AND pl.pushed_ts >= ?`, []any{opts.Channel, cutoff}},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, c.query, c.args...); err != nil {
			return nil, fmt.Errorf("stats overview: %w", err)
		}
	}

	err := s.db.SelectContext(ctx, &o.TopTnamesPushed, `
		SELECT COALESCE(NULLIF(TRIM(v.tname), ''), '未分区') AS tname, COUNT(*) AS cnt
		FROM push_log pl
		JOIN videos v ON v.bvid = pl.bvid
		WHERE pl.channel = ? AND pl.pushed_ts >= ?
		GROUP BY COALESCE(NULLIF(TRIM(v.tname), ''), '未分区')
		ORDER BY cnt DESC, tname ASC
		LIMIT 5
	`, opts.Channel, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stats top tnames: %w", err)
	}

	err = s.db.SelectContext(ctx, &o.TopCreatorsPushed, `
		SELECT v.uid AS uid,
		       COALESCE(NULLIF(c.name, ''), v.author_name) AS author_name,
		       COUNT(*) AS cnt
		FROM push_log pl
		JOIN videos v ON v.bvid = pl.bvid
		LEFT JOIN creators c ON c.uid = v.uid
		WHERE pl.channel = ? AND pl.pushed_ts >= ?
		GROUP BY v.uid
		ORDER BY cnt DESC, v.uid ASC
		LIMIT 10
	`, opts.Channel, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stats top creators: %w", err)
	}

	return o, nil
}

func (s *SQLiteStore) CreatorStats(ctx context.Context, opts StatsOpts) ([]CreatorStat, error) {
	days := opts.Days
	if days <= 0 {
		days = 30
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}
	cutoff := opts.Now - int64(days)*86400

	type baseRow struct {
		UID          int64  `db:"uid"`
		AuthorName   string `db:"author_name"`
		Enabled      bool   `db:"enabled"`
		Priority     int    `db:"priority"`
		Weight       int    `db:"weight"`
		PushedCount  *int   `db:"pushed_count"`
		LastPushedTS *int64 `db:"last_pushed_ts"`
		LastPubTS    *int64 `db:"last_pub_ts"`
	}

	var base []baseRow
	err := s.db.SelectContext(ctx, &base, `
		SELECT c.uid AS uid, c.name AS author_name, c.enabled AS enabled,
		       COALESCE(c.priority, 0) AS priority, COALESCE(c.weight, 1) AS weight,
		       p.pushed_count AS pushed_count, p.last_pushed_ts AS last_pushed_ts,
		       vp.last_pub_ts AS last_pub_ts
		FROM creators c
		LEFT JOIN (
			SELECT v.uid AS uid, COUNT(*) AS pushed_count, MAX(pl.pushed_ts) AS last_pushed_ts
			FROM push_log pl
			JOIN videos v ON v.bvid = pl.bvid
			WHERE pl.channel = ? AND pl.pushed_ts >= ?
			GROUP BY v.uid
		) p ON p.uid = c.uid
		LEFT JOIN (
			SELECT v.uid AS uid, MAX(v.pub_ts) AS last_pub_ts
			FROM videos v
			LEFT JOIN video_state st ON st.bvid = v.bvid AND st.state = 'HIDDEN'
			WHERE st.bvid IS NULL
			GROUP BY v.uid
		) vp ON vp.uid = c.uid
		ORDER BY COALESCE(c.priority, 0) DESC, c.enabled DESC,
		         COALESCE(p.pushed_count, 0) DESC, COALESCE(vp.last_pub_ts, 0) DESC,
		         c.uid ASC
		LIMIT ?
	`, opts.Channel, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("creator stats base: %w", err)
	}
	if len(base) == 0 {
		return nil, nil
	}

	uids := make([]int64, len(base))
	for i, r := range base {
		uids[i] = r.UID
	}

	sampleMap, err := s.pushedSamples(ctx, opts.Channel, cutoff, uids)
	if err != nil {
		return nil, err
	}
	mixMap, err := s.pushedTnameMix(ctx, opts.Channel, cutoff, uids)
	if err != nil {
		return nil, err
	}
	hiddenMap, readMap, err := s.stateCounts(ctx, cutoff, uids)
	if err != nil {
		return nil, err
	}

	out := make([]CreatorStat, 0, len(base))
	for _, r := range base {
		pushedCount := 0
		if r.PushedCount != nil {
			pushedCount = *r.PushedCount
		}

		var freshness *float64
		if r.LastPubTS != nil {
			h := float64(opts.Now-*r.LastPubTS) / 3600.0
			freshness = &h
		}

		hasNewInWindow := r.LastPubTS != nil && *r.LastPubTS >= cutoff
		hint := ""
		switch {
		case !r.Enabled:
			hint = "enabled=false"
		case pushedCount == 0 && hasNewInWindow && r.Priority > 0:
			hint = fmt.Sprintf("priority>0 但近%d天未推送(检查 cooldown/tname cap)", days)
		case pushedCount == 0 && hasNewInWindow:
			hint = fmt.Sprintf("近%d天未推送但有新视频", days)
		case r.LastPubTS == nil:
			hint = "暂无可见视频"
		}

		out = append(out, CreatorStat{
			UID:             r.UID,
			AuthorName:      r.AuthorName,
			Enabled:         r.Enabled,
			Priority:        r.Priority,
			Weight:          r.Weight,
			LastPubTS:       r.LastPubTS,
			LastPushedTS:    r.LastPushedTS,
			PushedCount:     pushedCount,
			PushedSample:    sampleMap[r.UID],
			PushedTnameMix:  mixMap[r.UID],
			HiddenInWindow:  hiddenMap[r.UID],
			ReadInWindow:    readMap[r.UID],
			FreshnessHours:  freshness,
			SuppressionHint: hint,
		})
	}
	return out, nil
}

const statSampleSize = 3

func (s *SQLiteStore) pushedSamples(ctx context.Context, channel string, cutoff int64, uids []int64) (map[int64][]string, error) {
	query, args, err := sqlx.In(`
		SELECT v.uid AS uid, pl.bvid AS bvid
		FROM push_log pl
		JOIN videos v ON v.bvid = pl.bvid
		WHERE pl.channel = ? AND pl.pushed_ts >= ? AND v.uid IN (?)
		ORDER BY v.uid ASC, pl.pushed_ts DESC, pl.bvid ASC
	`, channel, cutoff, uids)
	if err != nil {
		return nil, fmt.Errorf("build pushed samples query: %w", err)
	}

	var rows []struct {
		UID  int64  `db:"uid"`
		Bvid string `db:"bvid"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("pushed samples: %w", err)
	}

	out := make(map[int64][]string)
	for _, r := range rows {
		if len(out[r.UID]) < statSampleSize {
			out[r.UID] = append(out[r.UID], r.Bvid)
		}
	}
	return out, nil
}

func (s *SQLiteStore) pushedTnameMix(ctx context.Context, channel string, cutoff int64, uids []int64) (map[int64][]TnameCount, error) {
	query, args, err := sqlx.In(`
		SELECT v.uid AS uid,
		       COALESCE(NULLIF(TRIM(v.tname), ''), '未分区') AS tname,
		       COUNT(*) AS cnt
		FROM push_log pl
		JOIN videos v ON v.bvid = pl.bvid
		WHERE pl.channel = ? AND pl.pushed_ts >= ? AND v.uid IN (?)
		GROUP BY v.uid, COALESCE(NULLIF(TRIM(v.tname), ''), '未分区')
		ORDER BY v.uid ASC, cnt DESC, tname ASC
	`, channel, cutoff, uids)
	if err != nil {
		return nil, fmt.Errorf("build tname mix query: %w", err)
	}

	var rows []struct {
		UID   int64  `db:"uid"`
		Tname string `db:"tname"`
		Cnt   int    `db:"cnt"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("tname mix: %w", err)
	}

	out := make(map[int64][]TnameCount)
	for _, r := range rows {
		if len(out[r.UID]) < statSampleSize {
			out[r.UID] = append(out[r.UID], TnameCount{Tname: r.Tname, Cnt: r.Cnt})
		}
	}
	return out, nil
}

func (s *SQLiteStore) stateCounts(ctx context.Context, cutoff int64, uids []int64) (hidden, read map[int64]int, err error) {
	query, args, err := sqlx.In(`
		SELECT v.uid AS uid,
		       SUM(CASE WHEN st.state = 'HIDDEN' THEN 1 ELSE 0 END) AS hidden_cnt,
		       SUM(CASE WHEN st.state = 'READ' THEN 1 ELSE 0 END) AS read_cnt
		FROM video_state st
		JOIN videos v ON v.bvid = st.bvid
		WHERE st.updated_ts >= ? AND v.uid IN (?)
		GROUP BY v.uid
	`, cutoff, uids)
	if err != nil {
		return nil, nil, fmt.Errorf("build state counts query: %w", err)
	}

	var rows []struct {
		UID       int64 `db:"uid"`
		HiddenCnt int   `db:"hidden_cnt"`
		ReadCnt   int   `db:"read_cnt"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("state counts: %w", err)
	}

	hidden = make(map[int64]int)
	read = make(map[int64]int)
	for _, r := range rows {
		hidden[r.UID] = r.HiddenCnt
		read[r.UID] = r.ReadCnt
	}
	return hidden, read, nil
}
