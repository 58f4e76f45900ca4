package store

const schema = `
CREATE TABLE IF NOT EXISTS creators (
    uid           INTEGER PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    group_name    TEXT NOT NULL DEFAULT '',
    priority      INTEGER NOT NULL DEFAULT 0,
    weight        INTEGER NOT NULL DEFAULT 100,
    enabled       INTEGER NOT NULL DEFAULT 1,
    last_fetch_ts INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_creators_enabled ON creators(enabled);
CREATE INDEX IF NOT EXISTS idx_creators_group ON creators(group_name);

CREATE TABLE IF NOT EXISTS videos (
    bvid         TEXT PRIMARY KEY,
    uid          INTEGER NOT NULL,
    author_name  TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    pub_ts       INTEGER NOT NULL,
    duration_sec INTEGER NOT NULL DEFAULT 0,
    url          TEXT NOT NULL DEFAULT '',
    cover_url    TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    tname        TEXT NOT NULL DEFAULT '',
    view         INTEGER,
    like_cnt     INTEGER,
    reply_cnt    INTEGER,
    fetched_ts   INTEGER NOT NULL,
    stats_ts     INTEGER
);

CREATE INDEX IF NOT EXISTS idx_videos_uid_pub ON videos(uid, pub_ts DESC);
CREATE INDEX IF NOT EXISTS idx_videos_pub ON videos(pub_ts DESC);
CREATE INDEX IF NOT EXISTS idx_videos_view ON videos(view);

CREATE TABLE IF NOT EXISTS video_tags (
    bvid TEXT NOT NULL,
    tag  TEXT NOT NULL,
    PRIMARY KEY(bvid, tag)
);

CREATE INDEX IF NOT EXISTS idx_video_tags_tag ON video_tags(tag);

CREATE TABLE IF NOT EXISTS video_state (
    bvid       TEXT PRIMARY KEY,
    state      TEXT NOT NULL,
    updated_ts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_video_state_state ON video_state(state);

CREATE TABLE IF NOT EXISTS push_log (
    bvid      TEXT NOT NULL,
    channel   TEXT NOT NULL,
    pushed_ts INTEGER NOT NULL,
    PRIMARY KEY(bvid, channel)
);

CREATE INDEX IF NOT EXISTS idx_push_log_channel_ts ON push_log(channel, pushed_ts);
`
