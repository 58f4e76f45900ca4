package source

import (
	"context"
)

// Stats holds engagement counters for a video. Nil fields mean the source
// did not report the counter, not that it is zero.
type Stats struct {
	View  *int64 `json:"view"`
	Like  *int64 `json:"like"`
	Reply *int64 `json:"reply"`
}

// Video is the normalized unit every collector produces.
type Video struct {
	Bvid        string   `json:"bvid"`
	UID         int64    `json:"uid"`
	AuthorName  string   `json:"author_name"`
	Title       string   `json:"title"`
	PubTS       int64    `json:"pub_ts"`
	DurationSec int64    `json:"duration_sec"`
	URL         string   `json:"url"`
	CoverURL    string   `json:"cover_url"`
	Description string   `json:"description"`
	Tname       string   `json:"tname"`
	Stats       Stats    `json:"stats"`
	Tags        []string `json:"tags"`
}

// Source fetches recent videos for a single tracked creator.
type Source interface {
	Name() string
	FetchCreatorVideos(ctx context.Context, uid int64, limit int) ([]Video, error)
}
