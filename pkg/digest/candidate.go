// Package digest turns the day's fresh videos into a small, deduplicated,
// fair, rate-limited notification payload: a weighted sampler, the daily
// selector, the push throttle, and the message builder. Everything here is
// pure computation over candidates; the store is consulted only through the
// narrow PushLogView read interface.
package digest

// Candidate is a video joined with its creator's tiering attributes,
// produced fresh at the store boundary for one selection run.
type Candidate struct {
	Bvid            string `json:"bvid" db:"bvid"`
	UID             int64  `json:"uid" db:"uid"`
	AuthorName      string `json:"author_name" db:"author_name"`
	Title           string `json:"title" db:"title"`
	PubTS           int64  `json:"pub_ts" db:"pub_ts"`
	DurationSec     int64  `json:"duration_sec" db:"duration_sec"`
	URL             string `json:"url" db:"url"`
	CoverURL        string `json:"cover_url" db:"cover_url"`
	Tname           string `json:"tname" db:"tname"`
	View            *int64 `json:"view" db:"view"`
	State           string `json:"state" db:"state"`
	CreatorPriority int    `json:"creator_priority" db:"creator_priority"`
	CreatorWeight   int    `json:"creator_weight" db:"creator_weight"`
}
