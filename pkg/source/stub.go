package source

import (
	"context"
	"fmt"
	"time"
)

// Stub produces synthetic videos. Useful for local runs and tests where no
// upstream is reachable.
type Stub struct{}

// NewStub creates a stub collector.
func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) FetchCreatorVideos(_ context.Context, uid int64, limit int) ([]Video, error) {
	now := time.Now().Unix()
	n := limit
	if n > 5 {
		n = 5
	}

	var out []Video
	for i := 0; i < n; i++ {
		bvid := fmt.Sprintf("BVSTUB%d%d", uid, i)
		view := int64(1000 + i*123)
		like := int64(10 + i)
		reply := int64(1)
		out = append(out, Video{
			Bvid:  bvid,
			UID:   uid,
			Title: fmt.Sprintf("[stub] uid=%d video %d", uid, i),
			PubTS: now - int64(i)*86400,
			URL:   fmt.Sprintf("https://www.bilibili.com/video/%s", bvid),
			Stats: Stats{View: &view, Like: &like, Reply: &reply},
			Tags:  []string{"stub", "demo"},
		})
	}
	return out, nil
}
