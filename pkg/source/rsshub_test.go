package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>某UP主的视频投稿</title>
  <item>
    <title>第一个视频</title>
    <link>https://www.bilibili.com/video/BV1xx411c7mD</link>
    <description>desc one</description>
    <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>第二个视频</title>
    <link>https://www.bilibili.com/video/BV1yy411c7mE/</link>
    <pubDate>Sun, 23 Aug 2026 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestRSSHubFetchCreatorVideos(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	src := NewRSSHub(srv.URL, "/bilibili/user/video/{uid}")
	videos, err := src.FetchCreatorVideos(context.Background(), 12345, 10)
	require.NoError(t, err)

	require.Equal(t, "/bilibili/user/video/12345", gotPath)
	require.Len(t, videos, 2)

	require.Equal(t, "BV1xx411c7mD", videos[0].Bvid)
	require.Equal(t, int64(12345), videos[0].UID)
	require.Equal(t, "第一个视频", videos[0].Title)
	require.Equal(t, "desc one", videos[0].Description)
	require.NotZero(t, videos[0].PubTS)

	// Trailing slash in the link still yields the bvid segment.
	require.Equal(t, "BV1yy411c7mE", videos[1].Bvid)
}

func TestRSSHubFetchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	src := NewRSSHub(srv.URL, "/bilibili/user/video/{uid}")
	videos, err := src.FetchCreatorVideos(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
}

func TestRSSHubFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewRSSHub(srv.URL, "/bilibili/user/video/{uid}")
	_, err := src.FetchCreatorVideos(context.Background(), 1, 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestStubFetchCreatorVideos(t *testing.T) {
	src := NewStub()

	videos, err := src.FetchCreatorVideos(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Len(t, videos, 3)

	for _, v := range videos {
		require.Equal(t, int64(7), v.UID)
		require.NotNil(t, v.Stats.View)
		require.NotEmpty(t, v.Tags)
	}

	// The stub tops out at five items regardless of the limit.
	videos, err = src.FetchCreatorVideos(context.Background(), 7, 100)
	require.NoError(t, err)
	require.Len(t, videos, 5)
}
