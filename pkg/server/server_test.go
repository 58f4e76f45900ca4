package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/source"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	defaults := DailyDefaults{Hours: 24, Limit: 50}
	srv := httptest.NewServer(New(db, defaults, 0, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv, db
}

func seed(t *testing.T, db *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, db.UpsertCreator(ctx, store.Creator{
		UID: 1, Name: "up", GroupName: "必看", Priority: 1, Weight: 2, Enabled: true,
	}))
	require.NoError(t, db.UpsertVideo(ctx, source.Video{
		Bvid: "BV1", UID: 1, AuthorName: "up", Title: "hello",
		PubTS: now - 3600, URL: "https://example.com/BV1", Tname: "游戏",
	}, now))
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var got map[string]string
	code := getJSON(t, srv.URL+"/health", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", got["status"])
}

func TestVideosEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	var got struct {
		Count int           `json:"count"`
		Data  []store.Video `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/videos", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, got.Count)
	require.Equal(t, "BV1", got.Data[0].Bvid)

	// Bad state filter is a 400, not an empty 200.
	var errBody map[string]string
	code = getJSON(t, srv.URL+"/api/videos?state=NOPE", &errBody)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestDailyPreviewEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	var got struct {
		Count      int `json:"count"`
		Candidates int `json:"candidates"`
	}
	code := getJSON(t, srv.URL+"/api/daily?limit=10", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, got.Count)
	require.Equal(t, 1, got.Candidates)
}

func TestCreatorsEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	var got struct {
		Count int             `json:"count"`
		Data  []store.Creator `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/creators", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, got.Count)

	var updated map[string]int
	code = postJSON(t, srv.URL+"/api/creators", `[{"uid":1,"enabled":false}]`, &updated)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, updated["updated"])

	code = getJSON(t, srv.URL+"/api/creators", &got)
	require.Equal(t, http.StatusOK, code)
	require.False(t, got.Data[0].Enabled)

	// Invalid bodies reject.
	var errBody map[string]string
	code = postJSON(t, srv.URL+"/api/creators", `[]`, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
	code = postJSON(t, srv.URL+"/api/creators", `[{"enabled":true}]`, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestCreatorGroupsEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	var got struct {
		Data []string `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/creator-groups", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"必看"}, got.Data)
}

func TestStateEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	var set map[string]string
	code := postJSON(t, srv.URL+"/api/state", `{"bvid":"BV1","state":"STAR"}`, &set)
	require.Equal(t, http.StatusOK, code)

	var got struct {
		Count int                `json:"count"`
		Data  []store.VideoState `json:"data"`
	}
	code = getJSON(t, srv.URL+"/api/state?bvid=BV1", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, got.Count)
	require.Equal(t, "STAR", got.Data[0].State)

	var errBody map[string]string
	code = postJSON(t, srv.URL+"/api/state", `{"bvid":"BV1","state":"NOPE"}`, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
	code = postJSON(t, srv.URL+"/api/state", `{"state":"STAR"}`, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestStatsEndpoints(t *testing.T) {
	srv, db := newTestServer(t)
	seed(t, db)

	_, err := db.RecordPush(context.Background(), "serverchan", []string{"BV1"}, time.Now().Unix())
	require.NoError(t, err)

	var overview store.Overview
	code := getJSON(t, srv.URL+"/api/stats/overview", &overview)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, overview.PushedInWindow)

	var creators struct {
		Count int                 `json:"count"`
		Data  []store.CreatorStat `json:"data"`
	}
	code = getJSON(t, srv.URL+"/api/stats/creators", &creators)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, creators.Count)
	require.Equal(t, 1, creators.Data[0].PushedCount)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/videos", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
