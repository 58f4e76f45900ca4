// Package server provides the HTTP API.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant11tna/bililite/internal/store"
	"github.com/ant11tna/bililite/pkg/digest"
)

// Server provides the HTTP API.
type Server struct {
	store store.Store
	daily DailyDefaults
	port  int
	log   zerolog.Logger
}

// DailyDefaults are the selection parameters used when a /api/daily request
// does not override them.
type DailyDefaults struct {
	Group  string
	Hours  int
	Limit  int
	Sample int
	Seed   *int64
}

// New creates a new HTTP server.
func New(s store.Store, daily DailyDefaults, port int, log zerolog.Logger) *Server {
	if port == 0 {
		port = 9000
	}
	return &Server{
		store: s,
		daily: daily,
		port:  port,
		log:   log,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/videos", s.handleVideos)
	mux.HandleFunc("/api/daily", s.handleDaily)
	mux.HandleFunc("/api/creators", s.handleCreators)
	mux.HandleFunc("/api/creator-groups", s.handleCreatorGroups)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/stats/overview", s.handleStatsOverview)
	mux.HandleFunc("/api/stats/creators", s.handleStatsCreators)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	opts := store.VideoListOpts{
		Query:           q.Get("q"),
		Group:           q.Get("group"),
		State:           q.Get("state"),
		Tag:             q.Get("tag"),
		Sort:            q.Get("sort"),
		Limit:           queryInt(q.Get("limit"), 50),
		Offset:          queryInt(q.Get("offset"), 0),
		IncludeDisabled: q.Get("include_disabled") == "1" || q.Get("include_disabled") == "true",
	}
	if uid := q.Get("uid"); uid != "" {
		opts.UID = int64(queryInt(uid, 0))
	}
	if v := q.Get("view_min"); v != "" {
		n := int64(queryInt(v, 0))
		opts.ViewMin = &n
	}
	if v := q.Get("view_max"); v != "" {
		n := int64(queryInt(v, 0))
		opts.ViewMax = &n
	}
	if opts.State != "" && !store.ValidState(opts.State) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown state %q", opts.State)})
		return
	}

	videos, err := s.store.ListVideos(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  videos,
		"count": len(videos),
	})
}

// handleDaily previews today's selection without pushing or logging anything.
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	group := s.daily.Group
	if g := q.Get("group"); g != "" {
		group = g
	}
	hours := queryInt(q.Get("hours"), s.daily.Hours)
	limit := queryInt(q.Get("limit"), s.daily.Limit)
	sample := queryInt(q.Get("sample"), s.daily.Sample)

	seed := s.daily.Seed
	if v := q.Get("seed"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = &n
		}
	}

	candidates, err := s.store.DailyCandidates(r.Context(), store.CandidateOpts{
		Group: group,
		Hours: hours,
		Now:   time.Now().Unix(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	selected := digest.SelectDaily(candidates, digest.SelectOpts{
		Limit:  limit,
		Sample: sample,
		Seed:   seed,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       selected,
		"count":      len(selected),
		"candidates": len(candidates),
	})
}

func (s *Server) handleCreators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		creators, err := s.store.ListCreators(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  creators,
			"count": len(creators),
		})

	case http.MethodPost:
		var updates []store.CreatorUpdate
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if len(updates) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty update list"})
			return
		}
		for _, u := range updates {
			if u.UID == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "update missing uid"})
				return
			}
		}
		if err := s.store.ApplyCreatorUpdates(r.Context(), updates); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": len(updates)})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleCreatorGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  groups,
		"count": len(groups),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		states, err := s.store.ListVideoStates(r.Context(), store.StateListOpts{
			Bvid:   q.Get("bvid"),
			State:  q.Get("state"),
			Limit:  queryInt(q.Get("limit"), 200),
			Offset: queryInt(q.Get("offset"), 0),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  states,
			"count": len(states),
		})

	case http.MethodPost:
		var req struct {
			Bvid  string `json:"bvid"`
			State string `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if req.Bvid == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing bvid"})
			return
		}
		if !store.ValidState(req.State) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("unknown state %q", req.State)})
			return
		}
		if err := s.store.SetVideoState(r.Context(), req.Bvid, req.State, time.Now().Unix()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"bvid": req.Bvid, "state": req.State})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	overview, err := s.store.StatsOverview(r.Context(), store.StatsOpts{
		Days:    queryInt(q.Get("days"), 7),
		Channel: channelParam(q.Get("channel")),
		Now:     time.Now().Unix(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleStatsCreators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	stats, err := s.store.CreatorStats(r.Context(), store.StatsOpts{
		Days:    queryInt(q.Get("days"), 30),
		Channel: channelParam(q.Get("channel")),
		Limit:   queryInt(q.Get("limit"), 200),
		Now:     time.Now().Unix(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  stats,
		"count": len(stats),
	})
}

func channelParam(v string) string {
	if v == "" {
		return "serverchan"
	}
	return v
}

func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
