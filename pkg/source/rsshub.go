package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSHub collects creator videos from an RSSHub instance. The route template
// contains a {uid} placeholder, e.g. "/bilibili/user/video/{uid}".
type RSSHub struct {
	client        *http.Client
	parser        *gofeed.Parser
	baseURL       string
	routeTemplate string
}

// NewRSSHub creates an RSSHub collector.
func NewRSSHub(baseURL, routeTemplate string) *RSSHub {
	return &RSSHub{
		client:        &http.Client{Timeout: 30 * time.Second},
		parser:        gofeed.NewParser(),
		baseURL:       strings.TrimRight(baseURL, "/"),
		routeTemplate: routeTemplate,
	}
}

func (r *RSSHub) Name() string { return "rsshub" }

func (r *RSSHub) FetchCreatorVideos(ctx context.Context, uid int64, limit int) ([]Video, error) {
	route := strings.ReplaceAll(r.routeTemplate, "{uid}", fmt.Sprintf("%d", uid))
	feedURL := r.baseURL + "/" + strings.TrimLeft(route, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rsshub request uid=%d: %w", uid, err)
	}
	req.Header.Set("User-Agent", "bililite/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rsshub uid=%d: %w", uid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rsshub uid=%d status %d", uid, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rsshub feed uid=%d: %w", uid, err)
	}

	var out []Video
	for _, entry := range parsed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}

		pubTS := time.Now().Unix()
		if entry.PublishedParsed != nil {
			pubTS = entry.PublishedParsed.Unix()
		} else if entry.UpdatedParsed != nil {
			pubTS = entry.UpdatedParsed.Unix()
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		// The feed rarely carries a bvid directly; fall back to the last URL
		// segment, then to a synthesized key.
		bvid := ""
		if link != "" {
			parts := strings.Split(strings.TrimRight(link, "/"), "/")
			bvid = parts[len(parts)-1]
		}
		if bvid == "" {
			bvid = fmt.Sprintf("RSS%d%d", uid, pubTS)
		}

		out = append(out, Video{
			Bvid:        bvid,
			UID:         uid,
			Title:       entry.Title,
			PubTS:       pubTS,
			URL:         link,
			Description: entry.Description,
		})
	}
	return out, nil
}
