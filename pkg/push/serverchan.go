package push

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const serverChanEndpoint = "https://sctapi.ftqq.com"

// ServerChan sends digests through the Server酱 push service.
type ServerChan struct {
	client  *http.Client
	baseURL string
	sendKey string
}

// NewServerChan creates a serverchan notifier.
func NewServerChan(sendKey string) *ServerChan {
	return &ServerChan{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: serverChanEndpoint,
		sendKey: sendKey,
	}
}

// NewServerChanWithBaseURL is used by tests to point at a local endpoint.
func NewServerChanWithBaseURL(sendKey, baseURL string) *ServerChan {
	sc := NewServerChan(sendKey)
	sc.baseURL = strings.TrimRight(baseURL, "/")
	return sc
}

func (s *ServerChan) Name() string { return "serverchan" }

func (s *ServerChan) Send(ctx context.Context, m *Message) error {
	if s.sendKey == "" {
		return fmt.Errorf("serverchan sendkey not configured")
	}

	form := url.Values{}
	form.Set("title", m.Title)
	form.Set("desp", m.Content)

	endpoint := fmt.Sprintf("%s/%s.send", s.baseURL, s.sendKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create serverchan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send serverchan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("serverchan status %d", resp.StatusCode)
	}
	return nil
}
