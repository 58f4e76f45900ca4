package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerChanSend(t *testing.T) {
	var gotPath, gotTitle, gotDesp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotTitle = r.PostForm.Get("title")
		gotDesp = r.PostForm.Get("desp")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := NewServerChanWithBaseURL("SCT_key", srv.URL)
	err := sc.Send(context.Background(), &Message{Title: "标题", Content: "内容"})
	require.NoError(t, err)

	require.Equal(t, "/SCT_key.send", gotPath)
	require.Equal(t, "标题", gotTitle)
	require.Equal(t, "内容", gotDesp)
}

func TestServerChanSendFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sc := NewServerChanWithBaseURL("SCT_key", srv.URL)
	err := sc.Send(context.Background(), &Message{Title: "t", Content: "c"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestServerChanMissingSendKey(t *testing.T) {
	sc := NewServerChan("")
	err := sc.Send(context.Background(), &Message{Title: "t", Content: "c"})
	require.Error(t, err)
}
