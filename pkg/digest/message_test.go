package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatView(t *testing.T) {
	tests := []struct {
		name string
		view *int64
		want string
	}{
		{"nil", nil, "-"},
		{"zero", view(0), "0"},
		{"raw", view(9_999), "9999"},
		{"wan", view(10_000), "1.0万"},
		{"wan fraction", view(123_456), "12.3万"},
		{"yi", view(100_000_000), "1.0亿"},
		{"yi fraction", view(250_000_000), "2.5亿"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatView(tt.view))
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := int64(1_700_000_000)

	tests := []struct {
		name string
		ts   int64
		want string
	}{
		{"just now", now - 30, "刚刚"},
		{"minutes", now - 5*60, "5分钟前"},
		{"hours", now - 3*3600, "3小时前"},
		{"days", now - 2*86400, "2天前"},
		{"old", now - 30*86400, time.Unix(now-30*86400, 0).Format("2006-01-02")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TimeAgo(tt.ts, now))
		})
	}
}

func TestFormatAuthorAndTname(t *testing.T) {
	require.Equal(t, "某UP主", FormatAuthor("某UP主", 123))
	require.Equal(t, "uid=123", FormatAuthor("", 123))

	require.Equal(t, "游戏", FormatTname("游戏"))
	require.Equal(t, "未分区", FormatTname(""))
	require.Equal(t, "未分区", FormatTname("   "))
}

func TestTruncateTitle(t *testing.T) {
	require.Equal(t, "short", TruncateTitle("short", 60))

	long := strings.Repeat("标", 70)
	got := TruncateTitle(long, 60)
	require.Equal(t, 61, len([]rune(got)))
	require.True(t, strings.HasSuffix(got, "…"))
}

func TestBuildBodyEmpty(t *testing.T) {
	require.Equal(t, NoContentBody, BuildBody(nil, "http://x", 0))
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	videos := []Candidate{
		{
			Bvid:       "BV1",
			UID:        100,
			AuthorName: "测试UP",
			Title:      "一个视频",
			PubTS:      now.Unix() - 3600,
			URL:        "https://www.bilibili.com/video/BV1",
			Tname:      "游戏",
			View:       view(23_000),
		},
	}

	title, content := BuildMessage(videos, "http://127.0.0.1:9000", now)
	require.Equal(t, "Bililite · 今日必看（1条）· 2026-08-31", title)
	require.Contains(t, content, "作者：测试UP")
	require.Contains(t, content, "播放：2.3万")
	require.Contains(t, content, "时间：1小时前")
	require.Contains(t, content, "分区：游戏")
	require.Contains(t, content, "home_url: http://127.0.0.1:9000/")
}

func TestBuildMessageEmpty(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	title, content := BuildMessage(nil, "http://127.0.0.1:9000", now)
	require.Equal(t, "Bililite · 今日必看（0条）· 2026-08-31", title)
	require.Contains(t, content, "无新内容")
	require.Contains(t, content, "http://127.0.0.1:9000/")
}
