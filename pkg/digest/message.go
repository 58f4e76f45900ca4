package digest

import (
	"fmt"
	"strings"
	"time"
)

// TitleRuneLimit is the maximum rune count for a title line.
const TitleRuneLimit = 60

// NoContentBody is rendered when a digest run selects nothing; the message is
// still built so callers can surface "nothing today" instead of silence.
const NoContentBody = "（暂无内容）"

// FormatView renders a view count with magnitude suffixes: raw below 1万,
// then 万 and 亿. Unknown counts render as "-".
func FormatView(view *int64) string {
	if view == nil {
		return "-"
	}
	v := *view
	if v < 10_000 {
		return fmt.Sprintf("%d", v)
	}
	if v < 100_000_000 {
		return fmt.Sprintf("%.1f万", float64(v)/10_000)
	}
	return fmt.Sprintf("%.1f亿", float64(v)/100_000_000)
}

// TimeAgo buckets a publish timestamp relative to now: 刚刚, 分钟前, 小时前,
// 天前 within a week, then the absolute date.
func TimeAgo(ts, now int64) string {
	diff := now - ts
	switch {
	case diff < 60:
		return "刚刚"
	case diff < 3600:
		return fmt.Sprintf("%d分钟前", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%d小时前", diff/3600)
	case diff < 86400*7:
		return fmt.Sprintf("%d天前", diff/86400)
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

// FormatAuthor falls back to the uid when the author name is unknown.
func FormatAuthor(name string, uid int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("uid=%d", uid)
}

// FormatTname renders a blank category as 未分区.
func FormatTname(tname string) string {
	if strings.TrimSpace(tname) == "" {
		return "未分区"
	}
	return tname
}

// TruncateTitle cuts a title at limit runes and appends an ellipsis.
func TruncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return strings.TrimRight(string(runes[:limit]), " ") + "…"
}

// BuildBody renders one line per video plus the home link, or the fixed
// no-content body for an empty list.
func BuildBody(videos []Candidate, homeURL string, now int64) string {
	if len(videos) == 0 {
		return NoContentBody
	}

	var lines []string
	for _, v := range videos {
		lines = append(lines, fmt.Sprintf(
			"- 作者：%s | 标题：%s | 播放：%s | 时间：%s | 分区：%s | 链接：%s",
			FormatAuthor(v.AuthorName, v.UID),
			TruncateTitle(v.Title, TitleRuneLimit),
			FormatView(v.View),
			TimeAgo(v.PubTS, now),
			FormatTname(v.Tname),
			v.URL,
		))
	}
	lines = append(lines, fmt.Sprintf("\nhome_url: %s", homeURL))
	return strings.Join(lines, "\n")
}

// BuildMessage renders the digest title and content for one push run.
func BuildMessage(videos []Candidate, baseURL string, now time.Time) (title, content string) {
	today := now.Format("2006-01-02")
	if len(videos) == 0 {
		title = fmt.Sprintf("Bililite · 今日必看（0条）· %s", today)
		content = strings.Join([]string{
			"**今日必看（0条）**",
			"无新内容（均已推送或窗口内无新视频）",
			fmt.Sprintf("打开 Bililite：%s/", baseURL),
		}, "\n")
		return title, content
	}

	title = fmt.Sprintf("Bililite · 今日必看（%d条）· %s", len(videos), today)
	content = BuildBody(videos, baseURL+"/", now.Unix())
	return title, content
}
