package post

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultUsername is used when a row has no username under any alias.
const DefaultUsername = "unknown"

// Alias lists, in resolution order: English API field name, localized
// sheet header, then the canonical relational column name.
var (
	PlatformKeys = []string{"platform", "Platform"}
	UsernameKeys = []string{"Channel", "Username", "ユーザー名", "username"}
	DateKeys     = []string{"PublishedAt", "PostedAt", "CreatedAt", "Date", "Timestamp", "投稿日時", "post_date"}
	ContentKeys  = []string{"Description", "Text", "Caption", "本文", "content"}
	LikesKeys    = []string{"LikeCount", "Likes", "いいね数", "likes"}
	CommentsKeys = []string{"CommentCount", "Comments", "返信数", "comments"}
	SharesKeys   = []string{"RetweetCount", "Shares", "リツイート数", "shares"}
	CategoryKeys = []string{"Keyword", "キーワード", "menu_keyword"}
	MediaKeys    = []string{"Thumbnail", "MediaUrl", "media_url"}
	URLKeys      = []string{"URL", "パーマリンク", "post_url"}
)

// Lookup returns the first alias in keys that is present in row with a
// non-empty value. Values are coerced to strings; nil counts as absent.
func Lookup(row RawRow, keys []string) (string, bool) {
	for _, key := range keys {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		return s, true
	}
	return "", false
}

// lookupString returns the resolved alias value or def.
func lookupString(row RawRow, keys []string, def string) string {
	if s, ok := Lookup(row, keys); ok {
		return s
	}
	return def
}

// lookupCount resolves an alias and parses it as a non-negative count.
func lookupCount(row RawRow, keys []string) int {
	s, ok := Lookup(row, keys)
	if !ok {
		return 0
	}
	return ParseCount(s)
}

// Normalize maps a raw row into a Post. hint is the platform the row's
// source belongs to, such as the sheet it was read from; a known hint wins
// over the row's own platform label.
// Dates without an explicit zone are read in loc (UTC when nil).
// Every row becomes a Post; validity is decided separately by IsValid.
func Normalize(row RawRow, hint Platform, loc *time.Location) Post {
	label := string(hint)
	if !hint.Known() {
		label, _ = Lookup(row, PlatformKeys)
	}

	p := Post{
		Platform:        ParsePlatform(label),
		Username:        lookupString(row, UsernameKeys, DefaultUsername),
		Content:         lookupString(row, ContentKeys, ""),
		Likes:           lookupCount(row, LikesKeys),
		Comments:        lookupCount(row, CommentsKeys),
		Shares:          lookupCount(row, SharesKeys),
		CategoryKeyword: lookupString(row, CategoryKeys, ""),
		MediaURL:        lookupString(row, MediaKeys, ""),
		PostURL:         lookupString(row, URLKeys, ""),
	}

	if raw, ok := Lookup(row, DateKeys); ok {
		p.RawDate = raw
		if t, ok := ParseDate(raw, loc); ok {
			p.PostDate = t
		}
	}

	return p
}

// Record is a raw row paired with the platform of the table it came from.
type Record struct {
	Row  RawRow   `json:"row"`
	Hint Platform `json:"platform_hint,omitempty"`
}

// NormalizeAll normalizes records and applies the validity filter in one
// pass. It returns the valid posts in input order and the number dropped.
func NormalizeAll(records []Record, loc *time.Location) ([]Post, int) {
	posts := make([]Post, 0, len(records))
	dropped := 0
	for _, rec := range records {
		p := Normalize(rec.Row, rec.Hint, loc)
		if !IsValid(p) {
			dropped++
			continue
		}
		posts = append(posts, p)
	}
	return posts, dropped
}
