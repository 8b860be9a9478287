package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input string
		want  Platform
	}{
		{"youtube", YouTube},
		{"YouTube", YouTube},
		{"YOUTUBE", YouTube},
		{"  YouTube  ", YouTube},
		{"ＹｏｕＴｕｂｅ", YouTube},
		{"twitter", Twitter},
		{"Twitter", Twitter},
		{"x", Twitter},
		{"X", Twitter},
		{"instagram", Instagram},
		{"Instagram", Instagram},
		{"INSTAGRAM", Instagram},
		{"tiktok", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePlatform(tt.input); got != tt.want {
				t.Errorf("ParsePlatform(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlatformIndex(t *testing.T) {
	if YouTube.Index() != 0 || Instagram.Index() != 1 || Twitter.Index() != 2 {
		t.Errorf("unexpected canonical order: %v", Platforms)
	}
	if Unknown.Index() != -1 {
		t.Errorf("Unknown.Index() = %d, want -1", Unknown.Index())
	}
	if Unknown.Known() {
		t.Error("Unknown.Known() = true")
	}
}

func TestLookup(t *testing.T) {
	row := RawRow{
		"Channel":  "",
		"Username": nil,
		"ユーザー名":    "うどん太郎",
		"username": "ignored",
	}

	got, ok := Lookup(row, UsernameKeys)
	if !ok || got != "うどん太郎" {
		t.Errorf("Lookup = %q, %v; want %q, true", got, ok, "うどん太郎")
	}

	if _, ok := Lookup(RawRow{}, UsernameKeys); ok {
		t.Error("Lookup on empty row should report absent")
	}
}

func TestNormalize_SheetRowYouTube(t *testing.T) {
	row := RawRow{
		"Channel":      "udon_fan",
		"PublishedAt":  "2024-10-01T12:00:00Z",
		"Description":  "天ぷら最高",
		"LikeCount":    "1,234",
		"CommentCount": "56",
		"Keyword":      "天ぷら定期券",
		"Thumbnail":    "https://img.example/t.jpg",
		"URL":          "https://youtube.example/v/1",
	}

	p := Normalize(row, YouTube, tokyo)

	require.Equal(t, YouTube, p.Platform)
	require.Equal(t, "udon_fan", p.Username)
	require.True(t, p.HasDate())
	require.True(t, p.PostDate.Equal(time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, "天ぷら最高", p.Content)
	require.Equal(t, 1234, p.Likes)
	require.Equal(t, 56, p.Comments)
	require.Equal(t, 0, p.Shares)
	require.Equal(t, "天ぷら定期券", p.CategoryKeyword)
	require.Equal(t, "https://img.example/t.jpg", p.MediaURL)
	require.Equal(t, "https://youtube.example/v/1", p.PostURL)
}

func TestNormalize_JapaneseHeaders(t *testing.T) {
	row := RawRow{
		"ユーザー名":  "tw_user",
		"投稿日時":   "2024/10/02 08:30:00",
		"本文":     "白ごま担々うまい",
		"いいね数":   "12",
		"返信数":    "3",
		"リツイート数": "4",
		"キーワード":  "白ごま担々",
		"パーマリンク": "https://x.example/s/1",
	}

	p := Normalize(row, Twitter, tokyo)

	require.Equal(t, Twitter, p.Platform)
	require.Equal(t, "tw_user", p.Username)
	require.True(t, p.PostDate.Equal(time.Date(2024, 10, 2, 8, 30, 0, 0, tokyo)))
	require.Equal(t, 12, p.Likes)
	require.Equal(t, 3, p.Comments)
	require.Equal(t, 4, p.Shares)
	require.Equal(t, "白ごま担々", p.CategoryKeyword)
	require.Equal(t, "https://x.example/s/1", p.PostURL)
}

func TestNormalize_PlatformHint(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
		hint Platform
		want Platform
	}{
		{"hint wins over row label", RawRow{"platform": "x"}, YouTube, YouTube},
		{"hint wins over stray label", RawRow{"Platform": "Twitterアカウント"}, Twitter, Twitter},
		{"row label without hint", RawRow{"platform": "x"}, "", Twitter},
		{"unknown hint falls back to row", RawRow{"platform": "instagram"}, Unknown, Instagram},
		{"neither", RawRow{}, "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.row, tt.hint, nil).Platform)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	p := Normalize(RawRow{}, "", nil)

	require.Equal(t, Unknown, p.Platform)
	require.Equal(t, DefaultUsername, p.Username)
	require.False(t, p.HasDate())
	require.Empty(t, p.Content)
	require.Zero(t, p.Likes)
	require.Zero(t, p.Comments)
	require.Zero(t, p.Shares)
	require.Empty(t, p.CategoryKeyword)
}

func TestNormalize_UnparseableDateKeepsRaw(t *testing.T) {
	p := Normalize(RawRow{"PostedAt": "yesterday-ish"}, Instagram, nil)

	require.False(t, p.HasDate())
	require.Equal(t, "yesterday-ish", p.RawDate)
}

func TestNormalize_CanonicalRowIsIdempotent(t *testing.T) {
	original := Post{
		Platform:        Instagram,
		Username:        "ig_user",
		PostDate:        time.Date(2024, 9, 30, 18, 0, 0, 0, tokyo),
		Content:         "レモンぶっかけ",
		Likes:           42,
		Comments:        7,
		Shares:          1,
		CategoryKeyword: "焼き塩豚カルビの半割レモンぶっかけ",
		MediaURL:        "https://img.example/a.jpg",
		PostURL:         "https://ig.example/p/a",
	}

	row := RawRow{
		"platform":     string(original.Platform),
		"username":     original.Username,
		"post_date":    original.PostDate.Format(time.RFC3339),
		"content":      original.Content,
		"likes":        float64(original.Likes),
		"comments":     int64(original.Comments),
		"shares":       "1",
		"menu_keyword": original.CategoryKeyword,
		"media_url":    original.MediaURL,
		"post_url":     original.PostURL,
	}

	got := Normalize(row, "", tokyo)

	require.True(t, got.PostDate.Equal(original.PostDate))
	got.PostDate = original.PostDate
	got.RawDate = ""
	require.Equal(t, original, got)
}

func TestNormalizeAll(t *testing.T) {
	records := []Record{
		{Row: RawRow{"Keyword": "tempura", "LikeCount": "10"}, Hint: YouTube},
		{Row: RawRow{"Keyword": "tempura", "LikeCount": "20"}, Hint: YouTube},
		{Row: RawRow{"Keyword": "tempura", "LikeCount": "0"}, Hint: YouTube},
		{Row: RawRow{"Keyword": "", "LikeCount": "99"}, Hint: YouTube},
		{Row: RawRow{"Keyword": "キーワード設定"}, Hint: Twitter},
	}

	posts, dropped := NormalizeAll(records, nil)

	require.Len(t, posts, 3)
	require.Equal(t, 2, dropped)
	require.Equal(t, 10, posts[0].Likes)
	require.Equal(t, 20, posts[1].Likes)
	require.Equal(t, 0, posts[2].Likes)
}
