package post

import "time"

// RawRow is an untyped source row. Keys depend on the source: sheet column
// headers (English or Japanese) or already-normalized relational columns.
type RawRow map[string]any

// Post is the canonical UGC post record. Posts are values; nothing in the
// pipeline mutates one after Normalize returns it.
type Post struct {
	// Platform is one of the canonical platforms, or Unknown
	Platform Platform `json:"platform"`

	// Username defaults to "unknown" when the row carries none
	Username string `json:"username"`

	// PostDate is the zero time when the source date is absent or unparseable
	PostDate time.Time `json:"post_date"`

	// RawDate is the source date string as it appeared in the row
	RawDate string `json:"raw_date,omitempty"`

	Content  string `json:"content"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	Shares   int    `json:"shares"`

	// CategoryKeyword is the menu/campaign tag a post is filed under
	CategoryKeyword string `json:"menu_keyword"`

	MediaURL string `json:"media_url,omitempty"`
	PostURL  string `json:"post_url,omitempty"`
}

// HasDate reports whether the post carries a usable date.
func (p Post) HasDate() bool {
	return !p.PostDate.IsZero()
}

// Engagement is likes + comments + shares.
func (p Post) Engagement() int {
	return p.Likes + p.Comments + p.Shares
}
