package ops

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/post"
)

// SortKey selects the post list ordering.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByLikes    SortKey = "likes"
	SortByComments SortKey = "comments"
)

// ParseSortKey parses a sort key; empty means SortByDate.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByLikes:
		return SortByLikes, nil
	case SortByComments:
		return SortByComments, nil
	}
	return "", errors.NewInvalidField("sort", fmt.Sprintf("unknown sort %q, use date, likes or comments", s))
}

// dateRank orders posts by date; undated posts rank as the Unix epoch.
func dateRank(p post.Post) int64 {
	if !p.HasDate() {
		return 0
	}
	return p.PostDate.UnixNano()
}

// Sort returns a descending copy of posts ordered by key. The sort is
// stable, so equal keys keep their input order.
func Sort(posts []post.Post, key SortKey) []post.Post {
	out := slices.Clone(posts)
	if out == nil {
		out = []post.Post{}
	}

	var cmp func(a, b post.Post) int
	switch key {
	case SortByLikes:
		cmp = func(a, b post.Post) int { return b.Likes - a.Likes }
	case SortByComments:
		cmp = func(a, b post.Post) int { return b.Comments - a.Comments }
	default:
		cmp = func(a, b post.Post) int {
			ra, rb := dateRank(a), dateRank(b)
			switch {
			case ra > rb:
				return -1
			case ra < rb:
				return 1
			}
			return 0
		}
	}

	slices.SortStableFunc(out, cmp)
	return out
}

// PlatformPosts is the slice of an ordered list belonging to one platform.
type PlatformPosts struct {
	Platform post.Platform `json:"platform"`
	Posts    []post.Post   `json:"posts"`
}

// PartitionByPlatform splits posts into one group per canonical platform,
// preserving order within each group. Unknown-platform posts are left out.
func PartitionByPlatform(posts []post.Post) []PlatformPosts {
	groups := make([]PlatformPosts, len(post.Platforms))
	for i, p := range post.Platforms {
		groups[i] = PlatformPosts{Platform: p, Posts: []post.Post{}}
	}
	for _, p := range posts {
		if i := p.Platform.Index(); i >= 0 {
			groups[i].Posts = append(groups[i].Posts, p)
		}
	}
	return groups
}

// Latest returns the n newest posts of each platform.
func Latest(posts []post.Post, n int) []PlatformPosts {
	if n <= 0 {
		n = DefaultLatestPerPlatform
	}
	groups := PartitionByPlatform(Sort(posts, SortByDate))
	for i := range groups {
		if len(groups[i].Posts) > n {
			groups[i].Posts = groups[i].Posts[:n]
		}
	}
	return groups
}

// Age returns how long ago p was posted relative to now. ok is false for
// undated posts.
func Age(p post.Post, now time.Time) (time.Duration, bool) {
	if !p.HasDate() {
		return 0, false
	}
	return now.Sub(p.PostDate), true
}

// AgeUnit is the granularity of an AgeLabel.
type AgeUnit string

const (
	AgeUnknown AgeUnit = "unknown"
	AgeHours   AgeUnit = "hours"
	AgeDays    AgeUnit = "days"
)

// AgeLabel is a coarse "posted N units ago" value.
type AgeLabel struct {
	Unit AgeUnit `json:"unit"`
	N    int     `json:"n"`
}

// RelativeAge buckets the age of p into whole hours below a day (never
// less than 1) and whole days beyond. Undated posts are AgeUnknown.
func RelativeAge(p post.Post, now time.Time) AgeLabel {
	d, ok := Age(p, now)
	if !ok {
		return AgeLabel{Unit: AgeUnknown}
	}
	hours := int(d / time.Hour)
	switch {
	case hours < 1:
		return AgeLabel{Unit: AgeHours, N: 1}
	case hours < 24:
		return AgeLabel{Unit: AgeHours, N: hours}
	}
	return AgeLabel{Unit: AgeDays, N: hours / 24}
}
