package ops

import (
	"slices"

	"github.com/hpungsan/ugcboard/internal/post"
)

// AggregateOptions tunes the aggregation variants the dashboard supports.
type AggregateOptions struct {
	// ReachPerPost is the fixed per-post reach estimate (default 1000)
	ReachPerPost int

	// ExcludeYouTubeShares drops YouTube shares from share totals and engagement
	ExcludeYouTubeShares bool

	// TopCategories truncates the category ranking (default 5)
	TopCategories int

	Series SeriesOptions
}

func (o AggregateOptions) withDefaults() AggregateOptions {
	if o.ReachPerPost <= 0 {
		o.ReachPerPost = DefaultReachPerPost
	}
	if o.TopCategories <= 0 {
		o.TopCategories = DefaultTopCategories
	}
	return o
}

// shares returns the share count that counts toward totals under o.
func (o AggregateOptions) shares(p post.Post) int {
	if o.ExcludeYouTubeShares && p.Platform == post.YouTube {
		return 0
	}
	return p.Shares
}

// engagement returns likes + comments + counted shares.
func (o AggregateOptions) engagement(p post.Post) int {
	return p.Likes + p.Comments + o.shares(p)
}

// Stats are the headline numbers of a filtered collection.
type Stats struct {
	TotalPosts        int     `json:"total_posts"`
	TotalLikes        int     `json:"total_likes"`
	TotalComments     int     `json:"total_comments"`
	TotalShares       int     `json:"total_shares"`
	AverageEngagement float64 `json:"average_engagement"`
	EstimatedReach    int     `json:"estimated_reach"`
	UniqueUsers       int     `json:"unique_users"`

	// UnknownPlatformPosts counts posts outside the three platform buckets
	UnknownPlatformPosts int `json:"unknown_platform_posts"`
}

// ComputeStats derives Stats from posts. An empty collection yields all zeros.
func ComputeStats(posts []post.Post, opts AggregateOptions) Stats {
	opts = opts.withDefaults()

	var s Stats
	users := make(map[string]struct{})
	for _, p := range posts {
		s.TotalPosts++
		s.TotalLikes += p.Likes
		s.TotalComments += p.Comments
		s.TotalShares += opts.shares(p)
		// normalization fills a missing username with the default
		if p.Username != "" && p.Username != post.DefaultUsername {
			users[p.Username] = struct{}{}
		}
		if !p.Platform.Known() {
			s.UnknownPlatformPosts++
		}
	}

	if s.TotalPosts > 0 {
		s.AverageEngagement = float64(s.TotalLikes+s.TotalComments+s.TotalShares) / float64(s.TotalPosts)
	}
	s.EstimatedReach = s.TotalPosts * opts.ReachPerPost
	s.UniqueUsers = len(users)
	return s
}

// PlatformBucket holds one platform's totals within a filtered collection.
type PlatformBucket struct {
	Platform   post.Platform `json:"platform"`
	Count      int           `json:"count"`
	Likes      int           `json:"likes"`
	Comments   int           `json:"comments"`
	Shares     int           `json:"shares"`
	Percentage float64       `json:"percentage"`
}

// PlatformBuckets returns one bucket per canonical platform, in
// post.Platforms order, zero-filled where nothing matched. Posts with an
// unrecognized platform get a trailing Unknown bucket, present only when
// there are any, so counts always sum to len(posts). Percentage is relative
// to len(posts).
func PlatformBuckets(posts []post.Post, opts AggregateOptions) []PlatformBucket {
	buckets := make([]PlatformBucket, len(post.Platforms), len(post.Platforms)+1)
	for i, p := range post.Platforms {
		buckets[i].Platform = p
	}
	unknown := PlatformBucket{Platform: post.Unknown}

	for _, p := range posts {
		b := &unknown
		if i := p.Platform.Index(); i >= 0 {
			b = &buckets[i]
		}
		b.Count++
		b.Likes += p.Likes
		b.Comments += p.Comments
		b.Shares += opts.shares(p)
	}
	if unknown.Count > 0 {
		buckets = append(buckets, unknown)
	}

	if total := len(posts); total > 0 {
		for i := range buckets {
			buckets[i].Percentage = float64(buckets[i].Count) / float64(total) * 100
		}
	}
	return buckets
}

// CategoryRanking is one row of the category (menu) leaderboard.
type CategoryRanking struct {
	Category          string  `json:"category"`
	Count             int     `json:"count"`
	TotalEngagement   int     `json:"total_engagement"`
	AverageEngagement float64 `json:"average_engagement"`
}

// RankCategories groups posts by category keyword and returns the top n by
// post count. Ties keep first-seen order.
func RankCategories(posts []post.Post, n int, opts AggregateOptions) []CategoryRanking {
	index := make(map[string]int)
	rankings := make([]CategoryRanking, 0)
	for _, p := range posts {
		i, ok := index[p.CategoryKeyword]
		if !ok {
			i = len(rankings)
			index[p.CategoryKeyword] = i
			rankings = append(rankings, CategoryRanking{Category: p.CategoryKeyword})
		}
		rankings[i].Count++
		rankings[i].TotalEngagement += opts.engagement(p)
	}

	for i := range rankings {
		rankings[i].AverageEngagement = float64(rankings[i].TotalEngagement) / float64(rankings[i].Count)
	}

	slices.SortStableFunc(rankings, func(a, b CategoryRanking) int {
		return b.Count - a.Count
	})

	if n > 0 && len(rankings) > n {
		rankings = rankings[:n]
	}
	return rankings
}

// Categories returns the distinct category keywords in first-seen order.
func Categories(posts []post.Post) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range posts {
		if p.CategoryKeyword == "" || seen[p.CategoryKeyword] {
			continue
		}
		seen[p.CategoryKeyword] = true
		out = append(out, p.CategoryKeyword)
	}
	return out
}

// Aggregate is everything derived from one filtered collection.
type Aggregate struct {
	Stats      Stats              `json:"stats"`
	Platforms  []PlatformBucket   `json:"platforms"`
	Series     []TimeSeriesBucket `json:"series"`
	Categories []CategoryRanking  `json:"categories"`
}

// AggregatePosts computes stats, platform buckets, the time series and the
// category ranking for posts. The result shares no memory with posts.
func AggregatePosts(posts []post.Post, opts AggregateOptions) Aggregate {
	opts = opts.withDefaults()
	return Aggregate{
		Stats:      ComputeStats(posts, opts),
		Platforms:  PlatformBuckets(posts, opts),
		Series:     TimeSeries(posts, opts.Series),
		Categories: RankCategories(posts, opts.TopCategories, opts),
	}
}
