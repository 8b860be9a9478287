// Package dashboard holds the dashboard state machine: an immutable State
// value, pure reducers that produce the next State, and a Service that
// owns the current working set and refreshes it from a source.
package dashboard

import (
	"time"

	"github.com/hpungsan/ugcboard/internal/chart"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
)

// Options are the presentation variants the dashboard is configured with.
type Options struct {
	// Location decides calendar days; UTC when nil
	Location *time.Location

	Aggregate         ops.AggregateOptions
	LatestPerPlatform int

	// Now is the clock; time.Now when nil
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// View is everything derived from the working set under the current filter
// and sort. It is rebuilt from scratch by every reducer that changes an
// input.
type View struct {
	// Posts is the filtered collection in sort order
	Posts []post.Post `json:"posts"`

	Aggregate ops.Aggregate `json:"aggregate"`
	Chart     chart.Chart   `json:"chart"`

	// ByPlatform partitions Posts for tabbed display
	ByPlatform []ops.PlatformPosts `json:"by_platform"`

	// Latest holds the newest posts per platform within the filter
	Latest []ops.PlatformPosts `json:"latest"`

	// Categories are the selectable category keywords of the whole working set
	Categories []string `json:"categories"`
}

// State is one immutable snapshot of the dashboard. Reducers return a new
// State and never modify their input.
type State struct {
	// Posts is the working set: normalized, valid posts
	Posts []post.Post `json:"-"`

	// Dropped counts rows the validity filter rejected on the last fetch
	Dropped int `json:"dropped"`

	Filter ops.FilterSpec `json:"filter"`
	Sort   ops.SortKey    `json:"sort"`

	// Loading is set while a fetch is outstanding; the previous View stays up
	Loading bool `json:"loading"`

	// Error is the user-visible message of the last failed fetch
	Error string `json:"error,omitempty"`

	LastUpdated time.Time `json:"last_updated"`

	// Pending is the generation token of the fetch in flight
	Pending string `json:"-"`

	View View `json:"view"`
}

// Loaded reports whether any fetch has completed, successfully or not.
func (s State) Loaded() bool {
	return !s.LastUpdated.IsZero()
}

// Derive computes the View of s under opts.
func Derive(s State, opts Options) View {
	now := opts.now()
	spec := s.Filter
	if spec.Now.IsZero() {
		spec.Now = now
	}

	aggOpts := opts.Aggregate
	aggOpts.Series.Location = opts.location()
	if aggOpts.Series.Now.IsZero() {
		aggOpts.Series.Now = now
	}

	filtered := ops.Filter(s.Posts, spec)
	sorted := ops.Sort(filtered, s.Sort)
	agg := ops.AggregatePosts(filtered, aggOpts)

	return View{
		Posts:      sorted,
		Aggregate:  agg,
		Chart:      chart.Build(agg.Series),
		ByPlatform: ops.PartitionByPlatform(sorted),
		Latest:     ops.Latest(filtered, opts.LatestPerPlatform),
		Categories: ops.Categories(s.Posts),
	}
}

// Initial is the state before the first fetch.
func Initial(opts Options) State {
	s := State{Sort: ops.SortByDate}
	s.View = Derive(s, opts)
	return s
}

// FetchStarted marks a fetch with generation token in flight. The working
// set and view are untouched, so stale data stays visible.
func FetchStarted(s State, token string) State {
	s.Loading = true
	s.Pending = token
	return s
}

// FetchCompleted installs the result of the fetch identified by token.
// A completion whose token is not the pending one is stale and ignored;
// ok reports whether the result was applied. A failed fetch leaves an
// empty working set and a user-visible error.
func FetchCompleted(s State, token string, posts []post.Post, dropped int, err error, opts Options) (next State, ok bool) {
	if token != s.Pending {
		return s, false
	}

	s.Loading = false
	s.Pending = ""
	s.LastUpdated = opts.now()
	if err != nil {
		s.Posts = []post.Post{}
		s.Dropped = 0
		s.Error = err.Error()
	} else {
		s.Posts = posts
		s.Dropped = dropped
		s.Error = ""
	}
	s.View = Derive(s, opts)
	return s, true
}

// FilterChanged replaces the filter and recomputes the view.
func FilterChanged(s State, spec ops.FilterSpec, opts Options) State {
	s.Filter = spec
	s.View = Derive(s, opts)
	return s
}

// SortChanged replaces the sort key and recomputes the view.
func SortChanged(s State, key ops.SortKey, opts Options) State {
	s.Sort = key
	s.View = Derive(s, opts)
	return s
}

// QueryChanged replaces both the filter and the sort key and recomputes the
// view once.
func QueryChanged(s State, spec ops.FilterSpec, key ops.SortKey, opts Options) State {
	s.Filter = spec
	s.Sort = key
	s.View = Derive(s, opts)
	return s
}
