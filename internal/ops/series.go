package ops

import (
	"fmt"
	"slices"
	"time"

	"github.com/hpungsan/ugcboard/internal/post"
)

// LabelStyle selects how day buckets are labelled on the x-axis.
type LabelStyle string

const (
	LabelDate    LabelStyle = "date"    // "10/1"
	LabelWeekday LabelStyle = "weekday" // "火"
)

// DayKeyLayout keys day buckets by full calendar date.
const DayKeyLayout = "2006-01-02"

var weekdayLabels = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// SeriesOptions configures TimeSeries.
type SeriesOptions struct {
	// WindowDays > 0 emits a fixed trailing window of that many days ending
	// today, zero-filled. 0 emits only days that have posts.
	WindowDays int `json:"window_days"`

	// Location decides which calendar day a post falls on (UTC when nil)
	Location *time.Location `json:"-"`

	// Now anchors the trailing window; zero means time.Now()
	Now time.Time `json:"-"`

	Labels LabelStyle `json:"labels"`
}

// PlatformTally is one platform's activity within a day bucket.
type PlatformTally struct {
	Platform post.Platform `json:"platform"`
	Count    int           `json:"count"`
	Likes    int           `json:"likes"`
}

// TimeSeriesBucket holds per-platform tallies for one calendar day.
type TimeSeriesBucket struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Date    time.Time       `json:"date"`
	Tallies []PlatformTally `json:"tallies"`
}

// Tally returns the tally for p, zero-valued for Unknown.
func (b TimeSeriesBucket) Tally(p post.Platform) PlatformTally {
	if i := p.Index(); i >= 0 && i < len(b.Tallies) {
		return b.Tallies[i]
	}
	return PlatformTally{Platform: p}
}

// Total returns the post count across platforms.
func (b TimeSeriesBucket) Total() int {
	n := 0
	for _, t := range b.Tallies {
		n += t.Count
	}
	return n
}

func newBucket(day time.Time, labels LabelStyle) *TimeSeriesBucket {
	b := &TimeSeriesBucket{
		Key:     day.Format(DayKeyLayout),
		Label:   dayLabel(day, labels),
		Date:    day,
		Tallies: make([]PlatformTally, len(post.Platforms)),
	}
	for i, p := range post.Platforms {
		b.Tallies[i].Platform = p
	}
	return b
}

func dayLabel(day time.Time, labels LabelStyle) string {
	if labels == LabelWeekday {
		return weekdayLabels[day.Weekday()]
	}
	return fmt.Sprintf("%d/%d", int(day.Month()), day.Day())
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// TimeSeries buckets posts by calendar day in chronological order. Posts
// without a date or with an Unknown platform are not tallied.
func TimeSeries(posts []post.Post, opts SeriesOptions) []TimeSeriesBucket {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]*TimeSeriesBucket)
	var windowStart, windowEnd time.Time

	if opts.WindowDays > 0 {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		windowEnd = startOfDay(now, loc)
		windowStart = windowEnd.AddDate(0, 0, -(opts.WindowDays - 1))
		for day := windowStart; !day.After(windowEnd); day = day.AddDate(0, 0, 1) {
			b := newBucket(day, opts.Labels)
			buckets[b.Key] = b
		}
	}

	for _, p := range posts {
		i := p.Platform.Index()
		if !p.HasDate() || i < 0 {
			continue
		}
		day := startOfDay(p.PostDate, loc)
		key := day.Format(DayKeyLayout)

		b, ok := buckets[key]
		if !ok {
			if opts.WindowDays > 0 {
				// outside the trailing window
				continue
			}
			b = newBucket(day, opts.Labels)
			buckets[key] = b
		}
		b.Tallies[i].Count++
		b.Tallies[i].Likes += p.Likes
	}

	out := make([]TimeSeriesBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b TimeSeriesBucket) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
