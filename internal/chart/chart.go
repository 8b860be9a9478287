// Package chart turns a day-bucketed time series into plot geometry: bar
// heights for per-platform post counts and gap-aware polylines for likes,
// all in percentage space so any renderer can scale them.
package chart

import (
	"fmt"
	"strings"

	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
)

// MinBarPct is the smallest height a nonzero bar is drawn at.
const MinBarPct = 3.0

// Bar is one platform's post count within a column.
type Bar struct {
	Platform  post.Platform `json:"platform"`
	Value     int           `json:"value"`
	HeightPct float64       `json:"height_pct"`

	// Zero marks a true zero, drawn with placeholder styling
	Zero bool `json:"zero"`
}

// Column is one x-axis cell: a day and its bars in platform order.
type Column struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Bars  []Bar   `json:"bars"`
}

// Point is a plotted value in percentage space, origin top-left.
type Point struct {
	Index int     `json:"index"`
	Value int     `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Segment is a run of consecutive nonzero points.
type Segment []Point

// Marker reports whether the segment is a lone point, drawn as a dot
// rather than a line.
func (s Segment) Marker() bool { return len(s) == 1 }

// Points renders the segment as an SVG points attribute.
func (s Segment) Points() string {
	var b strings.Builder
	for i, p := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	return b.String()
}

// Line is one platform's likes series split at zero-valued gaps.
type Line struct {
	Platform post.Platform `json:"platform"`
	Segments []Segment     `json:"segments"`
}

// Chart is the full geometry for one time series.
type Chart struct {
	CountAxis Axis     `json:"count_axis"`
	LikesAxis Axis     `json:"likes_axis"`
	Columns   []Column `json:"columns"`
	Lines     []Line   `json:"lines"`

	// Empty is set when no bucket holds any post; renderers show a
	// "no data" state instead of axes.
	Empty bool `json:"empty"`
}

// X returns the cell-centred x coordinate of bucket i out of n.
func X(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return (float64(i) + 0.5) / float64(n) * 100
}

// Y returns the y coordinate of v against axis (0 at the top).
func Y(v int, axis Axis) float64 {
	return 100 - axis.Percent(v)
}

// BarHeight returns the drawn height of v against axis, floored to
// MinBarPct for nonzero values.
func BarHeight(v int, axis Axis) float64 {
	if v <= 0 {
		return 0
	}
	return max(axis.Percent(v), MinBarPct)
}

// Segments splits the indices of nonzero values into maximal runs of
// consecutive indices. [5,0,0,3,4] yields [[0] [3 4]].
func Segments(values []int) [][]int {
	var runs [][]int
	var cur []int
	for i, v := range values {
		if v == 0 {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// Build computes bar and line geometry for series. Each axis is scaled
// independently from its own single-platform maximum.
func Build(series []ops.TimeSeriesBucket) Chart {
	maxCount, maxLikes, total := 0, 0, 0
	for _, b := range series {
		for _, t := range b.Tallies {
			maxCount = max(maxCount, t.Count)
			maxLikes = max(maxLikes, t.Likes)
			total += t.Count
		}
	}

	c := Chart{
		CountAxis: CountAxis(maxCount),
		LikesAxis: LikesAxis(maxLikes),
		Columns:   make([]Column, len(series)),
		Lines:     make([]Line, len(post.Platforms)),
		Empty:     total == 0,
	}

	n := len(series)
	for i, b := range series {
		col := Column{Key: b.Key, Label: b.Label, X: X(i, n), Bars: make([]Bar, len(post.Platforms))}
		for j, p := range post.Platforms {
			v := b.Tally(p).Count
			col.Bars[j] = Bar{
				Platform:  p,
				Value:     v,
				HeightPct: BarHeight(v, c.CountAxis),
				Zero:      v == 0,
			}
		}
		c.Columns[i] = col
	}

	for j, p := range post.Platforms {
		likes := make([]int, n)
		for i, b := range series {
			likes[i] = b.Tally(p).Likes
		}
		line := Line{Platform: p, Segments: []Segment{}}
		for _, run := range Segments(likes) {
			seg := make(Segment, len(run))
			for k, i := range run {
				seg[k] = Point{Index: i, Value: likes[i], X: X(i, n), Y: Y(likes[i], c.LikesAxis)}
			}
			line.Segments = append(line.Segments, seg)
		}
		c.Lines[j] = line
	}

	return c
}
