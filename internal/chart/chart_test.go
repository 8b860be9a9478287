package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
)

func TestCountAxis(t *testing.T) {
	tests := []struct {
		max      int
		wantStep int
		wantMax  int
	}{
		{0, 1, 5},
		{1, 1, 5},
		{5, 1, 5},
		{6, 2, 10},
		{10, 2, 10},
		{23, 5, 25},
	}

	for _, tt := range tests {
		a := CountAxis(tt.max)
		if a.Step != tt.wantStep || a.Max != tt.wantMax {
			t.Errorf("CountAxis(%d) = step %d max %d, want step %d max %d",
				tt.max, a.Step, a.Max, tt.wantStep, tt.wantMax)
		}
	}
}

func TestLikesAxis(t *testing.T) {
	tests := []struct {
		max      int
		wantStep int
	}{
		{0, 10},
		{7, 10},
		{50, 10},
		{51, 20},
		{230, 50},
		{1000, 200},
	}

	for _, tt := range tests {
		if got := LikesAxis(tt.max).Step; got != tt.wantStep {
			t.Errorf("LikesAxis(%d).Step = %d, want %d", tt.max, got, tt.wantStep)
		}
	}
}

func TestAxisTicks(t *testing.T) {
	require.Equal(t, []int{10, 8, 6, 4, 2, 0}, CountAxis(7).Ticks)
	require.Equal(t, []int{50, 40, 30, 20, 10, 0}, LikesAxis(3).Ticks)
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   [][]int
	}{
		{"gap", []int{5, 0, 0, 3, 4}, [][]int{{0}, {3, 4}}},
		{"all zero", []int{0, 0, 0}, nil},
		{"empty", nil, nil},
		{"solid", []int{1, 2, 3}, [][]int{{0, 1, 2}}},
		{"trailing single", []int{0, 1, 1, 0, 9}, [][]int{{1, 2}, {4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Segments(tt.values))
		})
	}
}

func TestBarHeight(t *testing.T) {
	axis := CountAxis(100) // max 100
	require.Zero(t, BarHeight(0, axis))
	require.Equal(t, MinBarPct, BarHeight(1, axis))
	require.InDelta(t, 50.0, BarHeight(50, axis), 1e-9)
	require.InDelta(t, 100.0, BarHeight(100, axis), 1e-9)
}

func TestCoordinates(t *testing.T) {
	require.InDelta(t, 10.0, X(0, 5), 1e-9)
	require.InDelta(t, 90.0, X(4, 5), 1e-9)
	require.InDelta(t, 50.0, X(0, 1), 1e-9)

	axis := LikesAxis(50) // max 50
	require.InDelta(t, 100.0, Y(0, axis), 1e-9)
	require.InDelta(t, 60.0, Y(20, axis), 1e-9)
	require.InDelta(t, 0.0, Y(50, axis), 1e-9)
}

func bucket(day int, yt, ytLikes, tw, twLikes int) ops.TimeSeriesBucket {
	d := time.Date(2024, 10, day, 0, 0, 0, 0, time.UTC)
	return ops.TimeSeriesBucket{
		Key:   d.Format(ops.DayKeyLayout),
		Label: d.Format("1/2"),
		Date:  d,
		Tallies: []ops.PlatformTally{
			{Platform: post.YouTube, Count: yt, Likes: ytLikes},
			{Platform: post.Instagram},
			{Platform: post.Twitter, Count: tw, Likes: twLikes},
		},
	}
}

func TestBuild(t *testing.T) {
	series := []ops.TimeSeriesBucket{
		bucket(1, 2, 5, 0, 0),
		bucket(2, 0, 0, 1, 40),
		bucket(3, 0, 0, 0, 0),
		bucket(4, 6, 3, 1, 10),
		bucket(5, 1, 4, 0, 0),
	}

	c := Build(series)
	require.False(t, c.Empty)
	require.Equal(t, 10, c.CountAxis.Max)
	require.Equal(t, 50, c.LikesAxis.Max)

	require.Len(t, c.Columns, 5)
	col := c.Columns[0]
	require.Equal(t, "10/1", col.Label)
	require.InDelta(t, 10.0, col.X, 1e-9)
	require.Len(t, col.Bars, 3)
	require.InDelta(t, 20.0, col.Bars[0].HeightPct, 1e-9)
	require.True(t, col.Bars[1].Zero)
	require.Zero(t, col.Bars[1].HeightPct)

	require.Len(t, c.Lines, 3)
	yt := c.Lines[0]
	require.Equal(t, post.YouTube, yt.Platform)
	require.Len(t, yt.Segments, 2)
	require.True(t, yt.Segments[0].Marker())
	require.Len(t, yt.Segments[1], 2)
	require.Equal(t, 3, yt.Segments[1][0].Index)
	require.InDelta(t, 94.0, yt.Segments[1][0].Y, 1e-9)

	require.Empty(t, c.Lines[1].Segments)

	tw := c.Lines[2]
	require.Len(t, tw.Segments, 2)
	require.Equal(t, "30.00,20.00", tw.Segments[0].Points())
}

func TestBuild_Empty(t *testing.T) {
	c := Build(nil)
	require.True(t, c.Empty)
	require.Empty(t, c.Columns)
	require.Len(t, c.Lines, 3)
	require.Equal(t, 5, c.CountAxis.Max)

	c = Build([]ops.TimeSeriesBucket{bucket(1, 0, 0, 0, 0)})
	require.True(t, c.Empty)
	require.Len(t, c.Columns, 1)
}

func TestSegmentPoints(t *testing.T) {
	s := Segment{{X: 10, Y: 50}, {X: 30, Y: 25.5}}
	require.Equal(t, "10.00,50.00 30.00,25.50", s.Points())
	require.False(t, s.Marker())
}
