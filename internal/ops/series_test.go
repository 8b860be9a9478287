package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ugcboard/internal/post"
)

func TestTimeSeries_DaysWithPostsOnly(t *testing.T) {
	posts := []post.Post{
		mk(post.Twitter, at(2024, 10, 3, 10, 0, 0), 5, "a"),
		mk(post.YouTube, at(2024, 10, 1, 10, 0, 0), 1, "a"),
		mk(post.YouTube, at(2024, 10, 1, 22, 0, 0), 2, "a"),
	}

	series := TimeSeries(posts, SeriesOptions{Location: jst})
	require.Len(t, series, 2)

	require.Equal(t, "2024-10-01", series[0].Key)
	require.Equal(t, "10/1", series[0].Label)
	require.Equal(t, 2, series[0].Tally(post.YouTube).Count)
	require.Equal(t, 3, series[0].Tally(post.YouTube).Likes)
	require.Equal(t, 0, series[0].Tally(post.Twitter).Count)

	require.Equal(t, "2024-10-03", series[1].Key)
	require.Equal(t, 1, series[1].Total())
}

func TestTimeSeries_TrailingWindowIsZeroFilled(t *testing.T) {
	now := at(2024, 10, 15, 18, 0, 0)
	posts := []post.Post{
		mk(post.Instagram, at(2024, 10, 13, 9, 0, 0), 4, "a"),
		mk(post.Instagram, at(2024, 10, 1, 9, 0, 0), 4, "a"), // outside the window
	}

	series := TimeSeries(posts, SeriesOptions{WindowDays: 7, Location: jst, Now: now})
	require.Len(t, series, 7)
	require.Equal(t, "2024-10-09", series[0].Key)
	require.Equal(t, "2024-10-15", series[6].Key)

	total := 0
	for _, b := range series {
		require.Len(t, b.Tallies, 3)
		total += b.Total()
	}
	require.Equal(t, 1, total)
	require.Equal(t, 1, series[4].Tally(post.Instagram).Count)
}

func TestTimeSeries_CrossYearDaysStayDistinct(t *testing.T) {
	posts := []post.Post{
		mk(post.YouTube, at(2023, 10, 1, 9, 0, 0), 1, "a"),
		mk(post.YouTube, at(2024, 10, 1, 9, 0, 0), 2, "a"),
	}

	series := TimeSeries(posts, SeriesOptions{Location: jst})
	require.Len(t, series, 2)
	require.Equal(t, "2023-10-01", series[0].Key)
	require.Equal(t, "2024-10-01", series[1].Key)
	// same label, different buckets
	require.Equal(t, series[0].Label, series[1].Label)
}

func TestTimeSeries_UsesConfiguredLocation(t *testing.T) {
	// 2024-10-01 16:00 UTC is 2024-10-02 01:00 in JST
	p := mk(post.YouTube, time.Date(2024, 10, 1, 16, 0, 0, 0, time.UTC), 1, "a")

	require.Equal(t, "2024-10-02", TimeSeries([]post.Post{p}, SeriesOptions{Location: jst})[0].Key)
	require.Equal(t, "2024-10-01", TimeSeries([]post.Post{p}, SeriesOptions{})[0].Key)
}

func TestTimeSeries_SkipsUndatedAndUnknown(t *testing.T) {
	posts := []post.Post{
		mk(post.YouTube, time.Time{}, 1, "a"),
		mk(post.Unknown, at(2024, 10, 1, 9, 0, 0), 1, "a"),
	}
	require.Empty(t, TimeSeries(posts, SeriesOptions{Location: jst}))
}

func TestTimeSeries_WeekdayLabels(t *testing.T) {
	// 2024-10-01 is a Tuesday
	posts := []post.Post{mk(post.YouTube, at(2024, 10, 1, 9, 0, 0), 1, "a")}
	series := TimeSeries(posts, SeriesOptions{Location: jst, Labels: LabelWeekday})
	require.Equal(t, "火", series[0].Label)
}

func TestTimeSeriesBucket_TallyUnknown(t *testing.T) {
	b := newBucket(at(2024, 10, 1, 0, 0, 0), LabelDate)
	got := b.Tally(post.Unknown)
	require.Equal(t, post.Unknown, got.Platform)
	require.Zero(t, got.Count)
}
