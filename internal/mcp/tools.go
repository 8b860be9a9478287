package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Posts list paging bounds
const (
	DefaultPostsLimit = 20
	MaxPostsLimit     = 200
)

// withFilterArgs adds the shared filter arguments to a tool definition.
func withFilterArgs(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("platform",
			mcp.Description("YouTube, Instagram or Twitter (X is accepted). Empty, \"all\" or \"すべて\" means every platform."),
		),
		mcp.WithString("date_start",
			mcp.Description("First calendar day to include, YYYY-MM-DD, in the dashboard timezone."),
		),
		mcp.WithString("date_end",
			mcp.Description("Last calendar day to include, YYYY-MM-DD; the whole day is included."),
		),
		mcp.WithString("keyword",
			mcp.Description("Case-insensitive substring matched against post content or the category keyword."),
		),
		mcp.WithString("category",
			mcp.Description("Exact category (menu) keyword. Empty or \"all\" means every category."),
		),
		mcp.WithString("period",
			mcp.Description("Trailing window back from now: 7d, 30d, 90d, week, month, quarter, or any Nd up to 366d."),
		),
	)
}

var statsToolDef = mcp.NewTool("ugc_stats", withFilterArgs(
	mcp.WithDescription("Headline numbers for the posts matching a filter: totals of posts, likes, comments and shares, average engagement, estimated reach, unique users, and per-platform counts with percentages."),
	mcp.WithReadOnlyHintAnnotation(true),
)...)

var postsToolDef = mcp.NewTool("ugc_posts", withFilterArgs(
	mcp.WithDescription("List the posts matching a filter, newest first or by likes or comments."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("sort",
		mcp.Description("Sort order, descending."),
		mcp.Enum("date", "likes", "comments"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum posts to return (default 20, max 200)."),
		mcp.Min(1),
		mcp.Max(MaxPostsLimit),
	),
)...)

var latestToolDef = mcp.NewTool("ugc_latest", withFilterArgs(
	mcp.WithDescription("The newest posts of each platform within a filter."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("per_platform",
		mcp.Description("Posts per platform (default from config)."),
		mcp.Min(1),
		mcp.Max(MaxPostsLimit),
	),
)...)

var chartToolDef = mcp.NewTool("ugc_chart", withFilterArgs(
	mcp.WithDescription("Per-day post counts and likes per platform for a filter, with the chart axes and plot geometry the dashboard draws."),
	mcp.WithReadOnlyHintAnnotation(true),
)...)

var categoriesToolDef = mcp.NewTool("ugc_categories", withFilterArgs(
	mcp.WithDescription("Category (menu) leaderboard for a filter, plus every category keyword in the working set."),
	mcp.WithReadOnlyHintAnnotation(true),
)...)

var refreshToolDef = mcp.NewTool("ugc_refresh",
	mcp.WithDescription("Reload posts from the data source. Concurrent refreshes share one fetch."),
)
