package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ugcboard/internal/chart"
	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *dashboard.Service
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *dashboard.Service, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, cfg: cfg}
}

// Request types for each tool

// PostsRequest represents the arguments for ugc_posts.
type PostsRequest struct {
	ops.FilterInput
	Sort  string `json:"sort,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// LatestRequest represents the arguments for ugc_latest.
type LatestRequest struct {
	ops.FilterInput
	PerPlatform int `json:"per_platform,omitempty"`
}

// Response types

// StatsResponse is the result of ugc_stats.
type StatsResponse struct {
	Filter      ops.FilterSpec       `json:"filter"`
	Stats       ops.Stats            `json:"stats"`
	Platforms   []ops.PlatformBucket `json:"platforms"`
	Dropped     int                  `json:"dropped"`
	LastUpdated time.Time            `json:"last_updated"`
}

// PostsResponse is the result of ugc_posts.
type PostsResponse struct {
	Sort  ops.SortKey `json:"sort"`
	Total int         `json:"total"`
	Count int         `json:"count"`
	Posts []post.Post `json:"posts"`
}

// LatestResponse is the result of ugc_latest.
type LatestResponse struct {
	Platforms []ops.PlatformPosts `json:"platforms"`
}

// ChartResponse is the result of ugc_chart.
type ChartResponse struct {
	Series []ops.TimeSeriesBucket `json:"series"`
	Chart  chart.Chart            `json:"chart"`
}

// CategoriesResponse is the result of ugc_categories.
type CategoriesResponse struct {
	Ranking []ops.CategoryRanking `json:"ranking"`
	All     []string              `json:"all"`
}

// RefreshResponse is the result of ugc_refresh.
type RefreshResponse struct {
	Posts       int       `json:"posts"`
	Dropped     int       `json:"dropped"`
	LastUpdated time.Time `json:"last_updated"`
}

// Handler implementations

// HandleStats handles the ugc_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.FilterInput](req)
	if err != nil {
		return errorResult(err), nil
	}

	st, err := h.query(ctx, input, "")
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(StatsResponse{
		Filter:      st.Filter,
		Stats:       st.View.Aggregate.Stats,
		Platforms:   st.View.Aggregate.Platforms,
		Dropped:     st.Dropped,
		LastUpdated: st.LastUpdated,
	})
}

// HandlePosts handles the ugc_posts tool call.
func (h *Handlers) HandlePosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PostsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	st, err := h.query(ctx, input.FilterInput, input.Sort)
	if err != nil {
		return errorResult(err), nil
	}

	limit := input.Limit
	switch {
	case limit <= 0:
		limit = DefaultPostsLimit
	case limit > MaxPostsLimit:
		limit = MaxPostsLimit
	}

	posts := st.View.Posts
	total := len(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}

	return successResult(PostsResponse{
		Sort:  st.Sort,
		Total: total,
		Count: len(posts),
		Posts: posts,
	})
}

// HandleLatest handles the ugc_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.PerPlatform > MaxPostsLimit {
		return errorResult(errors.NewInvalidField("per_platform", "must not exceed 200")), nil
	}

	st, err := h.query(ctx, input.FilterInput, "")
	if err != nil {
		return errorResult(err), nil
	}

	latest := st.View.Latest
	if input.PerPlatform > 0 {
		latest = ops.Latest(st.View.Posts, input.PerPlatform)
	}

	return successResult(LatestResponse{Platforms: latest})
}

// HandleChart handles the ugc_chart tool call.
func (h *Handlers) HandleChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.FilterInput](req)
	if err != nil {
		return errorResult(err), nil
	}

	st, err := h.query(ctx, input, "")
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ChartResponse{
		Series: st.View.Aggregate.Series,
		Chart:  st.View.Chart,
	})
}

// HandleCategories handles the ugc_categories tool call.
func (h *Handlers) HandleCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.FilterInput](req)
	if err != nil {
		return errorResult(err), nil
	}

	st, err := h.query(ctx, input, "")
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(CategoriesResponse{
		Ranking: st.View.Aggregate.Categories,
		All:     st.View.Categories,
	})
}

// HandleRefresh handles the ugc_refresh tool call.
func (h *Handlers) HandleRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.svc.Refresh(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(RefreshResponse{
		Posts:       len(st.Posts),
		Dropped:     st.Dropped,
		LastUpdated: st.LastUpdated,
	})
}

// query parses the filter and sort arguments and runs them against the
// service. A source failure is returned as the error, not as a state.
func (h *Handlers) query(ctx context.Context, input ops.FilterInput, sort string) (dashboard.State, error) {
	spec, err := ops.ParseFilter(input, h.svc.Options().Location, time.Time{})
	if err != nil {
		return dashboard.State{}, err
	}
	key, err := ops.ParseSortKey(sort)
	if err != nil {
		return dashboard.State{}, err
	}
	st, err := h.svc.Query(ctx, dashboard.SurfaceMCP, spec, key)
	if err == nil && st.Error != "" {
		// the last load failed and nothing has replaced it
		err = errors.NewSourceUnavailable(h.svc.Source().Name(), stderrors.New(st.Error))
	}
	return st, err
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var uErr *errors.UGCError
	if stderrors.As(err, &uErr) && uErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    uErr.Code,
			"message": uErr.Message,
			"status":  uErr.Status,
		}
		if uErr.Details != nil {
			errorObj["details"] = uErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
