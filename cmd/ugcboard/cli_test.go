package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/logging"
	"github.com/hpungsan/ugcboard/internal/metrics"
	"github.com/hpungsan/ugcboard/internal/post"
	"github.com/hpungsan/ugcboard/internal/source"
)

var jst = time.FixedZone("JST", 9*60*60)

// stubSource serves a fixed set of records, or fails with err.
type stubSource struct {
	records []post.Record
	err     error
	closed  bool
}

func (s *stubSource) Name() string   { return "stub" }
func (s *stubSource) Pushdown() bool { return false }
func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func (s *stubSource) Fetch(ctx context.Context, q source.Query) ([]post.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func sampleRecords() []post.Record {
	return []post.Record{
		{Hint: post.YouTube, Row: post.RawRow{
			"Channel":      "udon_fan",
			"PublishedAt":  "2024-10-15T09:00:00+09:00",
			"Description":  "釜玉うどん最高",
			"LikeCount":    "1,234",
			"CommentCount": "5",
			"Keyword":      "釜玉",
		}},
		{Hint: post.Instagram, Row: post.RawRow{
			"Username": "ig_user",
			"PostedAt": "2024-10-14T20:00:00+09:00",
			"Caption":  "かけうどん",
			"Likes":    "30",
			"Keyword":  "かけ",
		}},
		{Hint: post.Twitter, Row: post.RawRow{
			"Username":  "x_user",
			"CreatedAt": "2024-10-13T10:00:00+09:00",
			"Text":      "ぶっかけ",
			"Likes":     "7",
			"Comments":  "40",
			"Keyword":   "ぶっかけ",
		}},
		{Hint: post.Twitter, Row: post.RawRow{
			"Username":  "no_keyword",
			"CreatedAt": "2024-10-13T11:00:00+09:00",
			"Text":      "untagged",
		}},
	}
}

// testLoader returns a loader serving src through a fresh service.
func testLoader(src source.Source) loader {
	return func(c *cli.Context) (*runtime, error) {
		now := time.Date(2024, 10, 15, 12, 0, 0, 0, jst)
		svc := dashboard.NewService(src, dashboard.ServiceOptions{
			Options: dashboard.Options{
				Location: jst,
				Now:      func() time.Time { return now },
			},
			Logger: logging.Discard(),
		})
		return &runtime{
			cfg:     config.DefaultConfig(),
			logger:  logging.Discard(),
			metrics: metrics.New(),
			svc:     svc,
		}, nil
	}
}

// runCLI runs args against a fresh app and returns what it printed.
func runCLI(t *testing.T, load loader, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(load)
	var buf bytes.Buffer
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"ugcboard"}, args...))
	return buf.String(), err
}

// decodeOutput parses the JSON a command printed.
func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return m
}

// TestResolveArgs tests how a bare invocation is resolved.
func TestResolveArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		interactive bool
		want        []string
		wantOK      bool
	}{
		{
			name:        "no args in a terminal shows the banner",
			args:        []string{"ugcboard"},
			interactive: true,
			wantOK:      false,
		},
		{
			name:   "no args with piped stdin runs mcp",
			args:   []string{"ugcboard"},
			want:   []string{"ugcboard", "mcp"},
			wantOK: true,
		},
		{
			name:        "explicit command is kept",
			args:        []string{"ugcboard", "stats", "--period=7d"},
			interactive: true,
			want:        []string{"ugcboard", "stats", "--period=7d"},
			wantOK:      true,
		},
		{
			name:   "help flag is kept",
			args:   []string{"ugcboard", "--help"},
			want:   []string{"ugcboard", "--help"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveArgs(tt.args, tt.interactive)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveArgs_DoesNotAliasInput(t *testing.T) {
	args := make([]string, 1, 4)
	args[0] = "ugcboard"
	got, _ := resolveArgs(args, false)
	got[0] = "changed"
	if args[0] != "ugcboard" {
		t.Error("resolveArgs should not write through to the caller's slice")
	}
}

// TestCLIStats tests the stats command.
func TestCLIStats(t *testing.T) {
	src := &stubSource{records: sampleRecords()}

	out, err := runCLI(t, testLoader(src), "stats")
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}
	output := decodeOutput(t, out)

	stats := output["stats"].(map[string]any)
	if stats["total_posts"] != float64(3) {
		t.Errorf("total_posts = %v, want 3", stats["total_posts"])
	}
	if output["dropped"] != float64(1) {
		t.Errorf("dropped = %v, want 1", output["dropped"])
	}
	if !src.closed {
		t.Error("source should be closed after the command")
	}
}

func TestCLIStats_Filters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want float64
	}{
		{"platform", []string{"--platform", "youtube"}, 1},
		{"short platform alias", []string{"-p", "X"}, 1},
		{"keyword", []string{"-k", "うどん"}, 2},
		{"category", []string{"--category", "ぶっかけ"}, 1},
		{"date range", []string{"--date-start", "2024-10-14", "--date-end", "2024-10-15"}, 2},
		{"period", []string{"--period", "7d"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"stats"}, tt.args...)
			out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), args...)
			if err != nil {
				t.Fatalf("stats command failed: %v", err)
			}
			stats := decodeOutput(t, out)["stats"].(map[string]any)
			if stats["total_posts"] != tt.want {
				t.Errorf("total_posts = %v, want %v", stats["total_posts"], tt.want)
			}
		})
	}
}

// TestCLIPosts tests the posts command.
func TestCLIPosts(t *testing.T) {
	out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "posts", "--sort", "comments", "--limit", "2")
	if err != nil {
		t.Fatalf("posts command failed: %v", err)
	}
	output := decodeOutput(t, out)

	if output["total"] != float64(3) || output["count"] != float64(2) {
		t.Errorf("total/count = %v/%v, want 3/2", output["total"], output["count"])
	}
	posts := output["posts"].([]any)
	if first := posts[0].(map[string]any)["username"]; first != "x_user" {
		t.Errorf("first post = %v, want x_user", first)
	}
}

func TestCLIPosts_NoLimit(t *testing.T) {
	out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "posts", "--limit", "0")
	if err != nil {
		t.Fatalf("posts command failed: %v", err)
	}
	if count := decodeOutput(t, out)["count"]; count != float64(3) {
		t.Errorf("count = %v, want 3", count)
	}
}

// TestCLILatest tests the latest command.
func TestCLILatest(t *testing.T) {
	out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "latest", "-n", "1")
	if err != nil {
		t.Fatalf("latest command failed: %v", err)
	}
	platforms := decodeOutput(t, out)["platforms"].([]any)
	if len(platforms) != 3 {
		t.Fatalf("platforms = %d, want 3", len(platforms))
	}
	first := platforms[0].(map[string]any)
	if first["platform"] != "YouTube" {
		t.Errorf("first group = %v, want YouTube", first["platform"])
	}
}

// TestCLIChart tests the chart command.
func TestCLIChart(t *testing.T) {
	t.Run("with geometry", func(t *testing.T) {
		out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "chart")
		if err != nil {
			t.Fatalf("chart command failed: %v", err)
		}
		output := decodeOutput(t, out)
		if series := output["series"].([]any); len(series) != 3 {
			t.Errorf("series = %d buckets, want 3", len(series))
		}
		if _, ok := output["chart"]; !ok {
			t.Error("expected chart geometry")
		}
	})

	t.Run("series only", func(t *testing.T) {
		out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "chart", "--series-only")
		if err != nil {
			t.Fatalf("chart command failed: %v", err)
		}
		if _, ok := decodeOutput(t, out)["chart"]; ok {
			t.Error("--series-only should omit the geometry")
		}
	})
}

// TestCLICategories tests the categories command.
func TestCLICategories(t *testing.T) {
	out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "categories")
	if err != nil {
		t.Fatalf("categories command failed: %v", err)
	}
	output := decodeOutput(t, out)

	ranking := output["ranking"].([]any)
	if len(ranking) != 3 {
		t.Fatalf("ranking = %d, want 3", len(ranking))
	}
	if top := ranking[0].(map[string]any)["category"]; top != "釜玉" {
		t.Errorf("top category = %v, want 釜玉", top)
	}
}

// TestCLIRows tests the rows command.
func TestCLIRows(t *testing.T) {
	out, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "rows")
	if err != nil {
		t.Fatalf("rows command failed: %v", err)
	}
	output := decodeOutput(t, out)

	// raw rows are printed before the validity filter
	if output["count"] != float64(4) {
		t.Errorf("count = %v, want 4", output["count"])
	}
	if output["source"] != "stub" {
		t.Errorf("source = %v, want stub", output["source"])
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	t.Run("invalid period", func(t *testing.T) {
		_, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "stats", "--period=forever")
		if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("expected INVALID_REQUEST, got %v", err)
		}
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "posts", "--sort=shares")
		if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("expected INVALID_REQUEST, got %v", err)
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "posts", "--limit=-1")
		if err == nil || !strings.Contains(err.Error(), "limit") {
			t.Errorf("expected limit error, got %v", err)
		}
	})

	t.Run("unknown rows platform", func(t *testing.T) {
		_, err := runCLI(t, testLoader(&stubSource{records: sampleRecords()}), "rows", "--platform=tiktok")
		if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("expected INVALID_REQUEST, got %v", err)
		}
	})

	t.Run("source unavailable", func(t *testing.T) {
		src := &stubSource{err: errors.NewSourceUnavailable("stub", fmt.Errorf("connection refused"))}
		_, err := runCLI(t, testLoader(src), "stats")
		if err == nil || !strings.Contains(err.Error(), "[SOURCE_UNAVAILABLE]") {
			t.Errorf("expected SOURCE_UNAVAILABLE, got %v", err)
		}
	})

	t.Run("runtime failure", func(t *testing.T) {
		failing := func(c *cli.Context) (*runtime, error) {
			return nil, fmt.Errorf("invalid config: bad timezone")
		}
		_, err := runCLI(t, failing, "stats")
		if err == nil || !strings.Contains(err.Error(), "bad timezone") {
			t.Errorf("expected config error, got %v", err)
		}
	})
}

// TestCLIHelpAndVersion checks that help and version never load the runtime.
func TestCLIHelpAndVersion(t *testing.T) {
	loads := 0
	load := func(c *cli.Context) (*runtime, error) {
		loads++
		return nil, fmt.Errorf("should not load")
	}

	out, err := runCLI(t, load, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}

	out, err = runCLI(t, load, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, cmd := range []string{"serve", "mcp", "stats", "posts", "latest", "chart", "categories", "rows"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help should list %q", cmd)
		}
	}

	if loads != 0 {
		t.Errorf("runtime loaded %d times, want 0", loads)
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewInvalidField("period", "bad"))
	if err.Error() != "[INVALID_REQUEST] period: bad" {
		t.Errorf("outputError = %q", err.Error())
	}

	wrapped := outputError(fmt.Errorf("query: %w", errors.NewNotFound("post")))
	if !strings.HasPrefix(wrapped.Error(), "[NOT_FOUND]") {
		t.Errorf("wrapped outputError = %q", wrapped.Error())
	}

	if plain := outputError(fmt.Errorf("boom")); plain.Error() != "boom" {
		t.Errorf("plain outputError = %q", plain.Error())
	}
}
