package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ugcboard/internal/chart"
	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/logging"
	"github.com/hpungsan/ugcboard/internal/mcp"
	"github.com/hpungsan/ugcboard/internal/metrics"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
	"github.com/hpungsan/ugcboard/internal/source"
	"github.com/hpungsan/ugcboard/internal/web"
)

// baseDirName is the global config directory under the user's home.
const baseDirName = ".ugcboard"

// runtime is what every command works against.
type runtime struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	svc     *dashboard.Service
}

// Close releases the data source.
func (rt *runtime) Close() error {
	return rt.svc.Source().Close()
}

// loader builds the runtime for a command. Help and version never call it.
type loader func(c *cli.Context) (*runtime, error)

// loadRuntime reads config (global, repo, .env, environment), then opens
// the configured source behind a dashboard service.
func loadRuntime(c *cli.Context) (*runtime, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, baseDirName)

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not determine working directory: %w", err)
	}
	config.LoadEnv(wd, nil)

	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg = config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warnf("unknown tools in disabled_tools: %s", strings.Join(unknown, ", "))
	}

	src, err := source.Open(c.Context, cfg, baseDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", cfg.Source, err)
	}

	opts, err := dashboard.OptionsFromConfig(cfg)
	if err != nil {
		src.Close()
		return nil, err
	}
	m := metrics.New()
	opts.Logger = logger
	opts.Metrics = m

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		svc:     dashboard.NewService(src, opts),
	}, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(load loader) *cli.App {
	app := &cli.App{
		Name:    "ugcboard",
		Usage:   "UGC analytics dashboard",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(load),
			mcpCmd(load),
			statsCmd(load),
			postsCmd(load),
			latestCmd(load),
			chartCmd(load),
			categoriesCmd(load),
			rowsCmd(load),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withRuntime wraps a command action with runtime setup and teardown.
func withRuntime(load loader, action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := load(c)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer rt.Close()
		return action(c, rt)
	}
}

// serveCmd creates the serve command.
func serveCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", EnvVars: []string{"UGC_BIND"}, Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, EnvVars: []string{"PORT"}, Usage: "Port to listen on"},
			&cli.BoolFlag{Name: "preload", Value: true, Usage: "Load the working set before the first request"},
		},
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			if c.Bool("preload") {
				go func() {
					// failures are logged by the service and shown on the page
					_, _ = rt.svc.Refresh(context.WithoutCancel(c.Context))
				}()
			}

			srv := web.NewServer(rt.svc, rt.cfg, web.Options{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Logger:  rt.logger,
				Metrics: rt.metrics,
			})
			return web.Run(srv, rt.logger)
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			return mcp.Run(rt.svc, rt.cfg, Version)
		}),
	}
}

// statsCmd creates the stats command.
func statsCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Headline stats and platform breakdown",
		Flags: filterFlags(),
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			st, err := runQuery(c, rt, "")
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"filter":       st.Filter,
				"stats":        st.View.Aggregate.Stats,
				"platforms":    st.View.Aggregate.Platforms,
				"dropped":      st.Dropped,
				"last_updated": st.LastUpdated,
			})
		}),
	}
}

// postsCmd creates the posts command.
func postsCmd(load loader) *cli.Command {
	flags := append(filterFlags(),
		&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Value: "date", Usage: "Sort: date|likes|comments"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: mcp.DefaultPostsLimit, Usage: "Maximum posts to print (0 for all)"},
	)
	return &cli.Command{
		Name:  "posts",
		Usage: "List filtered posts",
		Flags: flags,
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			st, err := runQuery(c, rt, c.String("sort"))
			if err != nil {
				return outputError(err)
			}
			limit := c.Int("limit")
			if limit < 0 {
				return outputError(errors.NewInvalidField("limit", "must not be negative"))
			}

			posts := st.View.Posts
			total := len(posts)
			if limit > 0 && len(posts) > limit {
				posts = posts[:limit]
			}
			return outputJSON(c.App.Writer, map[string]any{
				"sort":  st.Sort,
				"total": total,
				"count": len(posts),
				"posts": posts,
			})
		}),
	}
}

// latestCmd creates the latest command.
func latestCmd(load loader) *cli.Command {
	flags := append(filterFlags(),
		&cli.IntFlag{Name: "per-platform", Aliases: []string{"n"}, Value: ops.DefaultLatestPerPlatform, Usage: "Posts per platform"},
	)
	return &cli.Command{
		Name:  "latest",
		Usage: "Newest posts per platform",
		Flags: flags,
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			st, err := runQuery(c, rt, "")
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"platforms": ops.Latest(st.View.Posts, c.Int("per-platform")),
			})
		}),
	}
}

// chartCmd creates the chart command.
func chartCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "Daily series and chart geometry",
		Flags: append(filterFlags(),
			&cli.BoolFlag{Name: "series-only", Usage: "Print only the daily buckets"},
		),
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			st, err := runQuery(c, rt, "")
			if err != nil {
				return outputError(err)
			}
			out := struct {
				Series []ops.TimeSeriesBucket `json:"series"`
				Chart  *chart.Chart           `json:"chart,omitempty"`
			}{Series: st.View.Aggregate.Series}
			if !c.Bool("series-only") {
				out.Chart = &st.View.Chart
			}
			return outputJSON(c.App.Writer, out)
		}),
	}
}

// categoriesCmd creates the categories command.
func categoriesCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "Category ranking by engagement",
		Flags: filterFlags(),
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			st, err := runQuery(c, rt, "")
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"ranking": st.View.Aggregate.Categories,
				"all":     st.View.Categories,
			})
		}),
	}
}

// rowsCmd creates the rows command.
func rowsCmd(load loader) *cli.Command {
	return &cli.Command{
		Name:  "rows",
		Usage: "Raw rows as fetched from the source",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Usage: "Only rows tagged with this platform"},
		},
		Action: withRuntime(load, func(c *cli.Context, rt *runtime) error {
			var q source.Query
			if label := c.String("platform"); !ops.IsAll(label) {
				q.Platform = post.ParsePlatform(label)
				if !q.Platform.Known() {
					return outputError(errors.NewInvalidField("platform", fmt.Sprintf("unknown platform %q", label)))
				}
			}

			records, err := rt.svc.Source().Fetch(c.Context, q)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"source": rt.svc.Source().Name(),
				"count":  len(records),
				"rows":   records,
			})
		}),
	}
}

// filterFlags are shared by every query command.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Usage: "YouTube|Instagram|Twitter (X), or all"},
		&cli.StringFlag{Name: "date-start", Usage: "First day, YYYY-MM-DD"},
		&cli.StringFlag{Name: "date-end", Usage: "Last day, YYYY-MM-DD"},
		&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "Substring of content or category"},
		&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Exact category keyword"},
		&cli.StringFlag{Name: "period", Usage: "Trailing window: 7d, 30d, 90d or all"},
	}
}

// filterInput collects the filter flags.
func filterInput(c *cli.Context) ops.FilterInput {
	return ops.FilterInput{
		Platform:  c.String("platform"),
		DateStart: c.String("date-start"),
		DateEnd:   c.String("date-end"),
		Keyword:   c.String("keyword"),
		Category:  c.String("category"),
		Period:    c.String("period"),
	}
}

// runQuery parses the filter flags and sort, then queries the service.
func runQuery(c *cli.Context, rt *runtime, sort string) (dashboard.State, error) {
	spec, err := ops.ParseFilter(filterInput(c), rt.svc.Options().Location, time.Time{})
	if err != nil {
		return dashboard.State{}, err
	}
	key, err := ops.ParseSortKey(sort)
	if err != nil {
		return dashboard.State{}, err
	}
	return rt.svc.Query(c.Context, dashboard.SurfaceCLI, spec, key)
}

// Helper functions

// outputJSON marshals result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var uErr *errors.UGCError
	if stderrors.As(err, &uErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", uErr.Code, uErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
