package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/metrics"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
	"github.com/hpungsan/ugcboard/internal/source"
)

// Query surfaces, used as a metrics label
const (
	SurfaceWeb = "web"
	SurfaceAPI = "api"
	SurfaceMCP = "mcp"
	SurfaceCLI = "cli"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Options

	// Pushdown routes queries through the source when it supports it
	Pushdown bool

	// FetchTimeout bounds one refresh; 0 means none
	FetchTimeout time.Duration

	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// OptionsFromConfig maps config onto ServiceOptions.
func OptionsFromConfig(cfg *config.Config) (ServiceOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ServiceOptions{}, err
	}
	return ServiceOptions{
		Options: Options{
			Location: loc,
			Aggregate: ops.AggregateOptions{
				ReachPerPost:         cfg.ReachPerPost,
				ExcludeYouTubeShares: cfg.ExcludeYouTubeShares,
				TopCategories:        cfg.TopCategories,
				Series: ops.SeriesOptions{
					WindowDays: cfg.TrailingWindowDays,
					Labels:     ops.LabelStyle(cfg.LabelStyle),
				},
			},
			LatestPerPlatform: cfg.LatestPerPlatform,
		},
		Pushdown:     cfg.Pushdown,
		FetchTimeout: cfg.FetchTimeout(),
	}, nil
}

// Service owns the current dashboard State. Readers take lock-free
// snapshots; writers install successor states with compare-and-swap.
type Service struct {
	src     source.Source
	opts    ServiceOptions
	logger  *logrus.Logger
	metrics *metrics.Metrics

	state   atomic.Pointer[State]
	flights singleflight.Group
}

// NewService creates a Service in the initial, not yet loaded state.
func NewService(src source.Source, opts ServiceOptions) *Service {
	s := &Service{
		src:     src,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	initial := Initial(opts.Options)
	s.state.Store(&initial)
	return s
}

// Options returns the presentation options the service derives views with.
func (s *Service) Options() Options {
	return s.opts.Options
}

// Now reads the service clock.
func (s *Service) Now() time.Time {
	return s.opts.now()
}

// Source returns the backing source.
func (s *Service) Source() source.Source {
	return s.src
}

// Snapshot returns the current state.
func (s *Service) Snapshot() State {
	return *s.state.Load()
}

// update applies fn to the current state until it installs without racing
// another writer. fn must be pure.
func (s *Service) update(fn func(State) State) State {
	for {
		cur := s.state.Load()
		next := fn(*cur)
		if s.state.CompareAndSwap(cur, &next) {
			return next
		}
	}
}

// Refresh reloads the working set. Concurrent callers share one fetch.
func (s *Service) Refresh(ctx context.Context) (State, error) {
	v, err, _ := s.flights.Do("refresh", func() (any, error) {
		// a caller going away must not abort the fetch the others wait on
		return s.refresh(context.WithoutCancel(ctx))
	})
	st, _ := v.(State)
	return st, err
}

// refresh runs one generation: start, fetch, complete. If another
// generation started meanwhile, this result is discarded.
func (s *Service) refresh(ctx context.Context) (State, error) {
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	token := ulid.Make().String()
	s.update(func(st State) State { return FetchStarted(st, token) })

	log := s.logger.WithFields(logrus.Fields{"source": s.src.Name(), "generation": token})
	log.Debug("refresh started")

	start := time.Now()
	records, fetchErr := s.src.Fetch(ctx, source.Query{})
	posts, dropped := post.NormalizeAll(records, s.opts.Location)
	elapsed := time.Since(start)

	applied := false
	next := s.update(func(st State) State {
		n, ok := FetchCompleted(st, token, posts, dropped, fetchErr, s.opts.Options)
		applied = ok
		return n
	})

	switch {
	case !applied:
		s.metrics.ObserveFetch(s.src.Name(), metrics.OutcomeStale, elapsed)
		s.metrics.StaleDiscards.Inc()
		log.Info("discarded stale refresh")
	case fetchErr != nil:
		s.metrics.ObserveFetch(s.src.Name(), metrics.OutcomeError, elapsed)
		log.WithError(fetchErr).Error("refresh failed")
	default:
		s.metrics.ObserveFetch(s.src.Name(), metrics.OutcomeOK, elapsed)
		s.metrics.WorkingSetPosts.Set(float64(len(posts)))
		s.metrics.DroppedRows.Add(float64(dropped))
		log.WithFields(logrus.Fields{
			"posts":   len(posts),
			"dropped": dropped,
			"elapsed": elapsed.String(),
		}).Info("refresh completed")
	}

	return next, fetchErr
}

// Ensure loads the working set if no fetch has completed yet.
func (s *Service) Ensure(ctx context.Context) (State, error) {
	if st := s.Snapshot(); st.Loaded() {
		return st, nil
	}
	return s.Refresh(ctx)
}

// Query derives the state for spec and key without touching the shared
// state. With pushdown enabled the source applies what it can first; the
// result is filtered in memory either way. A non-nil error comes with a
// usable state whose Error field is set.
func (s *Service) Query(ctx context.Context, surface string, spec ops.FilterSpec, key ops.SortKey) (State, error) {
	if spec.Now.IsZero() {
		spec.Now = s.opts.now()
	}

	if s.opts.Pushdown && s.src.Pushdown() {
		s.metrics.QueriesTotal.WithLabelValues(surface, "pushdown").Inc()
		return s.pushdown(ctx, spec, key)
	}

	s.metrics.QueriesTotal.WithLabelValues(surface, "memory").Inc()
	// a failed load still yields a derivable (empty) state carrying Error
	st, err := s.Ensure(ctx)
	return QueryChanged(st, spec, key, s.opts.Options), err
}

func (s *Service) pushdown(ctx context.Context, spec ops.FilterSpec, key ops.SortKey) (State, error) {
	q := source.Query{Platform: spec.Platform, Category: spec.Category}
	if !spec.DateStart.IsZero() {
		q.Since = spec.DateStart
	}
	if ps := spec.PeriodStart(); ps.After(q.Since) {
		q.Since = ps
	}

	st := State{LastUpdated: s.opts.now()}
	records, err := s.src.Fetch(ctx, q)
	if err != nil {
		st.Posts = []post.Post{}
		st.Error = err.Error()
	} else {
		st.Posts, st.Dropped = post.NormalizeAll(records, s.opts.Location)
	}

	return QueryChanged(st, spec, key, s.opts.Options), err
}
