package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Options configures the web server.
type Options struct {
	Version string
	Bind    string
	Port    int
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// NewServer creates and configures the HTTP server for the dashboard.
func NewServer(svc *dashboard.Service, cfg *config.Config, opts Options) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           NewHandler(svc, cfg, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, instrumented handler tree.
func NewHandler(svc *dashboard.Service, cfg *config.Config, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		logger.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		logger.Fatalf("failed to create static sub-FS: %v", err)
	}

	h := &Handlers{
		svc:      svc,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, opts.Version, logger),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /dashboard", h.HandleDashboard)
	mux.HandleFunc("GET /posts", h.HandlePosts)
	mux.HandleFunc("POST /refresh", h.HandleRefresh)
	mux.HandleFunc("GET /api/dashboard", h.HandleDashboardJSON)
	mux.HandleFunc("GET /api/ugc-data", h.HandleUGCData)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", m.Handler())

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return m.Middleware(securityHeaders(mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
// Post thumbnails are remote, so images may load from any https origin.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' https: data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.WithField("addr", srv.Addr).Infof("dashboard running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
