package web

import (
	"maps"
	"net/http"
	"time"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
	"github.com/hpungsan/ugcboard/internal/source"
)

// sheetsQuotaNote is attached to raw row responses served from the
// spreadsheet, whose export endpoint is rate limited.
const sheetsQuotaNote = "Google Sheets allows 100 requests per minute; avoid frequent refreshes."

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	svc      *dashboard.Service
	cfg      *config.Config
	renderer *Renderer
}

// UGCDataResponse is the envelope of GET /api/ugc-data.
type UGCDataResponse struct {
	Success bool          `json:"success"`
	Data    []post.RawRow `json:"data,omitempty"`
	Count   int           `json:"count"`
	Error   string        `json:"error,omitempty"`
	Limits  *Limits       `json:"limits,omitempty"`
}

// Limits describes how the raw row set was capped.
type Limits struct {
	ItemsPerPlatform int    `json:"itemsPerPlatform"`
	TotalItems       int    `json:"totalItems"`
	Note             string `json:"note,omitempty"`
}

// HandleDashboard handles GET /dashboard: filters, headline stats, chart
// and the post list.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	form := readForm(r)
	st, ok := h.query(w, r, dashboard.SurfaceWeb, form)
	if !ok {
		return
	}

	if wantsJSON(r) {
		renderState(w, st)
		return
	}

	data := DashboardPageData{
		PageData: PageData{
			Title:   "UGC Dashboard",
			Version: h.renderer.version,
			Nav:     "dashboard",
		},
		State: st,
		Form:  form,
		Now:   h.svc.Now(),
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "dashboard", "results", data)
		return
	}

	h.renderer.renderPage(w, r, "dashboard", data)
}

// HandleDashboardJSON handles GET /api/dashboard: the derived state as JSON.
func (h *Handlers) HandleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	st, ok := h.query(w, r, dashboard.SurfaceAPI, readForm(r))
	if !ok {
		return
	}
	renderState(w, st)
}

// renderState writes st as JSON; a state carrying a fetch error is a 503.
func renderState(w http.ResponseWriter, st dashboard.State) {
	if st.Error != "" {
		renderJSON(w, http.StatusServiceUnavailable, st)
		return
	}
	renderJSON(w, http.StatusOK, st)
}

// HandlePosts handles GET /posts: the filtered posts, one tab per platform.
func (h *Handlers) HandlePosts(w http.ResponseWriter, r *http.Request) {
	form := readForm(r)

	var tab post.Platform
	if t := r.URL.Query().Get("tab"); !ops.IsAll(t) {
		tab = post.ParsePlatform(t)
		if !tab.Known() {
			h.renderer.renderError(w, r, errors.NewInvalidField("tab", "unknown platform "+t))
			return
		}
	}

	st, ok := h.query(w, r, dashboard.SurfaceWeb, form)
	if !ok {
		return
	}

	posts := st.View.Posts
	for _, g := range st.View.ByPlatform {
		if g.Platform == tab {
			posts = g.Posts
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"tab":   tab,
			"count": len(posts),
			"posts": posts,
		})
		return
	}

	h.renderer.renderPage(w, r, "posts", PostsPageData{
		PageData: PageData{
			Title:   "Posts",
			Version: h.renderer.version,
			Nav:     "posts",
		},
		State:  st,
		Form:   form,
		Tab:    tab,
		Groups: st.View.ByPlatform,
		Posts:  posts,
		Now:    h.svc.Now(),
	})
}

// HandleRefresh handles POST /refresh: reload the working set from the source.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// htmx request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/dashboard")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"posts":        len(st.Posts),
			"dropped":      st.Dropped,
			"last_updated": st.LastUpdated,
		})
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleUGCData handles GET /api/ugc-data: the raw rows as fetched, each
// tagged with the platform of the sheet it came from.
func (h *Handlers) HandleUGCData(w http.ResponseWriter, r *http.Request) {
	src := h.svc.Source()
	records, err := src.Fetch(r.Context(), source.Query{})
	if err != nil {
		uErr := asUGCError(err)
		h.renderer.logger.WithError(err).WithField("source", src.Name()).Warn("raw row fetch failed")
		renderJSON(w, uErr.Status, UGCDataResponse{Success: false, Error: uErr.Message})
		return
	}

	rows := make([]post.RawRow, 0, len(records))
	for _, rec := range records {
		row := maps.Clone(rec.Row)
		if row == nil {
			row = post.RawRow{}
		}
		if rec.Hint != "" {
			row["platform"] = string(rec.Hint)
		}
		rows = append(rows, row)
	}

	limits := &Limits{
		ItemsPerPlatform: h.cfg.ItemsPerSheet,
		TotalItems:       len(rows),
	}
	if src.Name() == config.SourceSheets {
		limits.Note = sheetsQuotaNote
	}

	renderJSON(w, http.StatusOK, UGCDataResponse{
		Success: true,
		Data:    rows,
		Count:   len(rows),
		Limits:  limits,
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Snapshot()
	renderJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"source":       h.svc.Source().Name(),
		"loaded":       st.Loaded(),
		"loading":      st.Loading,
		"last_updated": st.LastUpdated,
	})
}

// query parses form and runs it against the service. On a bad request
// it writes the error and returns false. A source failure is not a bad
// request: the returned state carries it in Error.
func (h *Handlers) query(w http.ResponseWriter, r *http.Request, surface string, form FilterForm) (dashboard.State, bool) {
	spec, err := ops.ParseFilter(ops.FilterInput{
		Platform:  form.Platform,
		DateStart: form.DateStart,
		DateEnd:   form.DateEnd,
		Keyword:   form.Keyword,
		Category:  form.Category,
		Period:    form.Period,
	}, h.svc.Options().Location, time.Time{})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return dashboard.State{}, false
	}

	key, err := ops.ParseSortKey(form.Sort)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return dashboard.State{}, false
	}

	st, err := h.svc.Query(r.Context(), surface, spec, key)
	if err != nil {
		h.renderer.logger.WithError(err).WithField("surface", surface).Warn("dashboard query served without data")
	}
	return st, true
}

// readForm collects the filter query parameters.
func readForm(r *http.Request) FilterForm {
	q := r.URL.Query()
	return FilterForm{
		Platform:  q.Get("platform"),
		DateStart: q.Get("date_start"),
		DateEnd:   q.Get("date_end"),
		Keyword:   q.Get("keyword"),
		Category:  q.Get("category"),
		Period:    q.Get("period"),
		Sort:      q.Get("sort"),
	}
}
