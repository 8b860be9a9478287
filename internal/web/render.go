package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hpungsan/ugcboard/internal/dashboard"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/ops"
	"github.com/hpungsan/ugcboard/internal/post"
)

// ContentPreviewRunes is how much post content a card shows.
const ContentPreviewRunes = 150

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "dashboard", "posts"
}

// FilterForm echoes the submitted query so forms keep their values.
type FilterForm struct {
	Platform  string
	DateStart string
	DateEnd   string
	Keyword   string
	Category  string
	Period    string
	Sort      string
}

// Values returns the form as query values, dropping empty ones.
func (f FilterForm) Values() url.Values {
	v := url.Values{}
	for _, kv := range [][2]string{
		{"platform", f.Platform},
		{"date_start", f.DateStart},
		{"date_end", f.DateEnd},
		{"keyword", f.Keyword},
		{"category", f.Category},
		{"period", f.Period},
		{"sort", f.Sort},
	} {
		if kv[1] != "" {
			v.Set(kv[0], kv[1])
		}
	}
	return v
}

// tabURL links the posts page for tab, keeping the current filters.
func tabURL(tab post.Platform, f FilterForm) template.URL {
	v := f.Values()
	if tab != "" {
		v.Set("tab", string(tab))
	}
	u := "/posts"
	if q := v.Encode(); q != "" {
		u += "?" + q
	}
	return template.URL(u)
}

// DashboardPageData is the template data for the dashboard page.
type DashboardPageData struct {
	PageData
	State dashboard.State
	Form  FilterForm
	Now   time.Time
}

// PostsPageData is the template data for the per-platform post list.
type PostsPageData struct {
	PageData
	State  dashboard.State
	Form   FilterForm
	Tab    post.Platform
	Groups []ops.PlatformPosts
	Posts  []post.Post
	Now    time.Time
}

// PostCard is the template data for one post card.
type PostCard struct {
	post.Post
	Age string
}

func postCard(p post.Post, now time.Time) PostCard {
	return PostCard{Post: p, Age: formatAge(p, now)}
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *logrus.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *logrus.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":           func(a, b int) int { return a + b },
		"list":          func(v ...string) []string { return v },
		"subf":          func(a, b float64) float64 { return a - b },
		"formatNumber":  formatNumber,
		"formatPct":     func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
		"formatFloat":   func(f float64) string { return fmt.Sprintf("%.1f", f) },
		"formatTime":    formatTime,
		"card":          postCard,
		"gridY":         gridY,
		"renderContent": renderContent,
		"platformClass": platformClass,
		"barX":          barX,
		"barWidth":      barWidth,
		"tabURL":        tabURL,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"posts":     "posts.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For htmx requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.WithField("template", page).Error("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{"template": page, "block": block}).Error("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// asUGCError returns err as a UGCError, wrapping unknown errors as INTERNAL.
func asUGCError(err error) *errors.UGCError {
	var uErr *errors.UGCError
	if !stderrors.As(err, &uErr) {
		uErr = errors.NewInternal(err)
	}
	return uErr
}

// errorBody is the JSON shape of an error response.
func errorBody(uErr *errors.UGCError) map[string]any {
	body := map[string]any{
		"code":    string(uErr.Code),
		"message": uErr.Message,
		"status":  uErr.Status,
	}
	if len(uErr.Details) > 0 {
		body["details"] = uErr.Details
	}
	return map[string]any{"error": body}
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	uErr := asUGCError(err)
	status := uErr.Status
	message := uErr.Message

	if status >= http.StatusInternalServerError {
		r.logger.WithError(err).WithField("path", req.URL.Path).Error("request failed")
	}

	// htmx request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, errorBody(uErr))
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// contentMarkdown renders post bodies. Raw HTML in content is escaped;
// bare URLs become links.
var contentMarkdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// renderContent converts a post body preview to HTML.
func renderContent(content string) template.HTML {
	content = strings.TrimSpace(content)
	if content == "" {
		return template.HTML(`<p class="muted">投稿内容なし</p>`)
	}
	preview := truncate(content, ContentPreviewRunes)

	var buf bytes.Buffer
	if err := contentMarkdown.Convert([]byte(preview), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(preview))
	}
	return template.HTML(buf.String())
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var numberPrinter = message.NewPrinter(language.Japanese)

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// formatTime formats t as "2006-01-02 15:04", or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// formatAge renders how long ago p was posted.
func formatAge(p post.Post, now time.Time) string {
	age := ops.RelativeAge(p, now)
	switch age.Unit {
	case ops.AgeHours:
		return fmt.Sprintf("%d時間前", age.N)
	case ops.AgeDays:
		return fmt.Sprintf("%d日前", age.N)
	}
	return "日時不明"
}

// platformClass is the CSS class suffix for a platform.
func platformClass(p post.Platform) string {
	return strings.ToLower(string(p))
}

// chartBarGap is the share of a column left empty on each side of its bars.
const chartBarGap = 0.15

// barWidth is the width of one bar in a chart of columns columns holding
// bars bars each, in percentage space.
func barWidth(columns, bars int) float64 {
	if columns <= 0 || bars <= 0 {
		return 0
	}
	cell := 100 / float64(columns)
	return cell * (1 - 2*chartBarGap) / float64(bars)
}

// barX is the left edge of bar j in the column centred at x.
func barX(x float64, columns, bars, j int) float64 {
	if columns <= 0 {
		return 0
	}
	cell := 100 / float64(columns)
	return x - cell/2 + cell*chartBarGap + float64(j)*barWidth(columns, bars)
}

// gridY is the y of horizontal grid line i out of lines, top down.
func gridY(i, lines int) float64 {
	if lines <= 1 {
		return 100
	}
	return float64(i) * 100 / float64(lines-1)
}
