package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.DroppedRows.Add(3)
	require.Equal(t, 3.0, testutil.ToFloat64(a.DroppedRows))
	require.Equal(t, 0.0, testutil.ToFloat64(b.DroppedRows))
}

func TestObserveFetch(t *testing.T) {
	m := New()
	m.ObserveFetch("sheets", OutcomeOK, 120*time.Millisecond)
	m.ObserveFetch("sheets", OutcomeStale, 0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("sheets", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("sheets", OutcomeStale)))
	require.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.WorkingSetPosts.Set(27)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	require.True(t, strings.Contains(string(body), "ugcboard_working_set_posts 27"), "body missing gauge")
}

func TestMiddleware(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "GET /dashboard", "418")))
}
