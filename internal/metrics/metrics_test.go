package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSubmission(t *testing.T) {
	m := New()
	m.ObserveSubmission(1, 80, true)
	m.ObserveSubmission(1, 20, false)
	m.ObserveSubmission(2, 90, true)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("passed")); got != 2 {
		t.Fatalf("passed = %v", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed = %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tests/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Handle("/metrics", m.Handler())

	for _, p := range []string{"/tests/1", "/tests/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tests/{id}", "418")); got != 2 {
		t.Fatalf("route counter = %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if body := rec.Body.String(); !strings.Contains(body, "http_requests_total") || !strings.Contains(body, "quiz_submission_percentage") {
		t.Fatalf("exposition missing collectors:\n%s", rec.Body.String())
	}
}
