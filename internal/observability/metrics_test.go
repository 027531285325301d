package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/jobs/{id}")

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/42", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `freightdesk_http_requests_total{code="418",route="/api/jobs/{id}"} 1`)
	require.Contains(t, body, `freightdesk_http_request_duration_seconds_bucket{route="/api/jobs/{id}"`)
}

func TestDocNoMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.DocNoAllocated("nttk", "reserved")
	metrics.DocNoAllocated("NTTK", "reserved")
	metrics.DocNoAllocated("UNC", "scan")
	metrics.DocNoConflicts(3)

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.docNoAllocations.WithLabelValues("NTTK", "reserved")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.docNoAllocations.WithLabelValues("UNC", "scan")))
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.docNoConflicts))
	require.True(t, strings.Contains(scrape(t, metrics), "freightdesk_docno_conflicts 3"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.DocNoAllocated("NTTK", "scan")
	metrics.DocNoConflicts(1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
