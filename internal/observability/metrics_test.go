package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/properties")

	req := httptest.NewRequest(http.MethodGet, "/api/properties", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `propertyhub_http_requests_total{code="418",method="GET",route="/api/properties"} 1`)
	assert.Contains(t, body, `propertyhub_http_request_duration_seconds_bucket{method="GET",route="/api/properties"`)
}

func TestMetricsMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.NotFoundHandler())

	for _, path := range []string{"/wp-admin", "/.env"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, metrics)
	assert.Contains(t, body, `propertyhub_http_requests_total{code="404",method="GET",route="unmatched"} 2`)
}

func TestGateAndApprovalCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveGate("admin", "forbidden")
	metrics.ObserveApproval("property", "approve", 3)
	metrics.ObserveApproval("property", "approve", 0)

	body := scrape(t, metrics)
	assert.Contains(t, body, `propertyhub_gate_decisions_total{class="admin",outcome="forbidden"} 1`)
	assert.Contains(t, body, `propertyhub_approval_actions_total{action="approve",entity="property"} 3`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveGate("public", "pass")
	metrics.ObserveApproval("user", "approve", 1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Service Unavailable"))
}
