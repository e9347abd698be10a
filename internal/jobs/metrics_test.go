package jobmetrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
)

func scrape(reg *prometheus.Registry) string {
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("featured_expiry").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("featured_expiry").End(boom), boom)

	body := scrape(reg)
	assert.Contains(t, body, `propertyhub_jobs_total{job="featured_expiry",status="success"} 1`)
	assert.Contains(t, body, `propertyhub_jobs_total{job="featured_expiry",status="failure"} 1`)
	assert.Contains(t, body, `propertyhub_jobs_failures_total{job="featured_expiry"} 1`)
}

func TestAddSwept(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddSwept("idempotency_cleanup", 4)
	m.AddSwept("idempotency_cleanup", 0)
	assert.Contains(t, scrape(reg), `propertyhub_job_rows_swept_total{job="idempotency_cleanup"} 4`)

	var nilMetrics *Metrics
	nilMetrics.AddSwept("x", 1)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}

func TestOutcomeSeparatesDroppedTasks(t *testing.T) {
	assert.Equal(t, StatusSuccess, Outcome(nil))
	assert.Equal(t, StatusFailure, Outcome(errors.New("smtp down")))
	assert.Equal(t, StatusDropped, Outcome(fmt.Errorf("bad payload: %w", asynq.SkipRetry)))

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_ = m.Track("mail").End(fmt.Errorf("no recipient: %w", asynq.SkipRetry))
	assert.Contains(t, scrape(reg), `propertyhub_jobs_total{job="mail",status="dropped"} 1`)
}
