package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Recorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ResolveRequest("ok", 10*time.Millisecond)
	m.ResolveIDs(OutcomeHit, 3)
	m.ResolveIDs(OutcomeMiss, 0)
	m.UpstreamCall("ok", 5*time.Millisecond)
	m.UpstreamCall("error", 0)
	m.StoreError("get")
	m.SweepRun("evict", "ok")
	m.SweepRecords("evict", "deleted", 4)
	m.HTTPRequest(http.MethodPost, "/api/v1/videos/metadata", 503, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolveRequests.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.resolveIDs.WithLabelValues(OutcomeHit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.resolveIDs.WithLabelValues(OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("get")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sweepRecords.WithLabelValues("evict", "deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodPost, "/api/v1/videos/metadata", "5xx")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ResolveRequest("ok", time.Second)
		m.ResolveIDs(OutcomeHit, 1)
		m.UpstreamCall("ok", time.Second)
		m.StoreError("put")
		m.SweepRun("refresh", "ok")
		m.SweepRecords("refresh", "refreshed", 1)
		m.HTTPRequest(http.MethodGet, "/health/live", 200, time.Second)
	})
	assert.NotNil(t, m.Handler())
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SweepRun("refresh", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ytcache_sweep_runs_total{result="ok",sweep="refresh"} 1`)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
}
