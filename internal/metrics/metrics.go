// Package metrics defines the Prometheus collectors for the metadata cache.
//
// All recorder methods are safe to call on a nil *Metrics so components can be
// constructed without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytcache"

// Probe outcomes recorded per identifier by the resolver.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeStale       = "stale"
	OutcomeProbeFailed = "probe_failed"
	OutcomeFetched     = "fetched"
	OutcomePlaceholder = "placeholder"
)

// Metrics holds the collectors.
type Metrics struct {
	resolveRequests  *prometheus.CounterVec
	resolveIDs       *prometheus.CounterVec
	resolveDuration  prometheus.Histogram
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration prometheus.Histogram
	storeErrors      *prometheus.CounterVec
	sweepRuns        *prometheus.CounterVec
	sweepRecords     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	gatherer         prometheus.Gatherer
}

// New registers the collectors on reg. reg is usually a fresh
// prometheus.NewRegistry so tests can build several instances.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		resolveRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_requests_total",
			Help:      "Metadata resolution calls by result.",
		}, []string{"result"}),
		resolveIDs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_ids_total",
			Help:      "Identifiers handled by the resolver by outcome.",
		}, []string{"outcome"}),
		resolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Wall time of a metadata resolution call.",
			Buckets:   prometheus.DefBuckets,
		}),
		upstreamCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "videos.list chunk calls by result.",
		}, []string{"result"}),
		upstreamDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of videos.list chunk calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Cache store failures by operation.",
		}, []string{"op"}),
		sweepRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Scheduled sweep runs by sweep and result.",
		}, []string{"sweep", "result"}),
		sweepRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_records_total",
			Help:      "Records touched by scheduled sweeps by action.",
		}, []string{"sweep", "action"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ResolveRequest records one resolver call.
func (m *Metrics) ResolveRequest(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.resolveRequests.WithLabelValues(result).Inc()
	m.resolveDuration.Observe(d.Seconds())
}

// ResolveIDs adds n identifiers with the given outcome.
func (m *Metrics) ResolveIDs(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.resolveIDs.WithLabelValues(outcome).Add(float64(n))
}

// UpstreamCall records one videos.list chunk call.
func (m *Metrics) UpstreamCall(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(result).Inc()
	if d > 0 {
		m.upstreamDuration.Observe(d.Seconds())
	}
}

// StoreError records a failed store operation.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

// SweepRun records a finished sweep.
func (m *Metrics) SweepRun(sweep, result string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(sweep, result).Inc()
}

// SweepRecords adds n records handled by a sweep with the given action.
func (m *Metrics) SweepRecords(sweep, action string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepRecords.WithLabelValues(sweep, action).Add(float64(n))
}

// HTTPRequest records a served HTTP request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
