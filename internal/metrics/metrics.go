// Package metrics exposes prometheus collectors for submissions and store calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeHoneypot    = "honeypot"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	reg         *prometheus.Registry
	submissions *prometheus.CounterVec
	storeCalls  *prometheus.CounterVec
	storeDur    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sorryboard",
			Name:      "submissions_total",
			Help:      "Submissions by outcome.",
		}, []string{"outcome"}),
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sorryboard",
			Name:      "store_requests_total",
			Help:      "Table store requests by method and status.",
		}, []string{"method", "table", "status"}),
		storeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sorryboard",
			Name:      "store_request_duration_seconds",
			Help:      "Table store request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "table"}),
	}
	reg.MustRegister(
		m.submissions,
		m.storeCalls,
		m.storeDur,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Submission counts one submission outcome.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveStore records one table store call. Status 0 means a transport error.
func (m *Metrics) ObserveStore(method, table string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.storeCalls.WithLabelValues(method, table, strconv.Itoa(status)).Inc()
	m.storeDur.WithLabelValues(method, table).Observe(dur.Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
