// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teknigo"

// Metrics groups the application collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SanitizedTotal  *prometheus.CounterVec
	LoginFailures   *prometheus.CounterVec
	LoginBlocks     prometheus.Counter
	RateLimited     *prometheus.CounterVec
	DirectoryErrors *prometheus.CounterVec
}

// New registers the collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		SanitizedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sanitizer",
			Name:      "records_total",
			Help:      "Records sanitized before leaving the server, by kind and requester role.",
		}, []string{"kind", "role"}),
		LoginFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "failures_total",
			Help:      "Failed sign-in attempts by identifier kind.",
		}, []string{"kind"}),
		LoginBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "blocks_total",
			Help:      "Sign-in attempts rejected because the identifier is locked out.",
		}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Requests rejected by the rate limiter, by category.",
		}, []string{"category"}),
		DirectoryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "errors_total",
			Help:      "Technician directory index failures by operation.",
		}, []string{"op"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Sanitized counts n records of kind sanitized for role.
func (m *Metrics) Sanitized(kind, role string, n int) {
	if m == nil || n <= 0 {
		return
	}
	if role == "" {
		role = "anonymous"
	}
	m.SanitizedTotal.WithLabelValues(kind, role).Add(float64(n))
}

// LoginFailure counts a failed sign-in for an identifier kind ("email" or "ip").
func (m *Metrics) LoginFailure(kind string) {
	if m == nil {
		return
	}
	m.LoginFailures.WithLabelValues(kind).Inc()
}

// LoginBlockHit counts a sign-in rejected by an active lockout.
func (m *Metrics) LoginBlockHit() {
	if m == nil {
		return
	}
	m.LoginBlocks.Inc()
}

// RateLimitRejected counts a request rejected for category.
func (m *Metrics) RateLimitRejected(category string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(category).Inc()
}

// DirectoryError counts a failed directory operation.
func (m *Metrics) DirectoryError(op string) {
	if m == nil {
		return
	}
	m.DirectoryErrors.WithLabelValues(op).Inc()
}
