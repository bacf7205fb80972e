// Package metrics exposes Prometheus counters for auth outcomes and HTTP
// traffic on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "task_api"

// Metrics implements auth.Recorder and logging.StatusRecorder.
type Metrics struct {
	registry *prometheus.Registry

	registerTotal      *prometheus.CounterVec
	loginTotal         *prometheus.CounterVec
	tokenRejectedTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the registry and registers every collector. Go runtime and
// process collectors are included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		registerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "register_total",
			Help:      "Registration attempts by outcome",
		}, []string{"outcome"}),

		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),

		tokenRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_rejected_total",
			Help:      "Bearer tokens rejected by reason",
		}, []string{"reason"}),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registerTotal,
		m.loginTotal,
		m.tokenRejectedTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

func (m *Metrics) RegisterOutcome(outcome string) {
	m.registerTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LoginOutcome(outcome string) {
	m.loginTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.tokenRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	method = methodLabel(method)
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// methodLabel folds anything outside the standard HTTP methods into OTHER so
// clients cannot mint label values.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
