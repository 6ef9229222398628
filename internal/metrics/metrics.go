// Package metrics exposes Prometheus collectors for the reservation engine,
// the outbox relay and the HTTP surface.  A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels used by the engine.
const (
	OutcomeOK                = "ok"
	OutcomeInvalid           = "invalid"
	OutcomeSlotUnavailable   = "slot_unavailable"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeNotFound          = "not_found"
	OutcomeForbidden         = "forbidden"
	OutcomeTimeout           = "timeout"
	OutcomeStorageFailure    = "storage_failure"
)

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	outbox     *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New builds a Metrics with its own registry under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hotel"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Reservation engine operations by outcome.",
		}, []string{"op", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_operation_duration_seconds",
			Help:      "Duration of reservation engine operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events relayed, by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(m.operations, m.durations, m.outbox, m.requests, m.latency)
	return m
}

// Observe records one engine operation.
func (m *Metrics) Observe(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.durations.WithLabelValues(op).Observe(d.Seconds())
}

// OutboxRelayed counts one relay attempt; result is "sent" or "failed".
func (m *Metrics) OutboxRelayed(result string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(result).Inc()
}

// Operations exposes the engine counter for tests.
func (m *Metrics) Operations() *prometheus.CounterVec { return m.operations }

// Outbox exposes the relay counter for tests.
func (m *Metrics) Outbox() *prometheus.CounterVec { return m.outbox }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			method := c.Request().Method
			m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
