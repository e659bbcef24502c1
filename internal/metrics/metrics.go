// Package metrics holds the prometheus collectors for the expense service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ExpensesCreated prometheus.Counter
	StoreErrors     *prometheus.CounterVec
	RateLimited     prometheus.Counter
	HTTPLatency     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExpensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expenses_created_total",
			Help: "Total expenses persisted",
		}),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_store_errors_total",
				Help: "Record store failures by operation",
			},
			[]string{"operation"},
		),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		}),
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.ExpensesCreated, m.StoreErrors, m.RateLimited, m.HTTPLatency)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry the collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StoreError counts a failed store operation. Safe on a nil receiver.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// Created counts a persisted expense. Safe on a nil receiver.
func (m *Metrics) Created() {
	if m == nil {
		return
	}
	m.ExpensesCreated.Inc()
}

// Limited counts a request rejected by the rate limiter. Safe on a nil receiver.
func (m *Metrics) Limited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware observes request latency labelled by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPLatency.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if patt := rc.RoutePattern(); patt != "" {
			return patt
		}
	}
	return "unmatched"
}
