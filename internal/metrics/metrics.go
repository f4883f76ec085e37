// Package metrics exposes Prometheus collectors for the API server.
//
// All Manager methods are safe to call on a nil *Manager, so components can
// be constructed without metrics in tests and one-off commands.
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

const defaultNamespace = "eventhub"

// Manager owns a registry and the collectors registered on it.
type Manager struct {
	registry *prometheus.Registry

	docstoreOps     *prometheus.CounterVec
	docstoreLatency *prometheus.HistogramVec

	aggregationLatency *prometheus.HistogramVec
	aggregationItems   *prometheus.HistogramVec
	aggregationErrors  *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Manager with its own registry. namespace defaults to "eventhub".
func New(namespace string) *Manager {
	if namespace == "" {
		namespace = defaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		docstoreOps: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "docstore",
			Name:      "operations_total",
			Help:      "Document backend calls by operation, collection and outcome.",
		}, []string{"op", "collection", "outcome"}),
		docstoreLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "docstore",
			Name:      "operation_duration_seconds",
			Help:      "Document backend call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "collection"}),
		aggregationLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "End-to-end latency of a view-model aggregation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"aggregation"}),
		aggregationItems: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "items",
			Help:      "Number of items returned by an aggregation.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"aggregation"}),
		aggregationErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "errors_total",
			Help:      "Aggregations that returned an error.",
		}, []string{"aggregation"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocstore records one document backend call.
func (m *Manager) ObserveDocstore(op, collection string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.docstoreOps.WithLabelValues(op, collection, outcome(err)).Inc()
	m.docstoreLatency.WithLabelValues(op, collection).Observe(d.Seconds())
}

// ObserveAggregation records one aggregation run and the size of its result.
func (m *Manager) ObserveAggregation(name string, d time.Duration, items int, err error) {
	if m == nil {
		return
	}
	m.aggregationLatency.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.aggregationErrors.WithLabelValues(name).Inc()
		return
	}
	m.aggregationItems.WithLabelValues(name).Observe(float64(items))
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
