package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client's collectors on a private registry so a CLI run
// can dump exactly what it did.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reviewsTotal    *prometheus.CounterVec
}

// New creates a Metrics with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knolboard_api_requests_total",
			Help: "Total number of API requests issued.",
		}, []string{"method", "route", "status"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knolboard_api_request_errors_total",
			Help: "API requests that failed, by error kind.",
		}, []string{"method", "route", "kind"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "knolboard_api_request_duration_seconds",
			Help:    "Histogram of API request latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reviewsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knolboard_reviews_total",
			Help: "Accepted card reviews by difficulty.",
		}, []string{"difficulty"}),
	}
}

// ObserveRequest records one API round trip. status is 0 when no response arrived.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// ObserveError counts a failed request by kind (network, unauthenticated, validation, server).
func (m *Metrics) ObserveError(method, route, kind string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(method, route, kind).Inc()
}

// ObserveReview counts an accepted review.
func (m *Metrics) ObserveReview(difficulty string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(difficulty).Inc()
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
