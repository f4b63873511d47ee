// Package metrics exposes the dashboard's own HTTP request metrics,
// separate from the exploration metrics in internal/telemetry: this package
// instruments the dashboard server itself, not the explorer it serves.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's HTTP-layer metrics.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	requestsInFlight prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered against the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crdtcheck_dashboard_requests_total",
			Help: "Total number of dashboard HTTP requests.",
		}, []string{"path", "status"}),

		requestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crdtcheck_dashboard_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		requestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "crdtcheck_dashboard_requests_in_flight",
			Help: "Current number of dashboard HTTP requests being processed.",
		}),
	}
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(path, status string) {
	m.requestsTotal.WithLabelValues(path, status).Inc()
}

// RecordRequestDuration records the duration of an HTTP request.
func (m *Metrics) RecordRequestDuration(duration time.Duration) {
	m.requestDuration.Observe(duration.Seconds())
}

// IncRequestsInFlight increments the in-flight requests counter.
func (m *Metrics) IncRequestsInFlight() {
	m.requestsInFlight.Inc()
}

// DecRequestsInFlight decrements the in-flight requests counter.
func (m *Metrics) DecRequestsInFlight() {
	m.requestsInFlight.Dec()
}

// Handler returns an http.Handler serving the default Prometheus registry in
// the text exposition format, for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
