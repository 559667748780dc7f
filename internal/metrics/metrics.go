// Package metrics exposes the Prometheus collectors for the substrate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "substrate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "substrate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "substrate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "substrate",
			Subsystem: "io",
			Name:      "retry_attempts_total",
			Help:      "Total number of retried IO attempts.",
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, retryAttempts)
}

// IncrementInFlight marks a request as started.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight marks a request as finished.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordRetry records one retried IO attempt for the named operation.
func RecordRetry(operation string) {
	retryAttempts.WithLabelValues(operation).Inc()
}

// Handler returns the exposition endpoint for the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
