// Package metrics exposes the Prometheus collectors used across HTTP,
// sync, and commerce components, all registered on a private registry
// served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this service registers.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "directory", Subsystem: "http", Name: "requests_total", Help: "Total HTTP requests handled."},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "directory", Subsystem: "http", Name: "request_duration_seconds", Help: "HTTP request duration.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	SyncPhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "directory", Subsystem: "sync", Name: "phase_duration_seconds", Help: "Duration of each sync phase."},
		[]string{"phase"},
	)
	SyncPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "directory", Subsystem: "sync", Name: "points_total", Help: "Points processed by sync, by phase and outcome."},
		[]string{"phase", "outcome"},
	)

	IssuesOpenGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "directory", Subsystem: "issues", Name: "open_total", Help: "Currently non-deleted element issues."},
	)

	InvoicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "directory", Subsystem: "commerce", Name: "invoices_total", Help: "Invoices issued, by description kind and status."},
		[]string{"kind", "status"},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SyncPhaseDuration,
		SyncPointsTotal,
		IssuesOpenGauge,
		InvoicesTotal,
	)
}

// Handler returns the /metrics HTTP handler for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
