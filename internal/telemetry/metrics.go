package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the collection of Prometheus metrics for a pipeline run.
type Metrics struct {
	GridCells          *prometheus.CounterVec
	CollectorFailures  *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// NewMetrics creates and registers all pipeline metrics. Repeated calls
// return the same registered instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		m := &Metrics{}

		m.GridCells = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treebench_grid_cells_total",
				Help: "Grid cells executed, by library and terminal status",
			},
			[]string{"library", "status"},
		)

		m.CollectorFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treebench_collector_failures_total",
				Help: "Counter/profile collection failures, by collector kind",
			},
			[]string{"kind"},
		)

		m.InvocationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "treebench_invocation_duration_seconds",
				Help:    "Wall time of external invocations",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			m.GridCells,
			m.CollectorFailures,
			m.InvocationDuration,
		)

		metricsInst = m
	})
	return metricsInst
}

// TrackCell records the outcome of one grid cell.
func (m *Metrics) TrackCell(library string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.GridCells.WithLabelValues(library, status).Inc()
}

// TrackCollectorFailure records a failed counter or profile collection.
func (m *Metrics) TrackCollectorFailure(kind string) {
	m.CollectorFailures.WithLabelValues(kind).Inc()
}

// TrackInvocation records the duration of one external invocation.
func (m *Metrics) TrackInvocation(kind string, seconds float64) {
	m.InvocationDuration.WithLabelValues(kind).Observe(seconds)
}

// StartMetricsServer starts an HTTP server exposing Prometheus metrics.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
