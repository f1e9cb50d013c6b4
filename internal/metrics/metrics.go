package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Variable metrics
	VariablesStoredTotal     *prometheus.CounterVec
	SerializationErrorsTotal *prometheus.CounterVec
	CleanupFailuresTotal     prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_runs_total",
				Help: "Total number of orchestrated runs",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "handoff_run_duration_seconds",
				Help:    "Duration of orchestrated runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		VariablesStoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_variables_stored_total",
				Help: "Total number of variables written to the temp store",
			},
			[]string{"kind"},
		),
		SerializationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_serialization_errors_total",
				Help: "Total number of variables that failed to serialize",
			},
			[]string{"kind"},
		),
		CleanupFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "handoff_cleanup_failures_total",
				Help: "Total number of temp files that could not be removed",
			},
		),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.VariablesStoredTotal,
		m.SerializationErrorsTotal,
		m.CleanupFailuresTotal,
	)

	return m
}

// RecordRun counts a finished run and observes its duration
func (m *Metrics) RecordRun(failed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// RecordStored counts a variable written to the temp store
func (m *Metrics) RecordStored(kind string) {
	if m == nil {
		return
	}
	m.VariablesStoredTotal.WithLabelValues(kind).Inc()
}

// RecordSerializationError counts a variable that could not be written
func (m *Metrics) RecordSerializationError(kind string) {
	if m == nil {
		return
	}
	m.SerializationErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCleanupFailure counts a temp file that could not be removed
func (m *Metrics) RecordCleanupFailure() {
	if m == nil {
		return
	}
	m.CleanupFailuresTotal.Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
