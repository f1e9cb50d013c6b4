package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.RunsTotal == nil || m.RunDuration == nil {
		t.Error("Run metrics are nil")
	}

	if m.VariablesStoredTotal == nil || m.SerializationErrorsTotal == nil || m.CleanupFailuresTotal == nil {
		t.Error("Variable metrics are nil")
	}
}

func TestRecordRun(t *testing.T) {
	m := NewMetrics()

	m.RecordRun(false, 200*time.Millisecond)
	m.RecordRun(false, time.Second)
	m.RecordRun(true, time.Second)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
	if got := testutil.CollectAndCount(m.RunDuration); got != 1 {
		t.Errorf("Expected one duration histogram, got %d", got)
	}
}

func TestVariableMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordStored("table")
	m.RecordStored("table")
	m.RecordStored("text")
	m.RecordSerializationError("numeric-array")
	m.RecordCleanupFailure()

	if got := testutil.ToFloat64(m.VariablesStoredTotal.WithLabelValues("table")); got != 2 {
		t.Errorf("Expected 2 stored tables, got %v", got)
	}
	if got := testutil.ToFloat64(m.VariablesStoredTotal.WithLabelValues("text")); got != 1 {
		t.Errorf("Expected 1 stored text, got %v", got)
	}
	if got := testutil.ToFloat64(m.SerializationErrorsTotal.WithLabelValues("numeric-array")); got != 1 {
		t.Errorf("Expected 1 serialization error, got %v", got)
	}
	if got := testutil.ToFloat64(m.CleanupFailuresTotal); got != 1 {
		t.Errorf("Expected 1 cleanup failure, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.RecordRun(true, time.Second)
	m.RecordStored("text")
	m.RecordSerializationError("text")
	m.RecordCleanupFailure()
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	m.RecordRun(false, time.Second)
	m.RecordStored("structured")
	m.RecordSerializationError("structured")
	m.RecordCleanupFailure()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"handoff_runs_total",
		"handoff_run_duration_seconds",
		"handoff_variables_stored_total",
		"handoff_serialization_errors_total",
		"handoff_cleanup_failures_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	m.RecordRun(false, time.Second)
	m.RecordStored("text")
	m.RecordSerializationError("text")

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[mf.GetName()] = true
	}

	// Vectors only appear once a label set has been used.
	expectedCount := 5
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
}

func TestSeparateRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCleanupFailure()

	if got := testutil.ToFloat64(b.CleanupFailuresTotal); got != 0 {
		t.Errorf("Expected independent registries, got %v", got)
	}
}
