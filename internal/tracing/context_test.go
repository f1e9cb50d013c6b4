package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewRunID(t *testing.T) {
	id1 := NewRunID()
	id2 := NewRunID()

	if id1 == "" {
		t.Error("NewRunID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewRunID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "test-trace-id")

	if got := GetTraceID(ctx); got != "test-trace-id" {
		t.Errorf("Expected trace ID test-trace-id, got %s", got)
	}
}

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "test-run-id")

	if got := GetRunID(ctx); got != "test-run-id" {
		t.Errorf("Expected run ID test-run-id, got %s", got)
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("Expected request ID req-1, got %s", got)
	}
}

func TestGettersEmpty(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" || GetRunID(ctx) != "" || GetRequestID(ctx) != "" {
		t.Error("Expected empty IDs on a bare context")
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace")
	ctx = WithRunID(ctx, "run")
	ctx = WithRequestID(ctx, "req")

	tc := FromContext(ctx)

	if tc.TraceID != "trace" || tc.RunID != "run" || tc.RequestID != "req" {
		t.Errorf("Unexpected trace context: %+v", tc)
	}
}

func TestNewRunContext(t *testing.T) {
	t.Run("creates trace and run IDs", func(t *testing.T) {
		ctx := NewRunContext(context.Background())

		if GetTraceID(ctx) == "" {
			t.Error("Expected trace ID to be set")
		}
		if GetRunID(ctx) == "" {
			t.Error("Expected run ID to be set")
		}
	})

	t.Run("keeps caller trace ID", func(t *testing.T) {
		parent := WithTraceID(context.Background(), "parent-trace")

		first := NewRunContext(parent)
		second := NewRunContext(parent)

		if GetTraceID(first) != "parent-trace" {
			t.Errorf("Expected parent trace ID, got %s", GetTraceID(first))
		}
		if GetRunID(first) == GetRunID(second) {
			t.Error("Expected distinct run IDs per run")
		}
	})
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRunID(WithTraceID(context.Background(), "t-1"), "r-1")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"t-1"`) || !strings.Contains(out, `"run_id":"r-1"`) {
		t.Errorf("Expected tracing fields in log line, got %s", out)
	}
	if strings.Contains(out, "request_id") {
		t.Errorf("Did not expect request_id in log line, got %s", out)
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "handoff.test", "test.span")
	defer span.End()

	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
}
