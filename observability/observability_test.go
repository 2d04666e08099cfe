package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("flowkit")

	if cfg.ServiceName != "flowkit" {
		t.Errorf("expected ServiceName 'flowkit', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("flowkit")

	if cfg.ServiceName != "flowkit" {
		t.Errorf("expected ServiceName 'flowkit', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func newTestTracerProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	return tp, recorder
}

func TestStartSpan(t *testing.T) {
	tp, recorder := newTestTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), SpanTaskExecute)
	if SpanFromContext(ctx) != span {
		t.Error("expected span to be stored in context")
	}
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(spans))
	}
	if spans[0].Name() != SpanTaskExecute {
		t.Errorf("expected span name %q, got %q", SpanTaskExecute, spans[0].Name())
	}
}

func TestSetSpanAttribute(t *testing.T) {
	tp, _ := newTestTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), SpanQualityCheck)

	SetSpanAttribute(ctx, "string-key", "value")
	SetSpanAttribute(ctx, "int-key", 42)
	SetSpanAttribute(ctx, "int64-key", int64(100))
	SetSpanAttribute(ctx, "float-key", 0.95)
	SetSpanAttribute(ctx, "bool-key", true)
	SetSpanAttribute(ctx, "string-slice-key", []string{"a", "b"})

	// Unsupported types are ignored without panicking.
	SetSpanAttribute(ctx, "unsupported-key", struct{}{})

	span.End()
}

func TestSetSpanAttributeNoSpan(t *testing.T) {
	SetSpanAttribute(context.Background(), "key", "value")
	SetSpanError(context.Background(), errors.New("ignored"))
}

func TestTaskObservationContext(t *testing.T) {
	to := ObserveTask("orders_daily", "run-1", "extract_orders", "extract", nil)

	ctx := WithTaskObservation(context.Background(), to)
	got := TaskObservationFromContext(ctx)
	if got != to {
		t.Error("expected observation to round-trip through context")
	}
	if TaskObservationFromContext(context.Background()) != nil {
		t.Error("expected nil observation for empty context")
	}
}

func TestTaskObservationEndTask(t *testing.T) {
	tp, recorder := newTestTracerProvider()
	defer tp.Shutdown(context.Background())

	to := ObserveTask("orders_daily", "run-1", "load_orders", "load", nil)
	ctx, span := to.StartSpanForTask(context.Background())
	to.EndTask(ctx, span, "failed", 3, errors.New("connection reset"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(spans))
	}
	found := map[string]bool{}
	for _, attr := range spans[0].Attributes() {
		found[string(attr.Key)] = true
	}
	for _, key := range []string{AttrPipeline, AttrTaskID, AttrTaskState, AttrAttempts} {
		if !found[key] {
			t.Errorf("expected span attribute %q", key)
		}
	}
}

func TestNewPipelineMetrics(t *testing.T) {
	metrics, err := NewPipelineMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRun(ctx, "orders_daily", "succeeded", 2*time.Second)
	metrics.RecordTask(ctx, "orders_daily", "extract_orders", "extract", "succeeded", time.Second, 2)
	metrics.RecordQualityScore(ctx, "orders", "completeness", 0.98)
	metrics.RecordStreamHealth(ctx, "orders.events", 1500, 30*time.Second)
}

func TestPipelineHealthAggregation(t *testing.T) {
	ph := NewPipelineHealth("orders_daily")
	if ph.Status != HealthStatusUp {
		t.Fatalf("expected initial status up, got %s", ph.Status)
	}

	ph.AddComponent(Health{Name: "orders.events", Status: HealthStatusUp})
	if ph.Status != HealthStatusUp {
		t.Errorf("expected status up, got %s", ph.Status)
	}

	ph.AddComponent(Health{Name: "payments.events", Status: HealthStatusDegraded})
	if ph.Status != HealthStatusDegraded {
		t.Errorf("expected status degraded, got %s", ph.Status)
	}

	ph.AddComponent(Health{Name: "broker", Status: HealthStatusDown})
	if ph.Status != HealthStatusDown {
		t.Errorf("expected status down, got %s", ph.Status)
	}

	// Down is sticky once reached.
	ph.AddComponent(Health{Name: "late", Status: HealthStatusDegraded})
	if ph.Status != HealthStatusDown {
		t.Errorf("expected status to remain down, got %s", ph.Status)
	}
}
