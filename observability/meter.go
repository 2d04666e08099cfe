package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/flowkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PipelineMetrics holds OpenTelemetry instruments for pipeline execution,
// quality validation, and stream health.
type PipelineMetrics struct {
	runTotal        metric.Int64Counter
	runDuration     metric.Float64Histogram
	taskTotal       metric.Int64Counter
	taskDuration    metric.Float64Histogram
	taskRetries     metric.Int64Counter
	qualityScore    metric.Float64Histogram
	streamLag       metric.Int64Gauge
	streamFreshness metric.Float64Gauge
}

// NewPipelineMetrics creates pipeline metric instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runTotal, err := meter.Int64Counter("pipeline.run.total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("pipeline.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.duration histogram: %w", err)
	}

	taskTotal, err := meter.Int64Counter("pipeline.task.total",
		metric.WithDescription("Total tasks by terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.task.total counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("pipeline.task.duration",
		metric.WithDescription("Duration of task executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.task.duration histogram: %w", err)
	}

	taskRetries, err := meter.Int64Counter("pipeline.task.retries",
		metric.WithDescription("Total retry attempts beyond the first"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.task.retries counter: %w", err)
	}

	qualityScore, err := meter.Float64Histogram("quality.score",
		metric.WithDescription("Quality scores by dimension"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating quality.score histogram: %w", err)
	}

	streamLag, err := meter.Int64Gauge("stream.consumer.lag",
		metric.WithDescription("Consumer lag in messages per topic"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.consumer.lag gauge: %w", err)
	}

	streamFreshness, err := meter.Float64Gauge("stream.freshness",
		metric.WithDescription("Age of the newest consumed record in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.freshness gauge: %w", err)
	}

	return &PipelineMetrics{
		runTotal:        runTotal,
		runDuration:     runDuration,
		taskTotal:       taskTotal,
		taskDuration:    taskDuration,
		taskRetries:     taskRetries,
		qualityScore:    qualityScore,
		streamLag:       streamLag,
		streamFreshness: streamFreshness,
	}, nil
}

// RecordRun records a completed pipeline run.
func (m *PipelineMetrics) RecordRun(ctx context.Context, pipeline, status string, duration time.Duration) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
	))
}

// RecordTask records a task reaching a terminal state.
func (m *PipelineMetrics) RecordTask(ctx context.Context, pipeline, taskID, kind, state string, duration time.Duration, attempts int) {
	m.taskTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("kind", kind),
		attribute.String("state", state),
	))
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("task", taskID),
	))
	if attempts > 1 {
		m.taskRetries.Add(ctx, int64(attempts-1), metric.WithAttributes(
			attribute.String("pipeline", pipeline),
			attribute.String("task", taskID),
		))
	}
}

// RecordQualityScore records a quality score for one dimension, or for the
// whole report when dimension is "overall".
func (m *PipelineMetrics) RecordQualityScore(ctx context.Context, dataset, dimension string, score float64) {
	m.qualityScore.Record(ctx, score, metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("dimension", dimension),
	))
}

// RecordStreamHealth records lag and freshness observations for a topic.
func (m *PipelineMetrics) RecordStreamHealth(ctx context.Context, topic string, lag int64, freshness time.Duration) {
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	m.streamLag.Record(ctx, lag, attrs)
	m.streamFreshness.Record(ctx, freshness.Seconds(), attrs)
}
