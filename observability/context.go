package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TaskObservation tracks one task execution across its span and metrics.
type TaskObservation struct {
	Pipeline  string
	RunID     string
	TaskID    string
	TaskKind  string
	StartTime time.Time
	Metrics   *PipelineMetrics
}

// ObserveTask creates a TaskObservation for a task about to execute.
// If metrics is nil, metric recording is silently skipped.
func ObserveTask(pipeline, runID, taskID, taskKind string, metrics *PipelineMetrics) *TaskObservation {
	return &TaskObservation{
		Pipeline:  pipeline,
		RunID:     runID,
		TaskID:    taskID,
		TaskKind:  taskKind,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

// taskObservationKey is the context key for TaskObservation.
type taskObservationKey struct{}

// WithTaskObservation stores a TaskObservation in the context.
func WithTaskObservation(ctx context.Context, to *TaskObservation) context.Context {
	return context.WithValue(ctx, taskObservationKey{}, to)
}

// TaskObservationFromContext retrieves the TaskObservation from context, or nil.
func TaskObservationFromContext(ctx context.Context) *TaskObservation {
	if to, ok := ctx.Value(taskObservationKey{}).(*TaskObservation); ok {
		return to
	}
	return nil
}

// StartSpanForTask starts a traced span carrying the task identity.
func (to *TaskObservation) StartSpanForTask(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanTaskExecute)
	span.SetAttributes(
		attribute.String(AttrPipeline, to.Pipeline),
		attribute.String(AttrRunID, to.RunID),
		attribute.String(AttrTaskID, to.TaskID),
		attribute.String(AttrTaskKind, to.TaskKind),
	)
	return ctx, span
}

// EndTask ends the span and records the task metrics.
func (to *TaskObservation) EndTask(ctx context.Context, span trace.Span, state string, attempts int, err error) {
	duration := time.Since(to.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrTaskState, state),
		attribute.Int(AttrAttempts, attempts),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if to.Metrics != nil {
		to.Metrics.RecordTask(ctx, to.Pipeline, to.TaskID, to.TaskKind, state, duration, attempts)
	}
}

// Duration returns the elapsed time since the task started.
func (to *TaskObservation) Duration() time.Duration {
	return time.Since(to.StartTime)
}
