// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs, task executions, quality validation, and stream health.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowkit"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterConfig)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewPipelineMetrics(observability.Meter("flowkit"))
//	metrics.RecordRun(ctx, "orders_daily", "succeeded", duration)
//
// Health:
//
//	health := observability.NewPipelineHealth("orders_daily")
//	health.AddComponent(monitor.CheckHealth(ctx))
package observability
