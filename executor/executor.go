package executor

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/skillsenselab/flowkit/dag"
	apperrors "github.com/skillsenselab/flowkit/errors"
	"github.com/skillsenselab/flowkit/logger"
	"github.com/skillsenselab/flowkit/observability"
	"github.com/skillsenselab/flowkit/pipeline"
	"github.com/skillsenselab/flowkit/quality"
	"github.com/skillsenselab/flowkit/resilience"
)

// DefaultMaxParallelism bounds worker goroutines when unset.
const DefaultMaxParallelism = 4

// Executor schedules a built graph across a bounded worker pool. Tasks are
// dispatched as soon as every dependency has succeeded; a failed task skips
// all of its transitive dependents.
type Executor struct {
	// MaxParallelism limits concurrently running tasks (0 = DefaultMaxParallelism).
	MaxParallelism int
	// Policy is the base retry policy; per-task retry specs override its
	// attempt count and base delay.
	Policy resilience.RetryPolicy
	// Log defaults to the global logger when nil.
	Log *logger.Logger
	// Metrics is optional; nil skips metric recording.
	Metrics *observability.PipelineMetrics
	// Datasets resolves datasets for quality_check tasks.
	Datasets DatasetProvider
}

// outcome carries a finished task execution back to the scheduler.
type outcome struct {
	state    TaskState
	attempts int
	err      error
	report   *quality.Report
	started  time.Time
	ended    time.Time
}

// Execute runs every task of the graph and returns the sealed run. The run
// records per-task state even when the context is cancelled mid-flight; the
// returned error is only non-nil for cancellation.
func (e *Executor) Execute(ctx context.Context, d *dag.DAG, bodies map[string]TaskBody) (*Run, error) {
	def := d.Definition()
	run := newRun(def)

	ctx = logger.ContextWithRun(ctx, def.Name, run.ID)
	log := e.logger().WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	span.SetAttributes(
		attribute.String(observability.AttrPipeline, def.Name),
		attribute.String(observability.AttrRunID, run.ID),
	)
	defer span.End()

	log.Info("run started", logger.Fields("tasks", len(def.Tasks)))

	if len(def.Tasks) == 0 {
		run.seal()
		return run, nil
	}

	var (
		mu        sync.Mutex
		remaining = len(def.Tasks)
		inDeg     = d.InDegrees()
		readyCh   = make(chan string, len(def.Tasks))
	)

	for _, id := range d.Order() {
		if inDeg[id] == 0 {
			readyCh <- id
		}
	}

	workers := e.MaxParallelism
	if workers <= 0 {
		workers = DefaultMaxParallelism
	}
	if workers > len(def.Tasks) {
		workers = len(def.Tasks)
	}

	finalize := func(id string, out outcome) {
		mu.Lock()
		defer mu.Unlock()

		res := run.results[id]
		res.State = out.state
		res.Attempts = out.attempts
		res.Err = out.err
		res.StartedAt = out.started
		res.EndedAt = out.ended
		res.Quality = out.report
		remaining--

		if out.state == StateSucceeded {
			for _, dep := range d.Dependents(id) {
				inDeg[dep]--
				if inDeg[dep] == 0 && run.results[dep].State == StatePending {
					readyCh <- dep
				}
			}
		} else {
			for _, dep := range d.TransitiveDependents(id) {
				if r := run.results[dep]; r.State == StatePending {
					r.State = StateSkipped
					remaining--
					log.Info("task skipped", logger.Fields(
						logger.FieldTask, dep,
						"cause", id,
					))
				}
			}
		}

		if remaining == 0 {
			close(readyCh)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range readyCh {
				mu.Lock()
				run.results[id].State = StateRunning
				mu.Unlock()

				finalize(id, e.runTask(ctx, d, run, id, bodies[id]))
			}
		}()
	}
	wg.Wait()

	run.seal()

	status := "succeeded"
	var runErr error
	if run.Failed() {
		status = "failed"
		runErr = run.FirstFailure()
		observability.SetSpanError(ctx, runErr)
	}
	span.SetAttributes(attribute.String("run.status", status))
	if e.Metrics != nil {
		e.Metrics.RecordRun(ctx, def.Name, status, run.Duration())
	}
	log.Info("run finished", logger.Fields(
		"status", status,
		logger.FieldDuration, run.Duration().Milliseconds(),
	))

	return run, ctx.Err()
}

// runTask executes one task through retry, timeout, and observability.
func (e *Executor) runTask(ctx context.Context, d *dag.DAG, run *Run, id string, body TaskBody) outcome {
	def := d.Definition()
	task, _ := def.Task(id)

	ctx = logger.ContextWithTask(ctx, id)
	log := e.logger().WithContext(ctx)

	to := observability.ObserveTask(def.Name, run.ID, id, string(task.Kind), e.Metrics)
	ctx, span := to.StartSpanForTask(ctx)

	log.Info("task started", logger.Fields("kind", string(task.Kind)))
	started := time.Now()

	var report *quality.Report
	if body == nil {
		if task.Kind == pipeline.KindQualityCheck && task.Quality != nil {
			body = e.qualityBody(&report)
		} else {
			err := apperrors.Terminal("no body for task " + id)
			to.EndTask(ctx, span, string(StateFailed), 0, err)
			log.Error("task failed", logger.Fields(logger.FieldError, err.Error()))
			return outcome{state: StateFailed, err: err, started: started, ended: time.Now()}
		}
	}

	attempts, err := resilience.RunWithRetry(ctx, wrapBody(task, body), e.policyFor(def, task, log))

	out := outcome{
		attempts: attempts,
		err:      err,
		report:   report,
		started:  started,
		ended:    time.Now(),
	}
	if err == nil {
		out.state = StateSucceeded
	} else {
		out.state = StateFailed
	}

	to.EndTask(ctx, span, string(out.state), attempts, err)

	fields := logger.Fields(
		logger.FieldState, string(out.state),
		logger.FieldAttempt, attempts,
		logger.FieldDuration, out.ended.Sub(started).Milliseconds(),
	)
	if err != nil {
		log.Error("task failed", logger.MergeWithError(fields, err))
	} else {
		log.Info("task finished", fields)
	}
	return out
}

// qualityBody builds the gate body for a quality_check task. The produced
// report is returned through out so failed gates still surface scores.
func (e *Executor) qualityBody(out **quality.Report) TaskBody {
	return func(ctx context.Context, task pipeline.TaskSpec) error {
		if e.Datasets == nil {
			return apperrors.Terminal("no dataset provider configured")
		}
		ds, err := e.Datasets(ctx, task)
		if err != nil {
			return err
		}

		spec := *task.Quality
		spec.ApplyDefaults()

		var opts []quality.Option
		if len(spec.Weights) > 0 {
			opts = append(opts, quality.WithWeights(spec.Weights))
		}
		report := quality.Validate(ds, spec.Rules(), opts...)
		*out = &report

		if e.Metrics != nil {
			e.Metrics.RecordQualityScore(ctx, report.Dataset, "overall", report.OverallScore)
			for dim, score := range report.DimensionScores {
				e.Metrics.RecordQualityScore(ctx, report.Dataset, string(dim), score)
			}
		}
		observability.SetSpanAttribute(ctx, observability.AttrQualityScore, report.OverallScore)

		if !report.Passed(spec.Threshold) {
			return apperrors.QualityThresholdNotMet(task.ID, report.OverallScore, spec.Threshold)
		}
		return nil
	}
}

// wrapBody applies the per-task timeout and normalizes expiry into a
// retryable timeout error.
func wrapBody(task pipeline.TaskSpec, body TaskBody) func(ctx context.Context) error {
	timeout := task.TimeoutDuration()
	return func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		err := body(ctx, task)
		if err != nil && stderrors.Is(err, context.DeadlineExceeded) {
			return apperrors.TaskTimeout(task.ID).WithCause(err)
		}
		return err
	}
}

// policyFor merges the definition's retry spec for a task into the base
// policy and attaches retry logging.
func (e *Executor) policyFor(def *pipeline.Definition, task pipeline.TaskSpec, log *logger.Logger) resilience.RetryPolicy {
	// Zero fields fall back to resilience defaults inside RunWithRetry.
	policy := e.Policy

	rs := def.RetryFor(task.ID)
	if rs.MaxAttempts > 0 {
		policy.MaxAttempts = rs.MaxAttempts
	}
	if rs.BaseDelayMS > 0 {
		policy.BaseDelay = rs.BaseDelay()
	}

	inner := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("task retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			"backoff_ms", backoff.Milliseconds(),
			logger.FieldError, err.Error(),
		))
		if inner != nil {
			inner(attempt, err, backoff)
		}
	}
	return policy
}

func (e *Executor) logger() *logger.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.GetGlobalLogger()
}
