package executor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/skillsenselab/flowkit/errors"
	"github.com/skillsenselab/flowkit/logger"
	"github.com/skillsenselab/flowkit/observability"
	"github.com/skillsenselab/flowkit/pipeline"
	"github.com/skillsenselab/flowkit/quality"
)

// TaskBody is the execution function of one task. Bodies receive their
// TaskSpec for parameter access and must honor context cancellation.
type TaskBody func(ctx context.Context, task pipeline.TaskSpec) error

// BodyFactory builds a body for a task when the definition is resolved.
type BodyFactory func(task pipeline.TaskSpec) TaskBody

// DatasetProvider resolves the dataset snapshot that a quality_check task
// validates. Transient provider errors are retried like any task failure.
type DatasetProvider func(ctx context.Context, task pipeline.TaskSpec) (quality.Dataset, error)

// Registry maps task kinds and individual task ids to bodies. Per-task
// registrations take precedence over kind factories.
type Registry struct {
	mu    sync.RWMutex
	kinds map[pipeline.TaskKind]BodyFactory
	tasks map[string]TaskBody
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[pipeline.TaskKind]BodyFactory),
		tasks: make(map[string]TaskBody),
	}
}

// RegisterKind sets the factory used for all tasks of the given kind.
func (r *Registry) RegisterKind(kind pipeline.TaskKind, factory BodyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = factory
}

// RegisterTask sets the body for one task id.
func (r *Registry) RegisterTask(id string, body TaskBody) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = body
}

// Kinds returns sorted kinds with a registered factory.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}

// Resolve builds the body map for a definition. Every task must resolve to
// a body, except quality_check tasks with inline rules, which the scheduler
// executes through the quality gate.
func (r *Registry) Resolve(def *pipeline.Definition) (map[string]TaskBody, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bodies := make(map[string]TaskBody, len(def.Tasks))
	var unresolved []string
	for _, task := range def.Tasks {
		if body, ok := r.tasks[task.ID]; ok {
			bodies[task.ID] = body
			continue
		}
		if factory, ok := r.kinds[task.Kind]; ok {
			bodies[task.ID] = factory(task)
			continue
		}
		if task.Kind == pipeline.KindQualityCheck && task.Quality != nil {
			continue
		}
		unresolved = append(unresolved, task.ID)
	}
	if len(unresolved) > 0 {
		return nil, apperrors.Validation("no body registered for tasks: " + strings.Join(unresolved, ", "))
	}
	return bodies, nil
}

// WithLogging wraps a body with start/finish logging.
func WithLogging(body TaskBody, log *logger.Logger) TaskBody {
	return func(ctx context.Context, task pipeline.TaskSpec) error {
		l := log.WithContext(ctx)
		l.Debug("task body started", logger.Fields(
			logger.FieldTask, task.ID,
			"kind", string(task.Kind),
		))
		start := time.Now()
		err := body(ctx, task)
		fields := logger.Fields(
			logger.FieldTask, task.ID,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		)
		if err != nil {
			l.Error("task body failed", logger.MergeWithError(fields, err))
			return err
		}
		l.Debug("task body finished", fields)
		return nil
	}
}

// WithTracing wraps a body with a span named "{prefix}.{taskID}".
func WithTracing(body TaskBody, prefix string) TaskBody {
	return func(ctx context.Context, task pipeline.TaskSpec) error {
		ctx, span := observability.StartSpan(ctx, prefix+"."+task.ID)
		defer span.End()

		observability.SetSpanAttribute(ctx, observability.AttrTaskID, task.ID)
		observability.SetSpanAttribute(ctx, observability.AttrTaskKind, string(task.Kind))

		err := body(ctx, task)
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		return err
	}
}
