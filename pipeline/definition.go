package pipeline

import (
	"fmt"
	"time"

	"github.com/skillsenselab/flowkit/quality"
	"github.com/skillsenselab/flowkit/validation"
)

// TaskKind tags what a task does. Dispatch is resolved once at build time;
// the executor never inspects kinds at runtime.
type TaskKind string

const (
	KindExtract      TaskKind = "extract"
	KindTransform    TaskKind = "transform"
	KindLoad         TaskKind = "load"
	KindQualityCheck TaskKind = "quality_check"
	KindCustom       TaskKind = "custom"
)

// KindNames returns all task kind names.
func KindNames() []string {
	return []string{
		string(KindExtract), string(KindTransform), string(KindLoad),
		string(KindQualityCheck), string(KindCustom),
	}
}

// RetrySpec is the wire form of per-task retry settings.
type RetrySpec struct {
	// MaxAttempts counts the first attempt plus retries. Zero means inherit.
	MaxAttempts int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	// BaseDelayMS is the initial backoff delay in milliseconds.
	BaseDelayMS int `yaml:"base_delay_ms,omitempty" json:"base_delay_ms,omitempty"`
}

// BaseDelay returns the base delay as a duration.
func (r RetrySpec) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// TaskSpec describes one task in a pipeline.
type TaskSpec struct {
	// ID uniquely identifies the task within the definition.
	ID string `yaml:"id" json:"id"`
	// Kind selects the task's execution function.
	Kind TaskKind `yaml:"kind" json:"kind"`
	// DependsOn lists upstream task ids that must succeed first.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	// Params holds kind-specific parameters passed to the task body.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	// Retry overrides the pipeline retry defaults when set.
	Retry *RetrySpec `yaml:"retry,omitempty" json:"retry,omitempty"`
	// Timeout is a duration string ("30s", "5m"); empty means no timeout.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Quality carries rules and threshold for quality_check tasks.
	Quality *quality.Spec `yaml:"quality,omitempty" json:"quality,omitempty"`
}

// TimeoutDuration parses the timeout string; zero when unset.
func (t TaskSpec) TimeoutDuration() time.Duration {
	if t.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Definition is the typed representation of a pipeline. Immutable once
// loaded: consumers read it, nobody writes it back.
type Definition struct {
	// Name identifies the pipeline.
	Name string `yaml:"name" json:"name"`
	// Tasks lists task specs in declaration order. Declaration order breaks
	// ties in the topological order, so it is load-bearing.
	Tasks []TaskSpec `yaml:"tasks" json:"tasks"`
	// Defaults supplies retry settings for tasks without overrides.
	Defaults RetrySpec `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	// Schedule is an opaque cron-like expression owned by an external
	// scheduler; the core stores it without interpreting it.
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

// Task returns the task spec with the given id.
func (d *Definition) Task(id string) (TaskSpec, bool) {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSpec{}, false
}

// TaskIDs returns all task ids in declaration order.
func (d *Definition) TaskIDs() []string {
	ids := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// RetryFor returns the effective retry spec for a task, falling back to the
// pipeline defaults field by field.
func (d *Definition) RetryFor(id string) RetrySpec {
	spec := d.Defaults
	t, ok := d.Task(id)
	if !ok || t.Retry == nil {
		return spec
	}
	if t.Retry.MaxAttempts > 0 {
		spec.MaxAttempts = t.Retry.MaxAttempts
	}
	if t.Retry.BaseDelayMS > 0 {
		spec.BaseDelayMS = t.Retry.BaseDelayMS
	}
	return spec
}

// Validate checks structural soundness: unique non-empty ids, known kinds,
// parseable timeouts, and quality specs on quality_check tasks. Dependency
// resolution and cycle detection belong to the dag package.
func (d *Definition) Validate() error {
	v := validation.New()
	v.Required("name", d.Name)
	if len(d.Tasks) == 0 {
		v.AddError("tasks", "at least one task is required")
	}
	v.Unique("tasks", d.TaskIDs())

	for i, t := range d.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		v.Required(field+".id", t.ID)
		v.OneOf(field+".kind", string(t.Kind), KindNames())
		if t.Timeout != "" {
			if _, err := time.ParseDuration(t.Timeout); err != nil {
				v.AddError(field+".timeout", "must be a valid duration")
			}
		}
		if t.Retry != nil {
			if t.Retry.MaxAttempts < 0 {
				v.AddError(field+".retry.max_attempts", "must not be negative")
			}
			if t.Retry.BaseDelayMS < 0 {
				v.AddError(field+".retry.base_delay_ms", "must not be negative")
			}
		}
		if t.Kind == KindQualityCheck {
			if t.Quality == nil {
				v.AddError(field+".quality", "quality rules are required for quality_check tasks")
			} else if err := t.Quality.Validate(); err != nil {
				v.AddError(field+".quality", err.Error())
			}
		}
	}

	return v.Validate()
}
