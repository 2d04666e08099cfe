package executor

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/skillsenselab/flowkit/errors"
	"github.com/skillsenselab/flowkit/pipeline"
	"github.com/skillsenselab/flowkit/quality"
)

// TaskState is the lifecycle state of one task within a run.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateSucceeded TaskState = "succeeded"
	StateFailed    TaskState = "failed"
	StateSkipped   TaskState = "skipped"
)

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// TaskResult records the outcome of one task execution.
type TaskResult struct {
	TaskID    string
	Kind      pipeline.TaskKind
	State     TaskState
	Attempts  int
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
	// Quality is set for quality_check tasks that produced a report,
	// including reports that failed the gate.
	Quality *quality.Report
}

// Run is the record of one pipeline execution. The scheduler mutates it
// while executing; once sealed it is immutable and safe to read from any
// goroutine.
type Run struct {
	ID        string
	Pipeline  string
	StartedAt time.Time
	EndedAt   time.Time

	results map[string]*TaskResult
	order   []string
	sealed  bool
}

func newRun(def *pipeline.Definition) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		Pipeline:  def.Name,
		StartedAt: time.Now(),
		results:   make(map[string]*TaskResult, len(def.Tasks)),
		order:     make([]string, 0, len(def.Tasks)),
	}
	for _, task := range def.Tasks {
		r.results[task.ID] = &TaskResult{
			TaskID: task.ID,
			Kind:   task.Kind,
			State:  StatePending,
		}
		r.order = append(r.order, task.ID)
	}
	return r
}

func (r *Run) seal() {
	r.EndedAt = time.Now()
	r.sealed = true
}

// Sealed reports whether the run has finished and become immutable.
func (r *Run) Sealed() bool { return r.sealed }

// Result returns a copy of the result for the given task id.
func (r *Run) Result(id string) (TaskResult, bool) {
	res, ok := r.results[id]
	if !ok {
		return TaskResult{}, false
	}
	return *res, true
}

// Results returns copies of all task results in declaration order.
func (r *Run) Results() []TaskResult {
	out := make([]TaskResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.results[id])
	}
	return out
}

// Failed reports whether any task failed.
func (r *Run) Failed() bool {
	for _, res := range r.results {
		if res.State == StateFailed {
			return true
		}
	}
	return false
}

// FirstFailure returns the error of the first failed task in declaration
// order, or nil when the run succeeded.
func (r *Run) FirstFailure() error {
	for _, id := range r.order {
		if res := r.results[id]; res.State == StateFailed {
			return res.Err
		}
	}
	return nil
}

// ExitCode maps the run outcome to a process exit code: 0 success, 2 quality
// gate failure, 3 task failure.
func (r *Run) ExitCode() int {
	err := r.FirstFailure()
	if err == nil {
		return 0
	}
	return apperrors.ExitCode(err)
}

// QualityReport returns the report of the last quality_check task that
// produced one, in declaration order, or nil.
func (r *Run) QualityReport() *quality.Report {
	var last *quality.Report
	for _, id := range r.order {
		if res := r.results[id]; res.Quality != nil {
			last = res.Quality
		}
	}
	return last
}

// Duration returns the wall-clock duration of the run.
func (r *Run) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RunReport is the JSON-serializable summary of a run.
type RunReport struct {
	RunID     string          `json:"run_id"`
	Pipeline  string          `json:"pipeline"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Tasks     []TaskReport    `json:"tasks"`
	Quality   *quality.Report `json:"quality,omitempty"`
}

// TaskReport is the JSON-serializable form of one task result.
type TaskReport struct {
	TaskID    string     `json:"id"`
	Kind      string     `json:"kind"`
	State     string     `json:"state"`
	Attempts  int        `json:"attempts"`
	Error     string     `json:"error,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Report builds the serializable run summary. Task entries appear in the
// definition's declaration order so reports diff cleanly between runs.
func (r *Run) Report() RunReport {
	report := RunReport{
		RunID:     r.ID,
		Pipeline:  r.Pipeline,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Tasks:     make([]TaskReport, 0, len(r.order)),
		Quality:   r.QualityReport(),
	}
	for _, id := range r.order {
		res := r.results[id]
		tr := TaskReport{
			TaskID:   res.TaskID,
			Kind:     string(res.Kind),
			State:    string(res.State),
			Attempts: res.Attempts,
		}
		if res.Err != nil {
			tr.Error = res.Err.Error()
		}
		if !res.StartedAt.IsZero() {
			started := res.StartedAt
			tr.StartedAt = &started
		}
		if !res.EndedAt.IsZero() {
			ended := res.EndedAt
			tr.EndedAt = &ended
		}
		report.Tasks = append(report.Tasks, tr)
	}
	return report
}
