package observability

import "context"

// HealthStatus represents the health state of a component or pipeline.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component, such as one
// monitored topic or one upstream connection.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// PipelineHealth aggregates component health for a pipeline deployment.
type PipelineHealth struct {
	Pipeline   string       `json:"pipeline"`
	Status     HealthStatus `json:"status"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewPipelineHealth creates a PipelineHealth with status up.
func NewPipelineHealth(pipeline string) *PipelineHealth {
	return &PipelineHealth{
		Pipeline: pipeline,
		Status:   HealthStatusUp,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (ph *PipelineHealth) AddComponent(ch Health) {
	ph.Components = append(ph.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		ph.Status = HealthStatusDown
	case HealthStatusDegraded:
		if ph.Status != HealthStatusDown {
			ph.Status = HealthStatusDegraded
		}
	}
}
