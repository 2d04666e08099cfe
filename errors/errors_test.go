package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := Terminal("schema mismatch")
	got := err.Error()
	want := "TERMINAL_EXECUTION_ERROR: schema mismatch"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAppError_ErrorWithCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Transient("source unavailable").WithCause(cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "TRANSIENT_EXECUTION_ERROR: source unavailable (cause: connection reset)" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestCyclicDependency_NamesCycle(t *testing.T) {
	err := CyclicDependency([]string{"a", "b", "a"})
	if err.Code != ErrCodeCyclicDependency {
		t.Errorf("expected CYCLIC_DEPENDENCY, got %s", err.Code)
	}
	cycle, ok := err.Details["cycle"].([]string)
	if !ok || len(cycle) != 3 {
		t.Errorf("expected cycle detail with 3 ids, got %v", err.Details["cycle"])
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", TaskTimeout("extract"), true},
		{"transient", Transient("flaky"), true},
		{"terminal", Terminal("bad schema"), false},
		{"quality", QualityThresholdNotMet("gate", 0.8, 0.95), false},
		{"wrapped transient", fmt.Errorf("attempt 2: %w", Transient("flaky")), true},
		{"wrapped terminal", fmt.Errorf("attempt 1: %w", Terminal("bad")), false},
		{"unknown error defaults retryable", stderrors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"cyclic", CyclicDependency([]string{"a", "a"}), ExitBuildFailure},
		{"unknown dep", UnknownDependency("b", "ghost"), ExitBuildFailure},
		{"quality gate", QualityThresholdNotMet("gate", 0.80, 0.95), ExitQualityGate},
		{"terminal", Terminal("bad"), ExitTaskFailure},
		{"plain error", stderrors.New("boom"), ExitTaskFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", UnknownDependency("b", "ghost"))
	if !IsCode(err, ErrCodeUnknownDependency) {
		t.Error("expected IsCode to match through wrapping")
	}
	if IsCode(err, ErrCodeCyclicDependency) {
		t.Error("did not expect CYCLIC_DEPENDENCY")
	}
}
