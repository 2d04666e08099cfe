package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors (fatal; no run is created)
const (
	// ErrCodeCyclicDependency indicates the pipeline definition contains a dependency cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeUnknownDependency indicates a task references a dependency id that does not exist.
	ErrCodeUnknownDependency ErrorCode = "UNKNOWN_DEPENDENCY"
)

// Task execution errors (retryable)
const (
	// ErrCodeTaskTimeout indicates a task body exceeded its configured timeout.
	ErrCodeTaskTimeout ErrorCode = "TASK_TIMEOUT"
	// ErrCodeTransientExecution indicates a transient task failure (connection loss, flaky source).
	ErrCodeTransientExecution ErrorCode = "TRANSIENT_EXECUTION_ERROR"
)

// Task execution errors (terminal; retrying cannot plausibly succeed)
const (
	// ErrCodeTerminalExecution indicates a permanent task failure (schema mismatch, bad credentials).
	ErrCodeTerminalExecution ErrorCode = "TERMINAL_EXECUTION_ERROR"
	// ErrCodeQualityThresholdNotMet indicates a quality gate scored below its configured threshold.
	ErrCodeQualityThresholdNotMet ErrorCode = "QUALITY_THRESHOLD_NOT_MET"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTaskTimeout:            true,
	ErrCodeTransientExecution:     true,
	ErrCodeTerminalExecution:      false,
	ErrCodeQualityThresholdNotMet: false,
	ErrCodeCyclicDependency:       false,
	ErrCodeUnknownDependency:      false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// Process exit codes for CLI front-ends consuming run results.
const (
	ExitOK           = 0
	ExitBuildFailure = 1
	ExitQualityGate  = 2
	ExitTaskFailure  = 3
)

var exitCodes = map[ErrorCode]int{
	ErrCodeCyclicDependency:       ExitBuildFailure,
	ErrCodeUnknownDependency:      ExitBuildFailure,
	ErrCodeInvalidInput:           ExitBuildFailure,
	ErrCodeMissingField:           ExitBuildFailure,
	ErrCodeQualityThresholdNotMet: ExitQualityGate,
	ErrCodeTaskTimeout:            ExitTaskFailure,
	ErrCodeTransientExecution:     ExitTaskFailure,
	ErrCodeTerminalExecution:      ExitTaskFailure,
	ErrCodeInternal:               ExitTaskFailure,
}

// ExitCodeFor returns the process exit code for an error code.
func ExitCodeFor(code ErrorCode) int {
	if ec, ok := exitCodes[code]; ok {
		return ec
	}
	return ExitTaskFailure
}
