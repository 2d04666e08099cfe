package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// CyclicDependency creates a build-time error naming the task ids that form a cycle.
func CyclicDependency(cycle []string) *AppError {
	return &AppError{
		Code: ErrCodeCyclicDependency, Message: fmt.Sprintf("pipeline contains a dependency cycle: %v", cycle),
		Retryable: false,
		Details:   map[string]any{"cycle": cycle},
	}
}

// UnknownDependency creates a build-time error for a dependency id that references no task.
func UnknownDependency(taskID, dependencyID string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownDependency, Message: fmt.Sprintf("task %q depends on unknown task %q", taskID, dependencyID),
		Retryable: false,
		Details:   map[string]any{"task": taskID, "dependency": dependencyID},
	}
}

// TaskTimeout creates an error for a task body that exceeded its timeout.
func TaskTimeout(taskID string) *AppError {
	return &AppError{
		Code: ErrCodeTaskTimeout, Message: fmt.Sprintf("task %q timed out", taskID),
		Retryable: true,
		Details:   map[string]any{"task": taskID},
	}
}

// Transient creates a retryable execution error.
func Transient(reason string) *AppError {
	return &AppError{
		Code: ErrCodeTransientExecution, Message: reason,
		Retryable: true,
	}
}

// Terminal creates a non-retryable execution error.
func Terminal(reason string) *AppError {
	return &AppError{
		Code: ErrCodeTerminalExecution, Message: reason,
		Retryable: false,
	}
}

// QualityThresholdNotMet creates an error for a quality gate score below its threshold.
func QualityThresholdNotMet(taskID string, score, threshold float64) *AppError {
	return &AppError{
		Code:      ErrCodeQualityThresholdNotMet,
		Message:   fmt.Sprintf("quality score %.4f below threshold %.4f", score, threshold),
		Retryable: false,
		Details:   map[string]any{"task": taskID, "score": score, "threshold": threshold},
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Retryable: false,
		Details:   map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an unexpected internal failure.
func Internal(message string) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: message,
		Retryable: false,
	}
}

// --- Inspection helpers ---

// FromError extracts an *AppError from err's chain, or nil if none exists.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsRetryable reports whether err should be retried. Unknown (non-AppError)
// errors default to retryable so transient infrastructure failures are still
// bounded by the retry policy rather than failing the task outright.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr := FromError(err); appErr != nil {
		return appErr.Retryable
	}
	return true
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	appErr := FromError(err)
	return appErr != nil && appErr.Code == code
}

// ExitCode maps err to the process exit code CLI front-ends should return.
// A nil error maps to ExitOK; errors without a code map to ExitTaskFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if appErr := FromError(err); appErr != nil {
		return ExitCodeFor(appErr.Code)
	}
	return ExitTaskFailure
}
