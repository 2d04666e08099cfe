// Package errors provides unified error handling for pipeline orchestration.
// It implements structured error types with machine-readable codes, retryable
// detection for the retry controller, and process exit-code mapping for CLI
// front-ends.
package errors
