// Package quality implements the data-quality gate: rule evaluation against
// a dataset snapshot producing a dimension-scored report.
//
// Rule failures are expressed in the report, never as errors, so the gate
// serves both blocking use (the executor compares the overall score against a
// task threshold) and non-blocking observability. Validation is a pure
// function of the dataset snapshot and rules; re-running it on an unchanged
// snapshot yields an identical report.
package quality
