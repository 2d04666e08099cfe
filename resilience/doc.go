// Package resilience implements the retry controller: bounded retries with
// exponential backoff and jitter around task execution.
//
// A classifier distinguishes transient failures (worth retrying) from
// terminal ones (schema mismatches, validation errors), which exhaust the
// policy immediately on first occurrence. Each worker retries synchronously
// in its own goroutine; backoff sleeps are context-aware so a cancelled run
// never waits out a delay.
package resilience
