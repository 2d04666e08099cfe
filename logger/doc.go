// Package logger provides structured logging for the orchestrator built on
// zerolog. It supports JSON and console output, component-tagged sub-loggers,
// and run/task context enrichment so every log line produced during a
// pipeline run can be correlated back to its run id.
package logger
