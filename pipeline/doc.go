// Package pipeline defines the typed pipeline model: tasks, dependencies,
// retry defaults, and quality rules, plus the YAML/JSON loader that reads
// definitions from disk.
//
// A Definition is pure data. It carries no execution logic and is treated as
// immutable once loaded; the dag package derives the dependency graph from it
// and the executor drives the run.
package pipeline
