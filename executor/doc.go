// Package executor schedules built pipeline graphs across a bounded worker
// pool. A task becomes ready when every dependency has succeeded; a failed
// task marks all transitive dependents skipped. Per-task retry and timeout
// settings come from the pipeline definition, quality_check tasks run the
// quality gate inline, and the sealed Run serializes to a stable JSON report.
//
//	d, err := dag.Build(def)
//	bodies, err := registry.Resolve(def)
//
//	exec := &executor.Executor{MaxParallelism: 4, Log: log}
//	run, err := exec.Execute(ctx, d, bodies)
//	os.Exit(run.ExitCode())
package executor
