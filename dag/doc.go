// Package dag builds the dependency graph for a pipeline definition: it
// verifies every dependency id resolves, rejects cycles, and computes a
// deterministic topological execution order.
//
// Build is pure. Given the same definition it returns the same DAG, with ties
// among simultaneously-ready tasks broken by declaration order, so dry-run
// output can be diffed between pipeline versions.
package dag
