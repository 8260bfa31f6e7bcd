// Package runner executes postcheck suites.
//
// Scenarios run in declared order, or concurrently with bounded
// parallelism since they share no state. Steps inside a scenario always run
// in order against the scenario's own capture scope; when a step fails the
// remaining steps of that scenario are skipped.
//
// Response latencies of every executed step are summarised as p50, p95
// and p99.
package runner
