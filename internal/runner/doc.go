// Package runner walks an active subgraph in topological order and executes
// each node against the remote executor, wiring every node's inputs from the
// outputs its upstream nodes produced earlier in the same run.
//
// The runner is intentionally strictly sequential even where the dependency
// graph would permit parallelism: interactive pipeline authoring wants
// deterministic, human-readable log ordering more than it wants throughput.
// A failed node never aborts the run; downstream nodes simply see no entry
// for that predecessor and the log stream shows exactly how far the pipeline
// progressed.
package runner
