// Package canvas holds the user-editable pipeline graph: the node and edge
// collections as they appear on the canvas, the derivation of the active
// subgraph used for execution and scheduling, and the topological ordering
// of that subgraph.
//
// Collections are kept in insertion order. This is a hard requirement, not a
// convenience: the topological order tie-breaks on node insertion order and
// edge declaration order, which makes every run of an unchanged graph
// deterministic.
package canvas
