// Package graph holds the node and edge types a segment projects itself
// into, and the operations that assemble per-segment projections into a
// whole-pipeline graph.
//
// Node identity is the path or name string, never a per-segment index, so a
// file that is a dependency of one segment and a target of another collapses
// into a single node when projections are merged. Merging is therefore plain
// concatenation followed by deduplication.
//
// Outdated flags are decided in two halves. Each segment computes its own
// verdict (the staleness oracle, or "a dependency is missing") and stamps it
// on its edges, except package edges, which never carry it. Merge then
// suppresses it on every edge leaving an original input, which needs
// pipeline-wide knowledge of which nodes some segment produces, and
// Propagate pushes outdated state downstream.
package graph
