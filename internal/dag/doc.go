// Package dag is a small, string-keyed directed graph used to reason about
// the whole-pipeline dependency graph: cycle detection, topological order and
// reachability for propagating outdated state downstream.
package dag
