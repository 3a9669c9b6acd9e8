// Package pipeline keeps every segment declared in a session, in
// declaration order, so they can be rebuilt, reset, summarized, persisted
// and projected into a single dependency graph.
package pipeline
