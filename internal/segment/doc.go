// Package segment implements the unit of work tracked by a pipeline.
//
// A Segment declares the files it produces (targets), the files and named
// libraries it reads (dependencies, packages), and a payload: either a
// Recipe, an HCL expression evaluated in the segment's execution
// environment, or a Script, an external file run against that environment.
//
// Execute decides whether the targets are out of date by modification time,
// runs the payload when they are (or when the segment is forced), and
// records whether it ran, what it returned and how long it took. A payload
// failure is returned to the caller and leaves that record untouched.
//
// Segments also project themselves into graph nodes and edges, which a
// pipeline merges into a whole-pipeline dependency graph, and into an
// ordered text summary.
package segment
