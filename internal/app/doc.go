// Package app wires definition loading, the pipeline, execution history and
// the file watcher into one application object driven by the CLI.
package app
