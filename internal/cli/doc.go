// Package cli defines the gridmake command tree. It maps flags, GRIDMAKE_*
// environment variables and an optional .gridmake.yaml onto app.Config,
// renders command output, and turns usage errors into an ExitError carrying
// the process exit code.
package cli
