// Package database provides SQLite-based storage for the nodescan scan history.
//
// Every scan execution is recorded as a run in scan_runs. The outcome of
// each existing node the run processed is stored in node_results, with its
// issues encoded as JSON. A resumed scan is recorded as a new run.
//
// The database uses modernc.org/sqlite, a CGO-free driver, so the history is
// a single file and the binary stays easy to cross-compile.
package database
