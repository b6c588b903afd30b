// Package logs reads the scan log mirror that logging writes under the
// index directory.
//
// It tails log files with bounded memory usage and powers follow-mode
// updates for `mediadup logs --follow`. Callers supply a context so
// background polling shuts down cleanly when the CLI exits.
package logs
