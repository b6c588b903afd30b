// Package report turns index state into the payloads the CLI renders.
// It never mutates the index; cleanup decisions stay with the user.
package report
