// Package main hosts the mediadup CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into scan
// runs, duplicate reports, index statistics, and configuration scaffolding.
// It centralizes configuration resolution, index access, and output
// rendering so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// Scanning and matching always live in internal/engine; this package only
// renders their results.
package main
