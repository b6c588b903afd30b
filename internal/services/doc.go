// Package services defines shared utilities consumed by the fingerprinting
// engine and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scan run IDs and in-flight file paths for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into per-file outcomes (degrade to digest-only, skip, abort the scan).
//   - Thin abstractions that make command execution against external tools
//     testable.
//
// Use these helpers when wiring new engine logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
