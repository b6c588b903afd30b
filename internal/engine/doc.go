// Package engine orchestrates scans: walking the configured roots,
// fingerprinting files through a bounded worker pool, candidate
// generation, pair scoring, and cluster replacement.
//
// A scan is a single-flight operation per index, enforced with a file
// lock. Per-file failures degrade or drop that file and the scan
// carries on; structural failures (bad configuration, unreadable index)
// abort it with a recorded diagnostic. Cancellation between files never
// leaves partial state because each fingerprint row is written in one
// transaction.
package engine
