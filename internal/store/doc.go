// Package store persists the duplicate-finder index in SQLite.
//
// The Store manages database connections, schema initialization, and the
// four table families the scanner relies on: observed files, their
// fingerprints, scan lifecycle records, and duplicate clusters. Fingerprint
// writes are single-statement upserts so a crash mid-scan never leaves a
// partially written row; cluster generations are swapped inside one
// transaction so readers always see a consistent set.
//
// Fingerprints are keyed by content digest plus file size and mtime. A file
// whose stored triple still matches on disk is reused on the next scan
// without re-reading its bytes.
//
// Schema changes bump schemaVersion in store.go; a version mismatch is
// surfaced as index corruption, which callers handle by rebuilding the
// index from scratch.
package store
