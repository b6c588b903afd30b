// Package scan walks media roots and feeds candidate files to the engine.
//
// The walker prunes hidden entries, filters by extension before any stat
// cost beyond the directory read, and guards against symlink cycles with a
// device/inode set when link following is enabled. Paths are canonicalized
// to NFC where the filesystem treats both spellings as the same file.
package scan
