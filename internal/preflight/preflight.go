package preflight

import (
	"fmt"

	"mediadup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minIndexFreeBytes is the free-space floor for the index filesystem. A
// 100K-file collection with full perceptual signals stays well under this.
const minIndexFreeBytes = 256 << 20

// RunAll executes the filesystem checks a scan depends on: every media
// root readable, the index directory writable, and enough free space for
// the database to grow. Callers ensure the index directory exists first.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, root := range cfg.Scan.Roots {
		results = append(results, CheckDirectoryReadable(fmt.Sprintf("Media root %s", root), root))
	}
	results = append(results, CheckDirectoryWritable("Index directory", cfg.Paths.IndexDir))
	results = append(results, CheckFreeSpace("Index free space", cfg.Paths.IndexDir, minIndexFreeBytes))
	return results
}
