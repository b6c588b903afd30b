package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediadup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It creates one media root under the temp base and applies any provided
// options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IndexDir = filepath.Join(base, "index")

	root := filepath.Join(base, "media")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir media root: %v", err)
	}
	cfgVal.Scan.Roots = []string{root}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRoots replaces the scan roots on the test config. Directories are
// created if missing.
func WithRoots(paths ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, path := range paths {
			if err := os.MkdirAll(path, 0o755); err != nil {
				b.t.Fatalf("mkdir root %s: %v", path, err)
			}
		}
		b.cfg.Scan.Roots = paths
	}
}

// WithExactOnly switches the matcher to byte-identical grouping only.
func WithExactOnly() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Match.ExactOnly = true
	}
}

// WithWorkers pins the fingerprinting worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.WorkerConcurrency = n
	}
}

// WithIncludeExt narrows the extension filter on the test config.
func WithIncludeExt(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.IncludeExt = exts
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default mediadup external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "exiftool"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IndexDir)
}

// MediaRoot returns the first scan root seeded by NewConfig.
func MediaRoot(cfg *config.Config) string {
	if len(cfg.Scan.Roots) == 0 {
		return ""
	}
	return cfg.Scan.Roots[0]
}
