package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Scan contains configuration for filesystem traversal.
type Scan struct {
	Roots          []string `toml:"roots"`
	IncludeExt     []string `toml:"include_ext"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	IgnoreHidden   bool     `toml:"ignore_hidden"`
}

// Hash contains configuration for content digesting.
type Hash struct {
	Algorithm string `toml:"algorithm"` // "blake3" or "sha256"
}

// Match contains the similarity thresholds applied by the matcher.
type Match struct {
	// ExactOnly skips every perceptual stage; only byte-identical files group.
	ExactOnly bool `toml:"exact_only"`
	// HammingThresholdImage is the maximum pHash distance for an image
	// candidate pair. Default: 10
	HammingThresholdImage int `toml:"hamming_threshold_image"`
	// HammingThresholdVideoFrame is the maximum mean per-keyframe pHash
	// distance for a video pair. Default: 12
	HammingThresholdVideoFrame int `toml:"hamming_threshold_video_frame"`
	// KeypointMatchRatioMin is the matched-descriptor fraction required to
	// verify an image candidate pair. Default: 0.25
	KeypointMatchRatioMin float64 `toml:"keypoint_match_ratio_min"`
	// AudioSimilarityMin is the cosine similarity floor below which audio
	// evidence vetoes a video pair. Default: 0.55
	AudioSimilarityMin float64 `toml:"audio_similarity_min"`
	// CandidateMaxDistance is the Hamming radius the candidate index
	// guarantees to cover. Must be at least hamming_threshold_image or
	// matcher-acceptable pairs would never surface. Default: 10
	CandidateMaxDistance int `toml:"candidate_max_distance"`
}

// Video contains configuration for video feature extraction.
type Video struct {
	// KeyframeCount is the canonical number of evenly spaced frames sampled
	// per video. Default: 9
	KeyframeCount int `toml:"keyframe_count"`
}

// Engine contains configuration for scan execution.
type Engine struct {
	// WorkerConcurrency bounds the fingerprinting worker pool. Zero selects
	// the number of CPUs.
	WorkerConcurrency int `toml:"worker_concurrency"`
	// ExtractionTimeoutSec is the per-file perceptual extraction budget.
	// Expiry degrades the file to digest-only participation.
	ExtractionTimeoutSec int `toml:"extraction_timeout_sec"`
}

// Paths contains directory configuration.
type Paths struct {
	IndexDir string `toml:"index_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediadup.
//
// Configuration sections by subsystem:
//   - Scan: roots, extension filter, traversal behaviour
//   - Hash: content digest algorithm
//   - Match: similarity thresholds and the exact-only switch
//   - Video: keyframe sampling
//   - Engine: worker pool bounds and per-file extraction budget
//   - Paths: index directory holding the database, lock file, and logs
//   - Logging: log format and level
type Config struct {
	Scan    Scan    `toml:"scan"`
	Hash    Hash    `toml:"hash"`
	Match   Match   `toml:"match"`
	Video   Video   `toml:"video"`
	Engine  Engine  `toml:"engine"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediadup/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if env, ok := os.LookupEnv("MEDIADUP_CONFIG"); ok && strings.TrimSpace(env) != "" {
			path = strings.TrimSpace(env)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/mediadup/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediadup.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the SQLite database location inside the index
// directory. MEDIADUP_DB_PATH overrides it for tooling that keeps indexes
// elsewhere.
func (c *Config) DatabasePath() string {
	if env, ok := os.LookupEnv("MEDIADUP_DB_PATH"); ok && strings.TrimSpace(env) != "" {
		if expanded, err := expandPath(strings.TrimSpace(env)); err == nil {
			return expanded
		}
	}
	return filepath.Join(c.Paths.IndexDir, "index.sqlite3")
}

// LockPath returns the scan lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.IndexDir, "mediadup.lock")
}

// LogDir returns the directory scan logs are mirrored into.
func (c *Config) LogDir() string {
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.IndexDir, "logs")
}

// EnsureDirectories creates the index directory tree required for a scan.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IndexDir, c.LogDir(), filepath.Dir(c.DatabasePath())} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Workers resolves the effective fingerprinting worker count.
func (c *Config) Workers(numCPU int) int {
	workers := c.Engine.WorkerConcurrency
	if workers <= 0 {
		workers = numCPU
	}
	if workers < 1 {
		workers = 1
	}
	if workers > maxWorkerConcurrency {
		workers = maxWorkerConcurrency
	}
	return workers
}

// FFmpegBinary returns the ffmpeg executable name used for frame and audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
