package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeScan(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHash()
	c.normalizeMatch()
	c.normalizeVideo()
	c.normalizeEngine()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeScan() error {
	roots := make([]string, 0, len(c.Scan.Roots))
	seen := make(map[string]struct{}, len(c.Scan.Roots))
	for _, root := range c.Scan.Roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("scan.roots: %w", err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Scan.Roots = roots

	if len(c.Scan.IncludeExt) == 0 {
		c.Scan.IncludeExt = defaultIncludeExt()
	}
	exts := make([]string, 0, len(c.Scan.IncludeExt))
	seenExt := make(map[string]struct{}, len(c.Scan.IncludeExt))
	for _, ext := range c.Scan.IncludeExt {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, ok := seenExt[normalized]; ok {
			continue
		}
		seenExt[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultIncludeExt()
	}
	c.Scan.IncludeExt = exts
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		c.Paths.IndexDir = defaultIndexDir
	}
	var err error
	if c.Paths.IndexDir, err = expandPath(c.Paths.IndexDir); err != nil {
		return fmt.Errorf("paths.index_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHash() {
	c.Hash.Algorithm = strings.ToLower(strings.TrimSpace(c.Hash.Algorithm))
	if c.Hash.Algorithm == "" {
		c.Hash.Algorithm = defaultHashAlgorithm
	}
}

func (c *Config) normalizeMatch() {
	if c.Match.HammingThresholdImage == 0 {
		c.Match.HammingThresholdImage = defaultHammingThresholdImage
	}
	if c.Match.HammingThresholdVideoFrame == 0 {
		c.Match.HammingThresholdVideoFrame = defaultHammingThresholdVideoFrame
	}
	if c.Match.KeypointMatchRatioMin == 0 {
		c.Match.KeypointMatchRatioMin = defaultKeypointMatchRatioMin
	}
	if c.Match.AudioSimilarityMin == 0 {
		c.Match.AudioSimilarityMin = defaultAudioSimilarityMin
	}
	if c.Match.CandidateMaxDistance == 0 {
		c.Match.CandidateMaxDistance = defaultCandidateMaxDistance
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.KeyframeCount == 0 {
		c.Video.KeyframeCount = defaultKeyframeCount
	}
}

func (c *Config) normalizeEngine() {
	if c.Engine.ExtractionTimeoutSec == 0 {
		c.Engine.ExtractionTimeoutSec = defaultExtractionTimeoutSec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
