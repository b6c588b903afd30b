package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Threshold errors surface here,
// before any scan work begins.
func (c *Config) Validate() error {
	if err := c.validateHash(); err != nil {
		return err
	}
	if err := c.validateMatch(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHash() error {
	switch c.Hash.Algorithm {
	case "blake3", "sha256":
		return nil
	default:
		return fmt.Errorf("hash.algorithm must be \"blake3\" or \"sha256\", got %q", c.Hash.Algorithm)
	}
}

func (c *Config) validateMatch() error {
	if c.Match.HammingThresholdImage < 0 || c.Match.HammingThresholdImage > 64 {
		return errors.New("match.hamming_threshold_image must be between 0 and 64")
	}
	if c.Match.HammingThresholdVideoFrame < 0 || c.Match.HammingThresholdVideoFrame > 64 {
		return errors.New("match.hamming_threshold_video_frame must be between 0 and 64")
	}
	if c.Match.KeypointMatchRatioMin < 0 || c.Match.KeypointMatchRatioMin > 1 {
		return errors.New("match.keypoint_match_ratio_min must be between 0 and 1")
	}
	if c.Match.AudioSimilarityMin < 0 || c.Match.AudioSimilarityMin > 1 {
		return errors.New("match.audio_similarity_min must be between 0 and 1")
	}
	if c.Match.CandidateMaxDistance < 0 || c.Match.CandidateMaxDistance > 64 {
		return errors.New("match.candidate_max_distance must be between 0 and 64")
	}
	if c.Match.CandidateMaxDistance < c.Match.HammingThresholdImage {
		return errors.New("match.candidate_max_distance must be at least match.hamming_threshold_image")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.KeyframeCount < 1 {
		return errors.New("video.keyframe_count must be at least 1")
	}
	if c.Video.KeyframeCount > 64 {
		return errors.New("video.keyframe_count must be at most 64")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.WorkerConcurrency < 0 {
		return errors.New("engine.worker_concurrency must be >= 0 (zero selects the CPU count)")
	}
	if c.Engine.ExtractionTimeoutSec <= 0 {
		return errors.New("engine.extraction_timeout_sec must be positive")
	}
	return nil
}

// ValidateRoots verifies scan roots are configured. Kept separate from
// Validate so read-only commands (report, status) work without roots.
func (c *Config) ValidateRoots() error {
	if len(c.Scan.Roots) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mediadup/config.toml"
		}
		return fmt.Errorf("scan.roots is empty. Edit %s (create with 'mediadup config init') or pass directories to scan", defaultPath)
	}
	return nil
}
