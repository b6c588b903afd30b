package config

const (
	defaultIndexDir                   = "~/.local/share/mediadup"
	defaultHashAlgorithm              = "blake3"
	defaultHammingThresholdImage      = 10
	defaultHammingThresholdVideoFrame = 12
	defaultKeypointMatchRatioMin      = 0.25
	defaultAudioSimilarityMin         = 0.55
	defaultCandidateMaxDistance       = 10
	defaultKeyframeCount              = 9
	defaultExtractionTimeoutSec       = 120
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
	maxWorkerConcurrency              = 32
)

// defaultIncludeExt lists the extensions scanned when the config does not
// narrow the filter: common image containers, camera RAW formats, and video
// containers.
func defaultIncludeExt() []string {
	return []string{
		".jpg", ".jpeg", ".png", ".webp", ".gif", ".heic", ".heif",
		".tif", ".tiff", ".bmp",
		".cr2", ".nef", ".arw", ".dng", ".raf", ".rw2", ".orf", ".srw",
		".mov", ".mp4", ".m4v", ".mkv", ".avi",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			IncludeExt:   defaultIncludeExt(),
			IgnoreHidden: true,
		},
		Hash: Hash{
			Algorithm: defaultHashAlgorithm,
		},
		Match: Match{
			HammingThresholdImage:      defaultHammingThresholdImage,
			HammingThresholdVideoFrame: defaultHammingThresholdVideoFrame,
			KeypointMatchRatioMin:      defaultKeypointMatchRatioMin,
			AudioSimilarityMin:         defaultAudioSimilarityMin,
			CandidateMaxDistance:       defaultCandidateMaxDistance,
		},
		Video: Video{
			KeyframeCount: defaultKeyframeCount,
		},
		Engine: Engine{
			ExtractionTimeoutSec: defaultExtractionTimeoutSec,
		},
		Paths: Paths{
			IndexDir: defaultIndexDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
