package videofp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"mediadup/internal/imagehash"
	"mediadup/internal/logging"
	"mediadup/internal/services"
	"mediadup/internal/services/ffmpeg"
)

// MediaTool is the subset of the ffmpeg client the extractor needs.
type MediaTool interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
	ExtractFrame(ctx context.Context, path string, atSeconds float64) (image.Image, error)
	ExtractAudio(ctx context.Context, path string) ([]int16, error)
}

// Features is the perceptual payload extracted from one video.
type Features struct {
	FrameHashes []uint64
	AudioFrames []SpectralFrame
	Width       int
	Height      int
	BitrateKbps int64
	DurationMs  int64
}

// Extractor samples keyframes and audio from video files.
type Extractor struct {
	tool      MediaTool
	keyframes int
	logger    *slog.Logger
}

// NewExtractor returns an extractor producing keyframes hashes at the
// given canonical count.
func NewExtractor(tool MediaTool, keyframes int, logger *slog.Logger) *Extractor {
	if keyframes < 1 {
		keyframes = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{tool: tool, keyframes: keyframes, logger: logger}
}

// Extract probes path and computes its visual and audio fingerprints.
// Visual extraction failures fail the whole call so the file degrades to
// digest-only matching. Audio failures degrade to visual-only instead,
// except when the extraction budget has run out.
func (e *Extractor) Extract(ctx context.Context, path string) (Features, error) {
	probe, err := e.tool.Probe(ctx, path)
	if err != nil {
		return Features{}, err
	}

	video := probe.VideoStream()
	if video == nil {
		return Features{}, services.Wrap(services.ErrDecode, "videofp", "probe", path,
			errors.New("no video stream"))
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return Features{}, services.Wrap(services.ErrDecode, "videofp", "probe", path,
			errors.New("unknown duration"))
	}

	features := Features{
		Width:       video.Width,
		Height:      video.Height,
		BitrateKbps: probe.BitrateKbps(),
		DurationMs:  probe.DurationMs(),
	}

	timestamps := FrameTimestamps(duration, e.keyframes)
	features.FrameHashes = make([]uint64, len(timestamps))
	for i, at := range timestamps {
		frame, err := e.tool.ExtractFrame(ctx, path, at)
		if err != nil {
			return Features{}, err
		}
		hash, err := imagehash.Perceptual(frame)
		if err != nil {
			return Features{}, services.Wrap(services.ErrDecode, "videofp",
				fmt.Sprintf("hash frame %d", i), path, err)
		}
		features.FrameHashes[i] = hash
	}

	if probe.HasAudio() {
		samples, err := e.tool.ExtractAudio(ctx, path)
		if err != nil {
			if errors.Is(err, services.ErrExtractionTimeout) {
				return Features{}, err
			}
			e.logger.Warn("audio extraction failed, continuing visual-only",
				logging.String(logging.FieldPath, path), logging.Error(err))
		} else {
			features.AudioFrames = ComputeSpectral(samples)
		}
	}

	return features, nil
}
