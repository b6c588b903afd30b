package videofp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"mediadup/internal/services"
	"mediadup/internal/services/ffmpeg"
)

type fakeTool struct {
	probe      ffmpeg.ProbeResult
	probeErr   error
	frameErr   error
	audio      []int16
	audioErr   error
	frameCalls []float64
	audioCalls int
}

func (f *fakeTool) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return f.probe, f.probeErr
}

func (f *fakeTool) ExtractFrame(ctx context.Context, path string, atSeconds float64) (image.Image, error) {
	f.frameCalls = append(f.frameCalls, atSeconds)
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	// Vary brightness with the timestamp so frame hashes differ.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x*4 + int(atSeconds)) % 256)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img, nil
}

func (f *fakeTool) ExtractAudio(ctx context.Context, path string) ([]int16, error) {
	f.audioCalls++
	return f.audio, f.audioErr
}

func probeResult(withAudio bool) ffmpeg.ProbeResult {
	result := ffmpeg.ProbeResult{
		Streams: []ffmpeg.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720},
		},
		Format: ffmpeg.Format{Duration: "90.0", BitRate: "4000000"},
	}
	if withAudio {
		result.Streams = append(result.Streams, ffmpeg.Stream{Index: 1, CodecType: "audio", Channels: 2})
	}
	return result
}

func TestExtractProducesCanonicalHashCount(t *testing.T) {
	tool := &fakeTool{probe: probeResult(false)}
	extractor := NewExtractor(tool, 9, nil)

	features, err := extractor.Extract(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(features.FrameHashes) != 9 {
		t.Fatalf("hash count = %d, want 9", len(features.FrameHashes))
	}
	if len(tool.frameCalls) != 9 {
		t.Fatalf("frame calls = %d, want 9", len(tool.frameCalls))
	}
	if math.Abs(tool.frameCalls[0]-5) > 1e-9 || math.Abs(tool.frameCalls[8]-85) > 1e-9 {
		t.Fatalf("unexpected seek offsets %v", tool.frameCalls)
	}
	if features.Width != 1280 || features.Height != 720 {
		t.Fatalf("unexpected dimensions %dx%d", features.Width, features.Height)
	}
	if features.DurationMs != 90000 {
		t.Fatalf("duration = %d ms, want 90000", features.DurationMs)
	}
	if features.BitrateKbps != 4000 {
		t.Fatalf("bitrate = %d kbps, want 4000", features.BitrateKbps)
	}
}

func TestExtractSilentContainerIsValid(t *testing.T) {
	tool := &fakeTool{probe: probeResult(false)}
	features, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/silent.mp4")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(features.AudioFrames) != 0 {
		t.Fatalf("expected no audio frames, got %d", len(features.AudioFrames))
	}
	if tool.audioCalls != 0 {
		t.Fatal("audio extraction attempted on silent container")
	}
}

func TestExtractComputesSpectralFrames(t *testing.T) {
	audio := make([]int16, ffmpeg.SampleRate)
	for i := range audio {
		audio[i] = int16(15000 * math.Sin(2*math.Pi*440*float64(i)/ffmpeg.SampleRate))
	}
	tool := &fakeTool{probe: probeResult(true), audio: audio}

	features, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// 11025 samples, 4096 window, 2048 hop.
	if len(features.AudioFrames) != 4 {
		t.Fatalf("audio frames = %d, want 4", len(features.AudioFrames))
	}
}

func TestExtractAudioFailureDegradesToVisualOnly(t *testing.T) {
	tool := &fakeTool{
		probe:    probeResult(true),
		audioErr: services.Wrap(services.ErrDecode, "ffmpeg", "extract audio", "/media/clip.mp4", errors.New("corrupt track")),
	}

	features, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("expected visual-only degrade, got %v", err)
	}
	if len(features.FrameHashes) != 5 {
		t.Fatalf("hash count = %d, want 5", len(features.FrameHashes))
	}
	if len(features.AudioFrames) != 0 {
		t.Fatal("expected no audio frames after audio failure")
	}
}

func TestExtractAudioTimeoutAborts(t *testing.T) {
	tool := &fakeTool{
		probe:    probeResult(true),
		audioErr: services.Wrap(services.ErrExtractionTimeout, "ffmpeg", "extract audio", "/media/clip.mp4", context.DeadlineExceeded),
	}

	_, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/clip.mp4")
	if !errors.Is(err, services.ErrExtractionTimeout) {
		t.Fatalf("expected timeout to propagate, got %v", err)
	}
}

func TestExtractNoVideoStreamIsDecodeError(t *testing.T) {
	tool := &fakeTool{probe: ffmpeg.ProbeResult{
		Streams: []ffmpeg.Stream{{CodecType: "audio"}},
		Format:  ffmpeg.Format{Duration: "30"},
	}}

	_, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/notes.mp4")
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode classification, got %v", err)
	}
}

func TestExtractFrameFailurePropagates(t *testing.T) {
	tool := &fakeTool{
		probe:    probeResult(false),
		frameErr: services.Wrap(services.ErrDecode, "ffmpeg", "extract frame", "/media/clip.mp4", fmt.Errorf("broken stream")),
	}

	_, err := NewExtractor(tool, 5, nil).Extract(context.Background(), "/media/clip.mp4")
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode classification, got %v", err)
	}
}
