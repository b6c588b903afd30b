package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"

	"mediadup/internal/services"
)

var commandContext = exec.CommandContext

// SampleRate is the mono sample rate audio is resampled to before
// fingerprinting. Stored audio fingerprints assume this rate.
const SampleRate = 11025

// Client wraps the ffmpeg and ffprobe command-line tools.
type Client struct {
	ffmpeg  string
	ffprobe string
}

// NewClient constructs a client. Empty binary names resolve on PATH.
func NewClient(ffmpegBin, ffprobeBin string) *Client {
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBin) == "" {
		ffprobeBin = "ffprobe"
	}
	return &Client{ffmpeg: ffmpegBin, ffprobe: ffprobeBin}
}

// Probe inspects the container and returns parsed stream and format
// metadata.
func (c *Client) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if strings.TrimSpace(path) == "" {
		return ProbeResult{}, errors.New("probe: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := commandContext(ctx, c.ffprobe, args...).Output()
	if err != nil {
		return ProbeResult{}, c.classify(ctx, "probe", path, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, services.Wrap(services.ErrDecode, "ffmpeg", "probe parse", path, err)
	}
	return result, nil
}

// ExtractFrame decodes the frame nearest to atSeconds into an image.
func (c *Client) ExtractFrame(ctx context.Context, path string, atSeconds float64) (image.Image, error) {
	args := []string{
		"-v", "error", "-hide_banner",
		"-ss", fmt.Sprintf("%.3f", atSeconds),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png",
		"pipe:1",
	}
	output, err := commandContext(ctx, c.ffmpeg, args...).Output()
	if err != nil {
		return nil, c.classify(ctx, "extract frame", path, err)
	}
	if len(output) == 0 {
		return nil, services.Wrap(services.ErrDecode, "ffmpeg", "extract frame", path,
			fmt.Errorf("no frame at %.3fs", atSeconds))
	}

	img, err := imaging.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "ffmpeg", "decode frame", path, err)
	}
	return img, nil
}

// ExtractAudio decodes the full audio track downmixed to mono SampleRate
// PCM. Callers check for an audio stream first via Probe; invoking this on
// a silent container is a decode error.
func (c *Client) ExtractAudio(ctx context.Context, path string) ([]int16, error) {
	args := []string{
		"-v", "error", "-hide_banner",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-f", "s16le", "-acodec", "pcm_s16le",
		"pipe:1",
	}
	output, err := commandContext(ctx, c.ffmpeg, args...).Output()
	if err != nil {
		return nil, c.classify(ctx, "extract audio", path, err)
	}

	samples := make([]int16, len(output)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(output[2*i:]))
	}
	return samples, nil
}

// classify maps tool failures onto the engine's error taxonomy. A killed
// process under an expired deadline is an extraction timeout; a missing
// binary is an external-tool fault; everything else means the tool ran and
// rejected the input.
func (c *Client) classify(ctx context.Context, operation, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrExtractionTimeout, "ffmpeg", operation, path, ctxErr)
	}

	// exec.Error covers PATH lookups, fs.PathError covers absolute binary
	// paths failing at Start. Both mean the tool itself is unavailable.
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, path, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return services.Wrap(services.ErrDecode, "ffmpeg", operation, path, err)
}
