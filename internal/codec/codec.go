package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"mediadup/internal/media"
	"mediadup/internal/services"
)

// Decoder turns image files into normalized in-memory images. Orientation
// metadata is applied during decode so a rotated phone photo and its
// upright export hash alike.
type Decoder struct {
	exiftool string
}

// NewDecoder returns a decoder that shells out to exiftoolBin for RAW
// camera formats. An empty binary name resolves to "exiftool" on PATH.
func NewDecoder(exiftoolBin string) *Decoder {
	if exiftoolBin == "" {
		exiftoolBin = "exiftool"
	}
	return &Decoder{exiftool: exiftoolBin}
}

// Decode reads and decodes path. RAW camera files decode through their
// embedded JPEG preview; everything else decodes in process. Failures are
// classified: unreadable files are IO errors, undecodable bytes are decode
// errors.
func (d *Decoder) Decode(ctx context.Context, path string) (image.Image, error) {
	if media.IsRaw(path) {
		return d.decodeRawPreview(ctx, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "codec", "open", path, err)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "codec", "decode", path, err)
	}
	return img, nil
}

// rawPreviewTags are tried largest-first. Most RAW formats embed a
// full-size JpgFromRaw or PreviewImage; the thumbnail is a last resort.
var rawPreviewTags = []string{"JpgFromRaw", "PreviewImage", "OtherImage", "ThumbnailImage"}

func (d *Decoder) decodeRawPreview(ctx context.Context, path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrIO, "codec", "stat", path, err)
	}

	var lastErr error
	for _, tag := range rawPreviewTags {
		payload, err := exec.CommandContext(ctx, d.exiftool, "-b", "-"+tag, path).Output()
		if err != nil {
			lastErr = err
			continue
		}
		if len(payload) == 0 {
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
		if err != nil {
			lastErr = err
			continue
		}
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, services.Wrap(services.ErrDecode, "codec", "raw preview", path,
		fmt.Errorf("no usable embedded preview: %w", normalizeErr(lastErr)))
}

func normalizeErr(err error) error {
	if err == nil {
		return fmt.Errorf("no preview tags present")
	}
	return err
}
