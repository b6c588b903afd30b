package codec

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"mediadup/internal/services"
)

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(4 * x), G: uint8(5 * y), B: 90, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return path
}

func TestDecodeFormats(t *testing.T) {
	decoder := NewDecoder("")
	for _, name := range []string{"sample.jpg", "sample.png", "sample.gif", "sample.bmp", "sample.tif"} {
		path := writeTestImage(t, name)
		img, err := decoder.Decode(context.Background(), path)
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
			t.Fatalf("decode %s: unexpected bounds %v", name, img.Bounds())
		}
	}
}

func TestDecodeMissingFileIsIOError(t *testing.T) {
	decoder := NewDecoder("")
	_, err := decoder.Decode(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected IO classification, got %v", err)
	}
	if services.ClassifyFileError(err) != services.OutcomeSkip {
		t.Fatalf("expected skip outcome for %v", err)
	}
}

func TestDecodeGarbageIsDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	decoder := NewDecoder("")
	_, err := decoder.Decode(context.Background(), path)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode classification, got %v", err)
	}
	if services.ClassifyFileError(err) != services.OutcomeDegrade {
		t.Fatalf("expected degrade outcome for %v", err)
	}
}

func TestDecodeMissingRawIsIOError(t *testing.T) {
	decoder := NewDecoder("")
	_, err := decoder.Decode(context.Background(), filepath.Join(t.TempDir(), "shot.cr2"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected IO classification for missing raw, got %v", err)
	}
}
