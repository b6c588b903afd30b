package testsupport

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// GradientImage builds a horizontal rising luminance ramp. Resized copies
// keep a near-identical perceptual hash, which makes the fixture useful for
// near-duplicate scenarios.
func GradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(255 * x / (width - 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// InvertedGradientImage builds a falling ramp whose perceptual hash sits far
// from GradientImage's, so the two never pair up.
func InvertedGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(255 - 255*x/(width-1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// WriteImage saves img at path, picking the encoder from the extension.
func WriteImage(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// WriteResizedCopy re-encodes src at dst scaled by the given factor.
func WriteResizedCopy(t testing.TB, src, dst string, scale float64) {
	t.Helper()

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		t.Fatalf("open %s: %v", src, err)
	}
	width := int(float64(img.Bounds().Dx()) * scale)
	if width < 1 {
		width = 1
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	if err := imaging.Save(resized, dst); err != nil {
		t.Fatalf("save %s: %v", dst, err)
	}
}
