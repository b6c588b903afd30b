package imagehash

import (
	"image"
	"math/bits"

	"github.com/artyom/phash"
	"github.com/disintegration/imaging"
)

// BitLength is the fixed width of every perceptual hash. Hashes of the same
// modality are always directly comparable because this never varies.
const BitLength = 64

// resample feeds the hash the same Lanczos filter everywhere so hashes stay
// stable across callers.
func resample(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Perceptual computes the 64-bit average hash of img. Scaling, recompression
// and mild edits move the hash by a few bits; unrelated images land far
// apart.
func Perceptual(img image.Image) (uint64, error) {
	return phash.Get(img, resample)
}

// Difference computes a 64-bit gradient hash. The image is reduced to a 9x8
// grayscale grid and each bit records whether a pixel is darker than its
// right neighbour. Gradient direction survives brightness shifts that move
// the average hash, so the two hashes corroborate each other.
func Difference(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, 9, 8, imaging.Lanczos))

	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			hash <<= 1
			if small.NRGBAAt(x+1, y).R > small.NRGBAAt(x, y).R {
				hash |= 1
			}
		}
	}
	return hash
}

// Distance returns the Hamming distance between two 64-bit hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
