package keypoint

import (
	"image"
	"math/bits"
	"math/rand"
	"sort"

	"github.com/disintegration/imaging"
)

const (
	// DescriptorBits is the fixed descriptor width.
	DescriptorBits = 256

	descriptorWords = DescriptorBits / 64

	// maxSide caps the working resolution. Detection runs on a grayscale
	// downsample so cost stays bounded for large originals.
	maxSide = 1024

	// MaxKeypoints bounds descriptor count per image.
	MaxKeypoints = 200

	// fastThreshold is the minimum center-to-ring contrast for a corner.
	fastThreshold = 20

	// fastArc is the number of contiguous ring pixels that must agree.
	fastArc = 9

	// patchMargin keeps the sampling pattern and detection ring inside the
	// image.
	patchMargin = 16

	// minSpacing suppresses clusters of near-identical corners.
	minSpacing = 8
)

// Descriptor is one detected corner with its 256-bit intensity-comparison
// signature. Coordinates refer to the downsampled working image and exist
// for persistence and debugging; matching uses only the bits.
type Descriptor struct {
	X, Y uint16
	Bits [descriptorWords]uint64
}

// ring is the 16-point Bresenham circle of radius 3 used by the detector.
var ring = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// samplePairs is the fixed pseudo-random comparison pattern shared by every
// descriptor. The seed is part of the fingerprint format: changing it
// invalidates stored descriptors.
var samplePairs = generatePairs(71)

type pair struct {
	x1, y1, x2, y2 int
}

func generatePairs(seed int64) [DescriptorBits]pair {
	rng := rand.New(rand.NewSource(seed))
	var pairs [DescriptorBits]pair
	for i := range pairs {
		pairs[i] = pair{
			x1: rng.Intn(27) - 13,
			y1: rng.Intn(27) - 13,
			x2: rng.Intn(27) - 13,
			y2: rng.Intn(27) - 13,
		}
	}
	return pairs
}

type grayPlane struct {
	pix    []uint8
	width  int
	height int
}

func (g *grayPlane) at(x, y int) uint8 { return g.pix[y*g.width+x] }

// smoothed returns the 3x3 box average around (x, y). Callers keep the
// window inside the plane.
func (g *grayPlane) smoothed(x, y int) int {
	sum := 0
	for dy := -1; dy <= 1; dy++ {
		row := (y+dy)*g.width + x - 1
		sum += int(g.pix[row]) + int(g.pix[row+1]) + int(g.pix[row+2])
	}
	return sum / 9
}

func toGrayPlane(img image.Image) *grayPlane {
	bounds := img.Bounds()
	if w, h := bounds.Dx(), bounds.Dy(); w > maxSide || h > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()

	plane := &grayPlane{
		pix:    make([]uint8, b.Dx()*b.Dy()),
		width:  b.Dx(),
		height: b.Dy(),
	}
	for y := 0; y < plane.height; y++ {
		for x := 0; x < plane.width; x++ {
			plane.pix[y*plane.width+x] = gray.NRGBAAt(x, y).R
		}
	}
	return plane
}

type candidate struct {
	x, y  int
	score int
}

// isCorner implements the segment test: a pixel is a corner when at least
// fastArc contiguous ring pixels are all brighter than center+threshold or
// all darker than center-threshold. The returned score is the summed
// contrast of qualifying ring pixels.
func isCorner(g *grayPlane, x, y int) (int, bool) {
	center := int(g.at(x, y))
	bright := center + fastThreshold
	dark := center - fastThreshold

	var ringVals [16]int
	for i, off := range ring {
		ringVals[i] = int(g.at(x+off[0], y+off[1]))
	}

	longest := func(test func(int) bool) bool {
		run := 0
		// Walk the ring twice so arcs wrapping the start are counted.
		for i := 0; i < 32; i++ {
			if test(ringVals[i%16]) {
				run++
				if run >= fastArc {
					return true
				}
			} else {
				run = 0
			}
		}
		return false
	}

	brighter := longest(func(v int) bool { return v > bright })
	darker := longest(func(v int) bool { return v < dark })
	if !brighter && !darker {
		return 0, false
	}

	score := 0
	for _, v := range ringVals {
		if v > bright {
			score += v - center
		} else if v < dark {
			score += center - v
		}
	}
	return score, true
}

func describe(g *grayPlane, x, y int) Descriptor {
	d := Descriptor{X: uint16(x), Y: uint16(y)}
	for i, p := range samplePairs {
		if g.smoothed(x+p.x1, y+p.y1) < g.smoothed(x+p.x2, y+p.y2) {
			d.Bits[i/64] |= 1 << (i % 64)
		}
	}
	return d
}

// Extract detects corners in img and returns up to MaxKeypoints descriptors,
// strongest first. Featureless images legitimately return none.
func Extract(img image.Image) []Descriptor {
	g := toGrayPlane(img)
	if g.width <= 2*patchMargin || g.height <= 2*patchMargin {
		return nil
	}

	var candidates []candidate
	for y := patchMargin; y < g.height-patchMargin; y++ {
		for x := patchMargin; x < g.width-patchMargin; x++ {
			if score, ok := isCorner(g, x, y); ok {
				candidates = append(candidates, candidate{x: x, y: y, score: score})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].y != candidates[j].y {
			return candidates[i].y < candidates[j].y
		}
		return candidates[i].x < candidates[j].x
	})

	var kept []candidate
	for _, c := range candidates {
		tooClose := false
		for _, k := range kept {
			dx, dy := c.x-k.x, c.y-k.y
			if dx*dx+dy*dy < minSpacing*minSpacing {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		kept = append(kept, c)
		if len(kept) == MaxKeypoints {
			break
		}
	}

	descriptors := make([]Descriptor, 0, len(kept))
	for _, c := range kept {
		descriptors = append(descriptors, describe(g, c.x, c.y))
	}
	return descriptors
}

func hamming(a, b *Descriptor) int {
	d := 0
	for i := 0; i < descriptorWords; i++ {
		d += bits.OnesCount64(a.Bits[i] ^ b.Bits[i])
	}
	return d
}

// absoluteCap rejects best matches that are weak even when no competing
// second match exists.
const absoluteCap = 64

// MatchRatio matches a against b with a nearest/second-nearest ratio test
// and returns accepted matches divided by the smaller descriptor count.
// Either side being empty yields zero.
func MatchRatio(a, b []Descriptor) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	accepted := 0
	for i := range a {
		best, second := DescriptorBits + 1, DescriptorBits + 1
		for j := range b {
			d := hamming(&a[i], &b[j])
			switch {
			case d < best:
				best, second = d, best
			case d < second:
				second = d
			}
		}
		if best > absoluteCap {
			continue
		}
		// Lowe ratio test at 0.75, kept in integers.
		if len(b) > 1 && 4*best >= 3*second {
			continue
		}
		accepted++
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(accepted) / float64(smaller)
}
