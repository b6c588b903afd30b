package videofp

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// windowSize and hopSize define the overlapping analysis windows.
	// At 11025 Hz one window covers ~372 ms and frames land every ~186 ms.
	windowSize = 4096
	hopSize    = 2048

	// BandCount is the spectral resolution of one frame.
	BandCount = 32
)

// SpectralFrame is one analysis window reduced to log-spaced band
// energies. Norm caches the vector length for cosine comparisons.
type SpectralFrame struct {
	Bands [BandCount]float64
	Norm  float64
}

var hannWindow = buildHann(windowSize)

func buildHann(n int) []float64 {
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return window
}

// bandEdges spaces BandCount bands logarithmically over bins [1, N/2) so
// low frequencies get fine resolution and hiss gets lumped together.
var bandEdges = buildBandEdges()

func buildBandEdges() [BandCount + 1]int {
	var edges [BandCount + 1]int
	maxBin := float64(windowSize / 2)
	for k := 0; k <= BandCount; k++ {
		edges[k] = int(math.Round(math.Pow(maxBin, float64(k)/float64(BandCount))))
	}
	for k := 1; k <= BandCount; k++ {
		if edges[k] <= edges[k-1] {
			edges[k] = edges[k-1] + 1
		}
	}
	return edges
}

// ComputeSpectral slices mono PCM samples into overlapping Hann windows
// and reduces each window's spectrum to band energies. Tracks shorter than
// one window yield no frames, which downstream treats as absent audio.
func ComputeSpectral(samples []int16) []SpectralFrame {
	if len(samples) < windowSize {
		return nil
	}

	frameCount := 1 + (len(samples)-windowSize)/hopSize
	frames := make([]SpectralFrame, 0, frameCount)
	buf := make([]float64, windowSize)

	for f := 0; f < frameCount; f++ {
		start := f * hopSize
		for i := range buf {
			buf[i] = float64(samples[start+i]) / 32768 * hannWindow[i]
		}
		spectrum := fft.FFTReal(buf)

		var frame SpectralFrame
		var norm float64
		for k := 0; k < BandCount; k++ {
			var energy float64
			for bin := bandEdges[k]; bin < bandEdges[k+1]; bin++ {
				re, im := real(spectrum[bin]), imag(spectrum[bin])
				energy += re*re + im*im
			}
			v := math.Log1p(energy)
			frame.Bands[k] = v
			norm += v * v
		}
		frame.Norm = math.Sqrt(norm)
		frames = append(frames, frame)
	}
	return frames
}

// FrameCosine computes the cosine similarity between two spectral frames.
// Returns 0 if either frame is nil or has zero norm.
func FrameCosine(a, b *SpectralFrame) float64 {
	if a == nil || b == nil || a.Norm == 0 || b.Norm == 0 {
		return 0
	}
	var dot float64
	for i := 0; i < BandCount; i++ {
		dot += a.Bands[i] * b.Bands[i]
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.Norm * b.Norm)
}

// ResampleSpectral stretches or shrinks a frame sequence to target
// positions by nearest-neighbour lookup.
func ResampleSpectral(frames []SpectralFrame, target int) []SpectralFrame {
	if len(frames) == 0 || target <= 0 {
		return nil
	}
	out := make([]SpectralFrame, target)
	for i := range out {
		out[i] = frames[resampleIndex(i, len(frames), target)]
	}
	return out
}

// AudioSimilarity scores two spectral sequences in [0, 1]. The longer
// sequence is resampled onto the shorter so tracks of different durations
// compare position for position. Either side empty scores 0.
func AudioSimilarity(a, b []SpectralFrame) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a = ResampleSpectral(a, len(b))
	} else if len(b) > len(a) {
		b = ResampleSpectral(b, len(a))
	}

	var sum float64
	for i := range a {
		sum += FrameCosine(&a[i], &b[i])
	}
	return sum / float64(len(a))
}
