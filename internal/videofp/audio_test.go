package videofp

import (
	"math"
	"testing"
)

const testRate = 11025

func sineWave(freq float64, seconds float64) []int16 {
	samples := make([]int16, int(seconds*testRate))
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return samples
}

func TestComputeSpectralFrameCount(t *testing.T) {
	frames := ComputeSpectral(sineWave(440, 2))
	// 22050 samples, 4096 window, 2048 hop.
	if len(frames) != 9 {
		t.Fatalf("expected 9 frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame.Norm == 0 {
			t.Fatalf("frame %d has zero norm for a loud tone", i)
		}
	}
}

func TestComputeSpectralShortTrack(t *testing.T) {
	if frames := ComputeSpectral(make([]int16, 1000)); frames != nil {
		t.Fatalf("sub-window track produced %d frames", len(frames))
	}
}

func TestAudioSimilaritySameTone(t *testing.T) {
	a := ComputeSpectral(sineWave(440, 2))
	b := ComputeSpectral(sineWave(440, 2))
	if sim := AudioSimilarity(a, b); sim < 0.99 {
		t.Fatalf("identical tones scored %.3f, want >= 0.99", sim)
	}
}

func TestAudioSimilarityDistinguishesTones(t *testing.T) {
	low := ComputeSpectral(sineWave(440, 2))
	high := ComputeSpectral(sineWave(2093, 2))

	cross := AudioSimilarity(low, high)
	same := AudioSimilarity(low, ComputeSpectral(sineWave(440, 2)))
	if cross >= same {
		t.Fatalf("different tones %.3f not below same tone %.3f", cross, same)
	}
	if cross > 0.8 {
		t.Fatalf("different tones scored %.3f, want <= 0.8", cross)
	}
}

func TestAudioSimilarityDurationNormalized(t *testing.T) {
	short := ComputeSpectral(sineWave(440, 2))
	long := ComputeSpectral(sineWave(440, 4))
	if len(short) == len(long) {
		t.Fatal("fixture error: durations should differ in frame count")
	}
	if sim := AudioSimilarity(short, long); sim < 0.99 {
		t.Fatalf("same tone at different durations scored %.3f, want >= 0.99", sim)
	}
}

func TestAudioSimilarityEmptySides(t *testing.T) {
	frames := ComputeSpectral(sineWave(440, 1))
	if AudioSimilarity(nil, frames) != 0 {
		t.Fatal("empty left side must score 0")
	}
	if AudioSimilarity(frames, nil) != 0 {
		t.Fatal("empty right side must score 0")
	}
}

func TestSilenceScoresZeroAgainstTone(t *testing.T) {
	silence := ComputeSpectral(make([]int16, 2*testRate))
	tone := ComputeSpectral(sineWave(440, 2))
	if sim := AudioSimilarity(silence, tone); sim != 0 {
		t.Fatalf("silence vs tone scored %.3f, want 0", sim)
	}
}

func TestFrameCosineGuards(t *testing.T) {
	frames := ComputeSpectral(sineWave(880, 1))
	if FrameCosine(nil, &frames[0]) != 0 {
		t.Fatal("nil frame must score 0")
	}
	var zero SpectralFrame
	if FrameCosine(&zero, &frames[0]) != 0 {
		t.Fatal("zero-norm frame must score 0")
	}
	if sim := FrameCosine(&frames[0], &frames[0]); sim < 0.999 {
		t.Fatalf("self cosine = %.4f, want ~1", sim)
	}
}
