package videofp

import "mediadup/internal/imagehash"

// FrameTimestamps returns count seek offsets placed at segment midpoints.
// Midpoints avoid the black leader and credit tail that first/last frame
// sampling would hit.
func FrameTimestamps(durationSeconds float64, count int) []float64 {
	if count <= 0 || durationSeconds <= 0 {
		return nil
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = durationSeconds * (float64(i) + 0.5) / float64(count)
	}
	return out
}

// resampleIndex maps output position i of target onto a source index in
// [0, n) by midpoint nearest-neighbour lookup.
func resampleIndex(i, n, target int) int {
	idx := ((2*i + 1) * n) / (2 * target)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// ResampleHashes stretches or shrinks a frame hash sequence to target
// positions. Short sequences repeat their nearest frames so clips sampled
// under older keyframe settings stay comparable.
func ResampleHashes(hashes []uint64, target int) []uint64 {
	if len(hashes) == 0 || target <= 0 {
		return nil
	}
	out := make([]uint64, target)
	for i := range out {
		out[i] = hashes[resampleIndex(i, len(hashes), target)]
	}
	return out
}

// MeanFrameDistance returns the mean per-position Hamming distance between
// two equal-length hash sequences. Mismatched or empty input scores the
// maximum distance so callers reject it.
func MeanFrameDistance(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return imagehash.BitLength
	}
	total := 0
	for i := range a {
		total += imagehash.Distance(a[i], b[i])
	}
	return float64(total) / float64(len(a))
}
