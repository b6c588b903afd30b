package match

import (
	"errors"

	"mediadup/internal/fingerprint"
	"mediadup/internal/imagehash"
	"mediadup/internal/keypoint"
	"mediadup/internal/media"
	"mediadup/internal/services"
	"mediadup/internal/videofp"
)

// Verdict is the outcome of comparing two fingerprints.
type Verdict int

const (
	// VerdictNone means the pair is not a duplicate.
	VerdictNone Verdict = iota
	// VerdictNearDuplicate means the pair matched perceptually.
	VerdictNearDuplicate
	// VerdictExact means the pair has identical bytes.
	VerdictExact
)

func (v Verdict) String() string {
	switch v {
	case VerdictExact:
		return "exact"
	case VerdictNearDuplicate:
		return "near_duplicate"
	default:
		return "none"
	}
}

// Edge is a scored similarity between two files. A and B are file IDs in
// canonical ascending order so the same pair always produces the same
// edge. Kind records the shared modality of the pair.
type Edge struct {
	A       int64
	B       int64
	Kind    media.Kind
	Score   float64
	Verdict Verdict
}

// Config carries the matcher thresholds. Values come from configuration,
// never per-call overrides, so a scan is internally consistent.
type Config struct {
	ExactOnly                  bool
	HammingThresholdImage      int
	HammingThresholdVideoFrame int
	KeypointMatchRatioMin      float64
	AudioSimilarityMin         float64
}

const (
	// gradientSlack is the extra Hamming room the gradient hash gets over
	// the configured average-hash threshold before it vetoes a pair.
	gradientSlack = 6

	// Score ceilings. Only byte-identical files reach 1.0; weaker
	// verification paths top out lower.
	fullVerifyCeiling = 0.98
	hashOnlyCeiling   = 0.92
	noAudioCeiling    = 0.90

	// Video similarity weighting and the minimum combined score a video
	// pair must reach.
	visualWeight    = 0.7
	audioWeight     = 0.3
	videoScoreFloor = 0.5
)

// Matcher scores fingerprint pairs.
type Matcher struct {
	cfg Config
}

// New returns a matcher using the given thresholds.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Compare scores a pair of fingerprints. Pairs of different modalities are
// a validation error; pairs that simply do not match return a zero edge
// with VerdictNone.
func (m *Matcher) Compare(a, b *fingerprint.Fingerprint) (Edge, error) {
	if !a.Comparable(b) {
		return Edge{}, services.Wrap(services.ErrValidation, "match", "compare", "",
			errors.New("fingerprints are not comparable"))
	}
	if a.FileID > b.FileID {
		a, b = b, a
	}
	edge := Edge{A: a.FileID, B: b.FileID, Kind: a.Kind}

	if a.ContentDigest != "" && a.ContentDigest == b.ContentDigest {
		edge.Score = 1.0
		edge.Verdict = VerdictExact
		return edge, nil
	}
	if m.cfg.ExactOnly {
		return edge, nil
	}

	switch a.Kind {
	case media.KindImage:
		return m.compareImages(edge, a, b), nil
	case media.KindVideo:
		return m.compareVideos(edge, a, b), nil
	default:
		return edge, nil
	}
}

// compareImages runs the two-stage image path: a cheap average-hash gate,
// then verification by gradient-hash corroboration and, when both sides
// carry descriptors, keypoint matching.
func (m *Matcher) compareImages(edge Edge, a, b *fingerprint.Fingerprint) Edge {
	if !a.HasPerceptual || !b.HasPerceptual {
		return edge
	}

	distance := imagehash.Distance(a.PerceptualHash, b.PerceptualHash)
	if distance > m.cfg.HammingThresholdImage {
		return edge
	}
	if imagehash.Distance(a.DifferenceHash, b.DifferenceHash) > m.cfg.HammingThresholdImage+gradientSlack {
		return edge
	}

	ceiling := hashOnlyCeiling
	if a.HasKeypoints() && b.HasKeypoints() {
		if keypoint.MatchRatio(a.Keypoints, b.Keypoints) < m.cfg.KeypointMatchRatioMin {
			return edge
		}
		ceiling = fullVerifyCeiling
	}

	score := 1 - float64(distance)/imagehash.BitLength
	if score > ceiling {
		score = ceiling
	}
	edge.Score = score
	edge.Verdict = VerdictNearDuplicate
	return edge
}

// compareVideos combines aligned keyframe distance with audio similarity.
// Sequences of different lengths are resampled onto the shorter before
// position-wise comparison.
func (m *Matcher) compareVideos(edge Edge, a, b *fingerprint.Fingerprint) Edge {
	framesA, framesB := a.FrameHashes, b.FrameHashes
	if len(framesA) == 0 || len(framesB) == 0 {
		return edge
	}
	if len(framesA) > len(framesB) {
		framesA = videofp.ResampleHashes(framesA, len(framesB))
	} else if len(framesB) > len(framesA) {
		framesB = videofp.ResampleHashes(framesB, len(framesA))
	}

	meanDistance := videofp.MeanFrameDistance(framesA, framesB)
	if meanDistance > float64(m.cfg.HammingThresholdVideoFrame) {
		return edge
	}
	visual := 1 - meanDistance/imagehash.BitLength

	var score float64
	if a.HasAudio() && b.HasAudio() {
		audio := videofp.AudioSimilarity(a.AudioFrames, b.AudioFrames)
		if audio < m.cfg.AudioSimilarityMin {
			return edge
		}
		score = visualWeight*visual + audioWeight*audio
		if score > fullVerifyCeiling {
			score = fullVerifyCeiling
		}
	} else {
		score = visual
		if score > noAudioCeiling {
			score = noAudioCeiling
		}
	}

	if score < videoScoreFloor {
		return edge
	}
	edge.Score = score
	edge.Verdict = VerdictNearDuplicate
	return edge
}
