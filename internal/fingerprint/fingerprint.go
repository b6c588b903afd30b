package fingerprint

import (
	"mediadup/internal/keypoint"
	"mediadup/internal/media"
	"mediadup/internal/videofp"
)

// Fingerprint carries every similarity signal computed for one file during
// one scan generation. The content digest is always present; perceptual
// fields depend on Kind and on whether decoding succeeded.
//
// A fingerprint only becomes visible to matching once fully computed. The
// engine never persists partial signal sets for a file.
type Fingerprint struct {
	FileID int64
	Kind   media.Kind

	ContentDigest Digest
	SizeBytes     int64
	ModTimeUnix   int64

	// Image signals. HasPerceptual is false when the decoder rejected the
	// file, in which case the file participates in exact matching only.
	HasPerceptual  bool
	PerceptualHash uint64
	DifferenceHash uint64
	Keypoints      []keypoint.Descriptor

	// Video signals. FrameHashes always holds the canonical keyframe count
	// when present. AudioFrames is empty for silent or audio-less streams,
	// which is a valid state rather than a failure.
	FrameHashes []uint64
	AudioFrames []videofp.SpectralFrame
}

// HasKeypoints reports whether descriptor verification is possible.
func (f *Fingerprint) HasKeypoints() bool {
	return len(f.Keypoints) > 0
}

// HasAudio reports whether an audio fingerprint was extracted.
func (f *Fingerprint) HasAudio() bool {
	return len(f.AudioFrames) > 0
}

// Comparable reports whether two fingerprints may be scored against each
// other. Matching never crosses modalities.
func (f *Fingerprint) Comparable(other *Fingerprint) bool {
	if f == nil || other == nil {
		return false
	}
	return f.Kind == other.Kind && f.Kind != media.KindOther
}
