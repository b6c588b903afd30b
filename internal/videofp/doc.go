// Package videofp fingerprints video files.
//
// The visual fingerprint is a sequence of perceptual hashes taken at
// evenly spaced keyframes, always resampled to a canonical count so any
// two stored fingerprints compare position for position. The audio
// fingerprint is a sequence of log-spaced spectral band energies over
// overlapping windows of the downmixed track, compared by mean frame
// cosine after duration normalization. Audio is optional evidence: silent
// containers fingerprint fine and match visual-only.
package videofp
