// Package fingerprint defines content digests and the per-file fingerprint
// record the engine computes and persists.
//
// Digests are streamed in bounded chunks so multi-gigabyte videos hash with
// constant memory, and are rendered as "<algo>:<hex>" strings so records
// produced under different hash settings never collide silently. Perceptual
// signals (image hashes, keypoint descriptors, keyframe sequences, audio
// frames) are computed by their own packages and assembled here into one
// record per file.
package fingerprint
