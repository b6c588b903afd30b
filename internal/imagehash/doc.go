// Package imagehash computes fixed-width perceptual hashes for still images.
//
// Two complementary 64-bit hashes are produced: an average hash capturing
// coarse luminance layout and a gradient hash capturing edge direction.
// Both are compared by Hamming distance. Near-duplicate variants (resizes,
// re-encodes, small colour shifts) land within a small distance while
// unrelated images land far apart.
package imagehash
