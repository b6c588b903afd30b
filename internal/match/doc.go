// Package match scores fingerprint pairs into similarity edges.
//
// Byte-identical files short-circuit to an exact verdict at full
// confidence. Images pass a cheap average-hash gate and are then verified
// by gradient-hash corroboration plus keypoint matching when descriptors
// exist on both sides; weaker verification paths carry lower score
// ceilings. Videos combine aligned keyframe distance with audio
// similarity, and pairs missing audio evidence cannot reach the top
// confidence band.
package match
