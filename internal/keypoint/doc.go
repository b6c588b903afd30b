// Package keypoint detects corner features and produces compact binary
// descriptors used to verify image matches beyond global hashes.
//
// Detection is a contiguous-arc segment test on a bounded grayscale
// downsample. Each surviving corner gets a 256-bit descriptor built from a
// fixed pseudo-random pattern of smoothed intensity comparisons, and sets
// of descriptors are compared with a nearest/second-nearest ratio test.
// Descriptors are optional evidence: images without usable corners still
// match through their global hashes, at reduced confidence.
package keypoint
