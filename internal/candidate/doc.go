// Package candidate narrows all-pairs comparison down to plausible
// near-duplicate pairs.
//
// It implements multi-index hashing: each 64-bit perceptual hash is filed
// under its four 16-bit substrings, and a query probes every substring
// variant reachable within a quarter of the search radius. The pigeonhole
// principle makes recall exact inside the radius; precision is restored by
// filtering probed entries on true Hamming distance. The index lives in
// memory for the duration of a scan and is rebuilt from stored
// fingerprints, so it needs no persistence or deletion support.
package candidate
