// Package cluster groups scored similarity edges into duplicate clusters.
//
// Components come from union-find over edge endpoints, so transitively
// connected files land together. A cluster is exact only when every edge
// in it is exact; confidence is the mean edge score. Each cluster names
// one member to keep, chosen by quality, age and path in that order so
// repeated scans of the same library always suggest the same file.
package cluster
