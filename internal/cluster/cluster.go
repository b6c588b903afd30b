package cluster

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"mediadup/internal/match"
	"mediadup/internal/media"
	"mediadup/internal/services"
)

// Kind classifies a cluster by its weakest evidence.
type Kind string

const (
	// KindExact means every edge in the cluster is byte-identical.
	KindExact Kind = "exact"
	// KindNear means at least one edge matched perceptually.
	KindNear Kind = "near_duplicate"
)

// Cluster is one connected group of duplicate files.
type Cluster struct {
	ID            string
	Kind          Kind
	Confidence    float64
	Members       []int64
	SuggestedKeep int64
}

// Builder accumulates similarity edges and groups them into connected
// components with union-find. Files with no edges never enter the
// builder, so singleton clusters cannot exist.
type Builder struct {
	parent map[int64]int64
	rank   map[int64]int
	edges  []match.Edge
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		parent: make(map[int64]int64),
		rank:   make(map[int64]int),
	}
}

// AddEdge registers a scored edge. Edges without a verdict are ignored so
// callers can feed every comparison result straight in.
func (b *Builder) AddEdge(edge match.Edge) {
	if edge.Verdict == match.VerdictNone {
		return
	}
	b.edges = append(b.edges, edge)
	b.union(edge.A, edge.B)
}

// EdgeCount reports how many qualifying edges were added.
func (b *Builder) EdgeCount() int { return len(b.edges) }

func (b *Builder) find(id int64) int64 {
	if _, ok := b.parent[id]; !ok {
		b.parent[id] = id
		return id
	}
	root := id
	for b.parent[root] != root {
		root = b.parent[root]
	}
	for b.parent[id] != root {
		b.parent[id], id = root, b.parent[id]
	}
	return root
}

func (b *Builder) union(x, y int64) {
	rx, ry := b.find(x), b.find(y)
	if rx == ry {
		return
	}
	if b.rank[rx] < b.rank[ry] {
		rx, ry = ry, rx
	}
	b.parent[ry] = rx
	if b.rank[rx] == b.rank[ry] {
		b.rank[rx]++
	}
}

// Build emits the connected components. The files map supplies the
// metadata the keep policy ranks on; every edge endpoint must be present.
// Output is deterministic for a given edge set regardless of insertion
// order: members sort ascending, clusters sort by their smallest member.
func (b *Builder) Build(files map[int64]media.File) ([]Cluster, error) {
	componentEdges := make(map[int64][]match.Edge)
	componentMembers := make(map[int64]map[int64]bool)

	for _, edge := range b.edges {
		root := b.find(edge.A)
		componentEdges[root] = append(componentEdges[root], edge)
		if componentMembers[root] == nil {
			componentMembers[root] = make(map[int64]bool)
		}
		componentMembers[root][edge.A] = true
		componentMembers[root][edge.B] = true
	}

	clusters := make([]Cluster, 0, len(componentEdges))
	for root, edges := range componentEdges {
		memberSet := componentMembers[root]
		members := make([]int64, 0, len(memberSet))
		for id := range memberSet {
			if _, ok := files[id]; !ok {
				return nil, services.Wrap(services.ErrValidation, "cluster", "build", "",
					fmt.Errorf("edge references unknown file %d", id))
			}
			members = append(members, id)
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

		kind := KindExact
		var scoreSum float64
		for _, edge := range edges {
			scoreSum += edge.Score
			if edge.Verdict != match.VerdictExact {
				kind = KindNear
			}
		}

		clusters = append(clusters, Cluster{
			ID:            uuid.NewString(),
			Kind:          kind,
			Confidence:    scoreSum / float64(len(edges)),
			Members:       members,
			SuggestedKeep: suggestKeep(members, files),
		})
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Members[0] < clusters[j].Members[0] })
	return clusters, nil
}

// suggestKeep picks the member to preserve: best quality first, then the
// earliest modification time, then the lexicographically smallest path.
// Every tier is total, so the choice is deterministic.
func suggestKeep(members []int64, files map[int64]media.File) int64 {
	best := members[0]
	for _, id := range members[1:] {
		if keepBefore(files[id], files[best]) {
			best = id
		}
	}
	return best
}

func keepBefore(candidate, current media.File) bool {
	if cq, bq := candidate.QualityScore(), current.QualityScore(); cq != bq {
		return cq > bq
	}
	// Bitrate ties for videos fall through to pixel count.
	if cp, bp := candidate.PixelCount(), current.PixelCount(); cp != bp {
		return cp > bp
	}
	if !candidate.ModTime.Equal(current.ModTime) {
		return candidate.ModTime.Before(current.ModTime)
	}
	return candidate.Path < current.Path
}
