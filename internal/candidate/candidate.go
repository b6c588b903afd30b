package candidate

import (
	"sort"

	"mediadup/internal/imagehash"
)

// blockCount splits a 64-bit hash into four 16-bit substrings. Two hashes
// within Hamming distance r differ by at most floor(r/4) bits in at least
// one substring, so probing every substring variant within that many flips
// can never miss a neighbour inside the radius.
const blockCount = 4

const blockBits = imagehash.BitLength / blockCount

// Entry is one indexed hash. The same ID may be inserted under several
// hashes (one per video keyframe).
type Entry struct {
	ID   int64
	Hash uint64
}

// Candidate is a query result. Distance is the smallest Hamming distance
// between the query and any hash stored for the ID.
type Candidate struct {
	ID       int64
	Hash     uint64
	Distance int
}

// Index is an in-memory near-neighbour index over 64-bit hashes. Lookups
// return every indexed ID within the construction radius, with no false
// negatives. It is rebuilt per scan and is not safe for concurrent
// mutation.
type Index struct {
	maxDistance int
	blocks      [blockCount]map[uint16][]Entry
	size        int
}

// New returns an index answering queries within maxDistance Hamming bits.
func New(maxDistance int) *Index {
	if maxDistance < 0 {
		maxDistance = 0
	}
	if maxDistance > imagehash.BitLength {
		maxDistance = imagehash.BitLength
	}
	ix := &Index{maxDistance: maxDistance}
	for b := range ix.blocks {
		ix.blocks[b] = make(map[uint16][]Entry)
	}
	return ix
}

// MaxDistance reports the radius the index guarantees.
func (ix *Index) MaxDistance() int { return ix.maxDistance }

// Len reports the number of stored entries.
func (ix *Index) Len() int { return ix.size }

func block(hash uint64, b int) uint16 {
	return uint16(hash >> (blockBits * b))
}

// Insert stores hash under id in every substring bucket.
func (ix *Index) Insert(id int64, hash uint64) {
	for b := 0; b < blockCount; b++ {
		key := block(hash, b)
		ix.blocks[b][key] = append(ix.blocks[b][key], Entry{ID: id, Hash: hash})
	}
	ix.size++
}

// Query returns all IDs holding at least one hash within the index radius
// of hash, ordered by ascending distance then ID. The query hash's own ID
// is not special-cased; callers filter self matches.
func (ix *Index) Query(hash uint64) []Candidate {
	flips := ix.maxDistance / blockCount

	best := make(map[int64]Candidate)
	probe := func(b int, key uint16) {
		for _, entry := range ix.blocks[b][key] {
			d := imagehash.Distance(entry.Hash, hash)
			if d > ix.maxDistance {
				continue
			}
			prev, ok := best[entry.ID]
			if !ok || d < prev.Distance {
				best[entry.ID] = Candidate{ID: entry.ID, Hash: entry.Hash, Distance: d}
			}
		}
	}

	for b := 0; b < blockCount; b++ {
		enumerateVariants(block(hash, b), flips, func(key uint16) {
			probe(b, key)
		})
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// enumerateVariants emits base and every value obtained by flipping up to
// flips distinct bits, each variant exactly once.
func enumerateVariants(base uint16, flips int, emit func(uint16)) {
	var walk func(current uint16, start, remaining int)
	walk = func(current uint16, start, remaining int) {
		emit(current)
		if remaining == 0 {
			return
		}
		for pos := start; pos < blockBits; pos++ {
			walk(current^(1<<pos), pos+1, remaining-1)
		}
	}
	walk(base, 0, flips)
}
