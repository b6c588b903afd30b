package engine

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"mediadup/internal/candidate"
	"mediadup/internal/cluster"
	"mediadup/internal/fingerprint"
	"mediadup/internal/logging"
	"mediadup/internal/match"
	"mediadup/internal/media"
	"mediadup/internal/store"
)

// fpPair is one candidate pair awaiting scoring.
type fpPair struct {
	a *fingerprint.Fingerprint
	b *fingerprint.Fingerprint
}

// runMatchingPhase generates candidate pairs from the stored fingerprint
// corpus, scores them, and replaces the active cluster set. Matching
// always covers the whole corpus, so new files pair with fingerprints
// reused from earlier scans.
func (e *Engine) runMatchingPhase(ctx context.Context, scanID string, counters *store.ScanCounters) ([]cluster.Cluster, error) {
	files, err := e.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	fingerprints, err := e.store.ListFingerprints(ctx)
	if err != nil {
		return nil, err
	}

	pairs := e.collectPairs(fingerprints)
	e.logger.Info("matching candidate pairs",
		logging.Int("fingerprints", len(fingerprints)),
		logging.Int("pairs", len(pairs)))

	builder := cluster.NewBuilder()
	if err := e.scorePairs(ctx, pairs, builder); err != nil {
		return nil, err
	}

	clusters, err := builder.Build(files)
	if err != nil {
		return nil, err
	}
	if err := e.store.ReplaceClusters(ctx, scanID, clusters); err != nil {
		return nil, err
	}
	counters.Clusters = len(clusters)
	return clusters, nil
}

// collectPairs proposes every pair worth scoring: digest groups connect
// byte-identical files, and per-modality candidate indexes surface
// perceptually close ones. Pairs are deduplicated, so each is scored
// once no matter how many probes surface it.
func (e *Engine) collectPairs(fingerprints []*fingerprint.Fingerprint) []fpPair {
	byID := make(map[int64]*fingerprint.Fingerprint, len(fingerprints))
	byDigest := make(map[fingerprint.Digest][]*fingerprint.Fingerprint)
	for _, fp := range fingerprints {
		byID[fp.FileID] = fp
		if fp.Kind == media.KindOther {
			continue
		}
		byDigest[fp.ContentDigest] = append(byDigest[fp.ContentDigest], fp)
	}

	seen := make(map[[2]int64]struct{})
	var pairs []fpPair
	add := func(a, b *fingerprint.Fingerprint) {
		if a == nil || b == nil || a.FileID == b.FileID {
			return
		}
		key := [2]int64{a.FileID, b.FileID}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pairs = append(pairs, fpPair{a: a, b: b})
	}

	// One pair per extra group member keeps an identical-bytes group
	// connected without quadratic blowup; transitivity does the rest.
	for _, group := range byDigest {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].FileID < group[j].FileID })
		for _, other := range group[1:] {
			add(group[0], other)
		}
	}

	if e.cfg.Match.ExactOnly {
		return pairs
	}

	imageIndex := candidate.New(e.cfg.Match.CandidateMaxDistance)
	for _, fp := range fingerprints {
		if fp.Kind == media.KindImage && fp.HasPerceptual {
			imageIndex.Insert(fp.FileID, fp.PerceptualHash)
		}
	}
	for _, fp := range fingerprints {
		if fp.Kind != media.KindImage || !fp.HasPerceptual {
			continue
		}
		for _, cand := range imageIndex.Query(fp.PerceptualHash) {
			add(fp, byID[cand.ID])
		}
	}

	// Videos index every keyframe hash under the file's ID. The radius
	// must cover the per-frame threshold: a mean frame distance within
	// the threshold implies at least one aligned frame pair within it,
	// so probing each frame cannot miss an acceptable pair.
	radius := e.cfg.Match.CandidateMaxDistance
	if e.cfg.Match.HammingThresholdVideoFrame > radius {
		radius = e.cfg.Match.HammingThresholdVideoFrame
	}
	videoIndex := candidate.New(radius)
	for _, fp := range fingerprints {
		if fp.Kind != media.KindVideo {
			continue
		}
		for _, hash := range fp.FrameHashes {
			videoIndex.Insert(fp.FileID, hash)
		}
	}
	for _, fp := range fingerprints {
		if fp.Kind != media.KindVideo {
			continue
		}
		for _, hash := range fp.FrameHashes {
			for _, cand := range videoIndex.Query(hash) {
				add(fp, byID[cand.ID])
			}
		}
	}

	return pairs
}

// scorePairs compares candidate pairs concurrently. Scoring is pure and
// per-pair independent; the builder is the single synchronization point,
// fed by one consumer goroutine.
func (e *Engine) scorePairs(ctx context.Context, pairs []fpPair, builder *cluster.Builder) error {
	if len(pairs) == 0 {
		return nil
	}

	edges := make(chan match.Edge)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for edge := range edges {
			builder.AddEdge(edge)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers(runtime.NumCPU()))
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			edge, err := e.matcher.Compare(pair.a, pair.b)
			if err != nil {
				return err
			}
			if edge.Verdict == match.VerdictNone {
				return nil
			}
			select {
			case edges <- edge:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(edges)
	<-consumerDone
	return err
}
