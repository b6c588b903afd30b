package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"mediadup/internal/cluster"
	"mediadup/internal/config"
	"mediadup/internal/engine"
	"mediadup/internal/logging"
	"mediadup/internal/services"
	"mediadup/internal/store"
	"mediadup/internal/testsupport"
)

// writeMediaSet lays down the canonical duplicate scenario: two
// byte-identical JPEGs, an 80%-scale copy, an unrelated image, and a
// byte-identical pair of unreadable videos that can only match by
// digest.
func writeMediaSet(t *testing.T, root string) {
	t.Helper()

	a := filepath.Join(root, "a.jpg")
	testsupport.WriteImage(t, a, testsupport.GradientImage(320, 240))
	testsupport.CopyFile(t, a, filepath.Join(root, "b.jpg"))
	testsupport.WriteResizedCopy(t, a, filepath.Join(root, "c.jpg"), 0.8)
	testsupport.WriteImage(t, filepath.Join(root, "d.jpg"), testsupport.InvertedGradientImage(320, 240))

	e := filepath.Join(root, "e.mp4")
	testsupport.WriteFile(t, e, 4096)
	testsupport.CopyFile(t, e, filepath.Join(root, "f.mp4"))
}

func newEngine(t *testing.T, cfg *config.Config) (*engine.Engine, *store.Store) {
	t.Helper()

	st := testsupport.MustOpenStore(t, cfg)
	eng, err := engine.New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return eng, st
}

func idsByName(t *testing.T, st *store.Store) map[string]int64 {
	t.Helper()

	files, err := st.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	ids := make(map[string]int64, len(files))
	for id, f := range files {
		ids[filepath.Base(f.Path)] = id
	}
	return ids
}

func sortedIDs(ids map[string]int64, names ...string) []int64 {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		out = append(out, ids[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func clusterContaining(clusters []cluster.Cluster, id int64) (cluster.Cluster, bool) {
	for _, c := range clusters {
		for _, member := range c.Members {
			if member == id {
				return c, true
			}
		}
	}
	return cluster.Cluster{}, false
}

func TestScanBuildsExpectedClusters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, st := newEngine(t, cfg)

	ctx := context.Background()
	sum, err := eng.Scan(ctx, engine.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if sum.Status != store.ScanCompleted {
		t.Fatalf("scan status = %q, want completed", sum.Status)
	}

	c := sum.Counters
	if c.Seen != 6 || c.Fingerprinted != 6 || c.Reused != 0 || c.Skipped != 0 {
		t.Fatalf("unexpected counters: %+v", c)
	}
	if c.Degraded != 2 {
		t.Fatalf("expected both unreadable videos to degrade, got %d", c.Degraded)
	}
	if len(sum.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(sum.Clusters), sum.Clusters)
	}

	ids := idsByName(t, st)

	images, ok := clusterContaining(sum.Clusters, ids["a.jpg"])
	if !ok {
		t.Fatal("no cluster contains a.jpg")
	}
	if images.Kind != cluster.KindNear {
		t.Fatalf("image cluster kind = %q, want near_duplicate", images.Kind)
	}
	if want := sortedIDs(ids, "a.jpg", "b.jpg", "c.jpg"); !reflect.DeepEqual(images.Members, want) {
		t.Fatalf("image cluster members = %v, want %v", images.Members, want)
	}
	// a and b tie on pixels; a was written first and sorts first.
	if images.SuggestedKeep != ids["a.jpg"] {
		t.Fatalf("image cluster keep = %d, want a.jpg (%d)", images.SuggestedKeep, ids["a.jpg"])
	}
	if images.Confidence <= 0.9 || images.Confidence >= 1.0 {
		t.Fatalf("image cluster confidence = %f, want in (0.9, 1.0)", images.Confidence)
	}

	videos, ok := clusterContaining(sum.Clusters, ids["e.mp4"])
	if !ok {
		t.Fatal("no cluster contains e.mp4")
	}
	if videos.Kind != cluster.KindExact {
		t.Fatalf("video cluster kind = %q, want exact", videos.Kind)
	}
	if want := sortedIDs(ids, "e.mp4", "f.mp4"); !reflect.DeepEqual(videos.Members, want) {
		t.Fatalf("video cluster members = %v, want %v", videos.Members, want)
	}
	if videos.Confidence != 1.0 {
		t.Fatalf("video cluster confidence = %f, want 1.0", videos.Confidence)
	}
	if videos.SuggestedKeep != ids["e.mp4"] {
		t.Fatalf("video cluster keep = %d, want e.mp4 (%d)", videos.SuggestedKeep, ids["e.mp4"])
	}

	if _, ok := clusterContaining(sum.Clusters, ids["d.jpg"]); ok {
		t.Fatal("unrelated d.jpg landed in a cluster")
	}

	rec, err := st.GetScan(ctx, sum.ScanID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if rec == nil || rec.Status != store.ScanCompleted || rec.Counters != c {
		t.Fatalf("persisted scan record mismatch: %+v", rec)
	}
}

func TestRescanReusesFingerprintsAndSupersedesClusters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, st := newEngine(t, cfg)

	ctx := context.Background()
	if _, err := eng.Scan(ctx, engine.Options{}); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	sum, err := eng.Scan(ctx, engine.Options{})
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	c := sum.Counters
	if c.Seen != 6 || c.Reused != 6 || c.Fingerprinted != 0 || c.Degraded != 0 {
		t.Fatalf("rescan should reuse every fingerprint, got %+v", c)
	}
	if len(sum.Clusters) != 2 {
		t.Fatalf("rescan produced %d clusters, want 2", len(sum.Clusters))
	}

	active, err := st.ActiveClusters(ctx)
	if err != nil {
		t.Fatalf("ActiveClusters failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active clusters after rescan, got %d", len(active))
	}
	for _, sc := range active {
		if sc.ScanID != sum.ScanID {
			t.Fatalf("active cluster belongs to scan %q, want %q", sc.ScanID, sum.ScanID)
		}
	}
}

func TestFullRescanRecomputesAndPrunes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.MediaRoot(cfg)
	writeMediaSet(t, root)
	eng, st := newEngine(t, cfg)

	ctx := context.Background()
	if _, err := eng.Scan(ctx, engine.Options{}); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "d.jpg")); err != nil {
		t.Fatalf("remove d.jpg: %v", err)
	}

	sum, err := eng.Scan(ctx, engine.Options{Full: true})
	if err != nil {
		t.Fatalf("full rescan failed: %v", err)
	}
	c := sum.Counters
	if c.Seen != 5 || c.Fingerprinted != 5 || c.Reused != 0 {
		t.Fatalf("full rescan should recompute everything, got %+v", c)
	}
	if c.Degraded != 2 {
		t.Fatalf("full rescan degraded = %d, want 2", c.Degraded)
	}

	files, err := st.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("deleted file not pruned, %d files remain", len(files))
	}
	for _, f := range files {
		if filepath.Base(f.Path) == "d.jpg" {
			t.Fatal("d.jpg still present after prune")
		}
	}
	if len(sum.Clusters) != 2 {
		t.Fatalf("full rescan produced %d clusters, want 2", len(sum.Clusters))
	}
}

func TestScanExactOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExactOnly())
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, st := newEngine(t, cfg)

	ctx := context.Background()
	sum, err := eng.Scan(ctx, engine.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	c := sum.Counters
	if c.Seen != 6 || c.Fingerprinted != 6 {
		t.Fatalf("unexpected counters: %+v", c)
	}
	if c.Degraded != 0 {
		t.Fatalf("exact-only scans never attempt extraction, degraded = %d", c.Degraded)
	}
	if len(sum.Clusters) != 2 {
		t.Fatalf("expected 2 exact clusters, got %d", len(sum.Clusters))
	}

	ids := idsByName(t, st)
	for _, cl := range sum.Clusters {
		if cl.Kind != cluster.KindExact {
			t.Fatalf("exact-only scan produced %q cluster", cl.Kind)
		}
	}
	images, ok := clusterContaining(sum.Clusters, ids["a.jpg"])
	if !ok {
		t.Fatal("no cluster contains a.jpg")
	}
	if want := sortedIDs(ids, "a.jpg", "b.jpg"); !reflect.DeepEqual(images.Members, want) {
		t.Fatalf("exact-only cluster members = %v, want %v", images.Members, want)
	}
	if _, ok := clusterContaining(sum.Clusters, ids["c.jpg"]); ok {
		t.Fatal("resized copy joined a cluster despite exact-only mode")
	}
}

func TestScanListOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, st := newEngine(t, cfg)

	ctx := context.Background()
	sum, err := eng.Scan(ctx, engine.Options{ListOnly: true})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if sum.Mode != store.ModeListOnly || sum.Status != store.ScanCompleted {
		t.Fatalf("unexpected summary: mode=%q status=%q", sum.Mode, sum.Status)
	}
	if sum.Counters.Seen != 6 || sum.Counters.Fingerprinted != 0 {
		t.Fatalf("unexpected counters: %+v", sum.Counters)
	}

	files, err := st.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 6 {
		t.Fatalf("expected 6 enumerated files, got %d", len(files))
	}
	fps, err := st.ListFingerprints(ctx)
	if err != nil {
		t.Fatalf("ListFingerprints failed: %v", err)
	}
	if len(fps) != 0 {
		t.Fatalf("list-only scan fingerprinted %d files", len(fps))
	}
	clusters, err := st.ActiveClusters(ctx)
	if err != nil {
		t.Fatalf("ActiveClusters failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("list-only scan built %d clusters", len(clusters))
	}
}

func TestScanRecordsFailureForMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng, st := newEngine(t, cfg)
	if err := os.RemoveAll(testsupport.MediaRoot(cfg)); err != nil {
		t.Fatalf("remove root: %v", err)
	}

	ctx := context.Background()
	_, err := eng.Scan(ctx, engine.Options{})
	if err == nil {
		t.Fatal("expected scan against missing root to fail")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	rec, err := st.LatestScan(ctx)
	if err != nil {
		t.Fatalf("LatestScan failed: %v", err)
	}
	if rec == nil || rec.Status != store.ScanFailed {
		t.Fatalf("expected recorded failed scan, got %+v", rec)
	}
	if rec.Error == "" {
		t.Fatal("failed scan recorded no diagnostic")
	}
}

func TestScanRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, _ := newEngine(t, cfg)

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take scan lock for test: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	_, err = eng.Scan(context.Background(), engine.Options{})
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict error, got %v", err)
	}
}

func TestScanCancelledBeforeStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMediaSet(t, testsupport.MediaRoot(cfg))
	eng, st := newEngine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Scan(ctx, engine.Options{}); err == nil {
		t.Fatal("expected cancelled scan to fail")
	}

	rec, err := st.LatestScan(context.Background())
	if err != nil {
		t.Fatalf("LatestScan failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("cancelled-before-start scan left a record: %+v", rec)
	}
}
