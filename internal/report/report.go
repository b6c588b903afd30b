package report

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"mediadup/internal/config"
	"mediadup/internal/media"
	"mediadup/internal/services"
	"mediadup/internal/store"
)

// FromFile converts an indexed file to its report representation.
func FromFile(f media.File) FileView {
	return FileView{
		ID:          f.ID,
		Path:        f.Path,
		Kind:        string(f.Kind),
		SizeBytes:   f.Size,
		ModTime:     formatTime(f.ModTime),
		Width:       f.Width,
		Height:      f.Height,
		DurationMs:  f.DurationMs,
		BitrateKbps: f.BitrateKbps,
	}
}

// FromScan converts a persisted scan record to its report representation.
func FromScan(rec *store.ScanRecord) ScanView {
	if rec == nil {
		return ScanView{}
	}
	return ScanView{
		ID:            rec.ID,
		Mode:          rec.Mode,
		Status:        rec.Status,
		StartedAt:     formatTime(rec.StartedAt),
		FinishedAt:    formatTime(rec.FinishedAt),
		Seen:          rec.Counters.Seen,
		Fingerprinted: rec.Counters.Fingerprinted,
		Reused:        rec.Counters.Reused,
		Skipped:       rec.Counters.Skipped,
		Degraded:      rec.Counters.Degraded,
		Clusters:      rec.Counters.Clusters,
		Error:         rec.Error,
	}
}

// FromStoredCluster resolves a persisted cluster against the file table.
// Members other than the suggested keep count toward reclaimable space.
func FromStoredCluster(sc store.StoredCluster, files map[int64]media.File) (ClusterView, error) {
	view := ClusterView{
		ID:         sc.ID,
		ScanID:     sc.ScanID,
		Kind:       string(sc.Kind),
		Confidence: sc.Confidence,
		CreatedAt:  formatTime(sc.CreatedAt),
	}
	for _, id := range sc.Members {
		f, ok := files[id]
		if !ok {
			return ClusterView{}, services.Wrap(services.ErrIndexCorruption, "report", "assemble cluster", "",
				fmt.Errorf("cluster %s references unknown file %d", sc.ID, id))
		}
		fv := FromFile(f)
		if id == sc.SuggestedKeep {
			view.SuggestedKeep = fv
			continue
		}
		view.Duplicates = append(view.Duplicates, fv)
		view.ReclaimableBytes += f.Size
	}
	return view, nil
}

// Build assembles the duplicate report from the index: the latest scan,
// the active cluster generation, and the space a cleanup would reclaim.
// Clusters are ordered by reclaimable bytes descending so the largest
// wins come first.
func Build(ctx context.Context, st *store.Store) (*Report, error) {
	files, err := st.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := st.LatestScan(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := st.ActiveClusters(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		GeneratedAt: time.Now().UTC().Format(dateTimeFormat),
		TotalFiles:  len(files),
		Clusters:    make([]ClusterView, 0, len(stored)),
	}
	if latest != nil {
		view := FromScan(latest)
		rep.Scan = &view
	}
	for _, sc := range stored {
		view, err := FromStoredCluster(sc, files)
		if err != nil {
			return nil, err
		}
		rep.DuplicateFiles += len(view.Duplicates)
		rep.ReclaimableBytes += view.ReclaimableBytes
		rep.Clusters = append(rep.Clusters, view)
	}
	sort.Slice(rep.Clusters, func(i, j int) bool {
		if rep.Clusters[i].ReclaimableBytes != rep.Clusters[j].ReclaimableBytes {
			return rep.Clusters[i].ReclaimableBytes > rep.Clusters[j].ReclaimableBytes
		}
		return rep.Clusters[i].ID < rep.Clusters[j].ID
	})
	return rep, nil
}

// BuildStats assembles index-level statistics for the status command.
func BuildStats(ctx context.Context, st *store.Store, cfg *config.Config) (*IndexStats, error) {
	files, err := st.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	fps, err := st.ListFingerprints(ctx)
	if err != nil {
		return nil, err
	}
	clusters, err := st.ActiveClusters(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := st.LatestScan(ctx)
	if err != nil {
		return nil, err
	}

	stats := &IndexStats{
		DatabasePath:   cfg.DatabasePath(),
		Files:          len(files),
		Fingerprints:   len(fps),
		ActiveClusters: len(clusters),
	}
	if info, err := os.Stat(cfg.DatabasePath()); err == nil {
		stats.DatabaseBytes = info.Size()
	}
	if latest != nil {
		view := FromScan(latest)
		stats.LastScan = &view
	}
	return stats, nil
}

// formatTime converts a time to RFC3339 or returns empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
