package store

import (
	"context"
	"time"

	"mediadup/internal/cluster"
)

// StoredCluster is a persisted duplicate group together with the scan
// that produced it.
type StoredCluster struct {
	cluster.Cluster
	ScanID     string
	CreatedAt  time.Time
	Superseded bool
}

// ReplaceClusters supersedes all currently active clusters and stores
// the given set as the new active generation. The swap happens in one
// transaction so readers never observe a mix of old and new groups.
func (s *Store) ReplaceClusters(ctx context.Context, scanID string, clusters []cluster.Cluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyDB("replace clusters", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE clusters SET superseded = 1 WHERE superseded = 0"); err != nil {
		return classifyDB("supersede clusters", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range clusters {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO clusters (id, scan_id, kind, confidence, suggested_keep, superseded, created_at)
            VALUES (?, ?, ?, ?, ?, 0, ?)`,
			c.ID, scanID, string(c.Kind), c.Confidence, c.SuggestedKeep, now)
		if err != nil {
			return classifyDB("insert cluster", err)
		}
		for _, fileID := range c.Members {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO cluster_members (cluster_id, file_id) VALUES (?, ?)",
				c.ID, fileID)
			if err != nil {
				return classifyDB("insert cluster member", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyDB("commit clusters", err)
	}
	return nil
}

// ActiveClusters returns the non-superseded clusters with members
// loaded, ordered by cluster ID.
func (s *Store) ActiveClusters(ctx context.Context) ([]StoredCluster, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, scan_id, kind, confidence, suggested_keep, created_at
        FROM clusters WHERE superseded = 0 ORDER BY id`)
	if err != nil {
		return nil, classifyDB("list clusters", err)
	}
	defer rows.Close()

	var out []StoredCluster
	for rows.Next() {
		var sc StoredCluster
		var kind, created string
		if err := rows.Scan(&sc.ID, &sc.ScanID, &kind, &sc.Confidence, &sc.SuggestedKeep, &created); err != nil {
			return nil, classifyDB("scan cluster", err)
		}
		sc.Kind = cluster.Kind(kind)
		sc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDB("list clusters", err)
	}

	for i := range out {
		members, err := s.clusterMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (s *Store) clusterMembers(ctx context.Context, clusterID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file_id FROM cluster_members WHERE cluster_id = ? ORDER BY file_id", clusterID)
	if err != nil {
		return nil, classifyDB("list cluster members", err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classifyDB("scan cluster member", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDB("list cluster members", err)
	}
	return members, nil
}
