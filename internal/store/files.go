package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mediadup/internal/media"
)

// UpsertFile records a walked file, updating stat fields and the last-seen
// marker when the path is already known. Extraction details from previous
// scans survive the upsert.
func (s *Store) UpsertFile(ctx context.Context, ref media.FileRef) (media.File, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO files (path, kind, size_bytes, mtime_unix, first_seen_at, last_seen_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            kind = excluded.kind,
            size_bytes = excluded.size_bytes,
            mtime_unix = excluded.mtime_unix,
            last_seen_at = excluded.last_seen_at`,
		ref.Path, string(ref.Kind), ref.Size, ref.ModTime.Unix(), now, now)
	if err != nil {
		return media.File{}, classifyDB("upsert file", err)
	}

	return s.FileByPath(ctx, ref.Path)
}

// UpsertFileBatch records a batch of walked files in one transaction. It is
// the bulk form of UpsertFile for callers that do not need the row IDs back,
// such as enumeration-only scans.
func (s *Store) UpsertFileBatch(ctx context.Context, refs []media.FileRef) error {
	if len(refs) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyDB("begin file batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO files (path, kind, size_bytes, mtime_unix, first_seen_at, last_seen_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            kind = excluded.kind,
            size_bytes = excluded.size_bytes,
            mtime_unix = excluded.mtime_unix,
            last_seen_at = excluded.last_seen_at`)
	if err != nil {
		return classifyDB("prepare file batch", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		if _, err := stmt.ExecContext(ctx, ref.Path, string(ref.Kind), ref.Size, ref.ModTime.Unix(), now, now); err != nil {
			return classifyDB("upsert file batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classifyDB("commit file batch", err)
	}
	return nil
}

// UpdateFileDetails stores decode-time metadata for a file.
func (s *Store) UpdateFileDetails(ctx context.Context, fileID int64, details media.Details) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE files SET width = ?, height = ?, bitrate_kbps = ?, duration_ms = ?
        WHERE id = ?`,
		details.Width, details.Height, details.BitrateKbps, details.DurationMs, fileID)
	if err != nil {
		return classifyDB("update file details", err)
	}
	return nil
}

const fileColumns = "id, path, kind, size_bytes, mtime_unix, width, height, bitrate_kbps, duration_ms"

func scanFile(row interface{ Scan(...any) error }) (media.File, error) {
	var f media.File
	var kind string
	var mtime int64
	err := row.Scan(&f.ID, &f.Path, &kind, &f.Size, &mtime,
		&f.Details.Width, &f.Details.Height, &f.Details.BitrateKbps, &f.Details.DurationMs)
	if err != nil {
		return media.File{}, err
	}
	f.Kind = media.Kind(kind)
	f.ModTime = time.Unix(mtime, 0).UTC()
	return f, nil
}

// FileByPath looks up one file by its absolute path.
func (s *Store) FileByPath(ctx context.Context, path string) (media.File, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE path = ?", path)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return media.File{}, err
		}
		return media.File{}, classifyDB("file by path", err)
	}
	return f, nil
}

// ListFiles returns every known file keyed by ID.
func (s *Store) ListFiles(ctx context.Context) (map[int64]media.File, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+fileColumns+" FROM files")
	if err != nil {
		return nil, classifyDB("list files", err)
	}
	defer rows.Close()

	files := make(map[int64]media.File)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, classifyDB("scan file row", err)
		}
		files[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDB("iterate files", err)
	}
	return files, nil
}

// PruneFilesNotSeenSince removes files whose last walk predates cutoff,
// cascading to their fingerprints and cluster memberships. Used after full
// scans to drop entries for deleted media.
func (s *Store) PruneFilesNotSeenSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM files WHERE last_seen_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, classifyDB("prune files", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, classifyDB("prune files count", err)
	}
	return removed, nil
}
