package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Scan lifecycle states.
const (
	ScanRunning   = "running"
	ScanCompleted = "completed"
	ScanAborted   = "aborted"
	ScanFailed    = "failed"
)

// Scan modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
	ModeListOnly    = "list_only"
)

// ScanCounters aggregates per-scan outcomes.
type ScanCounters struct {
	Seen          int
	Fingerprinted int
	Reused        int
	Skipped       int
	Degraded      int
	Clusters      int
}

// ScanRecord is one scan's persisted lifecycle.
type ScanRecord struct {
	ID         string
	Mode       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Counters   ScanCounters
	Error      string
}

// StartScan records a new running scan.
func (s *Store) StartScan(ctx context.Context, id, mode string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO scans (id, mode, status, started_at) VALUES (?, ?, ?, ?)",
		id, mode, ScanRunning, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return classifyDB("start scan", err)
	}
	return nil
}

// FinishScan closes out a scan with its final status and counters.
func (s *Store) FinishScan(ctx context.Context, id, status string, counters ScanCounters, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE scans SET
            status = ?, finished_at = ?,
            files_seen = ?, files_fingerprinted = ?, files_reused = ?,
            files_skipped = ?, files_degraded = ?, clusters_found = ?,
            error = ?
        WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano),
		counters.Seen, counters.Fingerprinted, counters.Reused,
		counters.Skipped, counters.Degraded, counters.Clusters,
		errMsg, id)
	if err != nil {
		return classifyDB("finish scan", err)
	}
	return nil
}

const scanColumns = `
    id, mode, status, started_at, finished_at,
    files_seen, files_fingerprinted, files_reused,
    files_skipped, files_degraded, clusters_found, error`

func scanScanRecord(row interface{ Scan(...any) error }) (*ScanRecord, error) {
	var rec ScanRecord
	var started string
	var finished sql.NullString
	err := row.Scan(&rec.ID, &rec.Mode, &rec.Status, &started, &finished,
		&rec.Counters.Seen, &rec.Counters.Fingerprinted, &rec.Counters.Reused,
		&rec.Counters.Skipped, &rec.Counters.Degraded, &rec.Counters.Clusters,
		&rec.Error)
	if err != nil {
		return nil, err
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	return &rec, nil
}

// GetScan loads one scan by ID, or nil when unknown.
func (s *Store) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+scanColumns+" FROM scans WHERE id = ?", id)
	rec, err := scanScanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyDB("get scan", err)
	}
	return rec, nil
}

// LatestScan returns the most recently started scan, or nil when the
// index has never been scanned into.
func (s *Store) LatestScan(ctx context.Context) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+scanColumns+" FROM scans ORDER BY started_at DESC LIMIT 1")
	rec, err := scanScanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyDB("latest scan", err)
	}
	return rec, nil
}
