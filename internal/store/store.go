package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"mediadup/internal/config"
	"mediadup/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. A mismatch is treated as
// index corruption: the caller drops the index and re-fingerprints from
// scratch rather than guessing at conversions.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("index schema version mismatch")

// Store persists files, fingerprints, scans and clusters in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the index database at the configured path, applies
// pragmas and initializes the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, classifyDB("apply pragma", execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Remove deletes the index database and its WAL sidecars so the next
// Open starts from an empty schema. It touches nothing but mediadup's
// own files and is the recovery path for a corrupt or incompatible
// index. Callers must not hold an open Store on the same path.
func Remove(cfg *config.Config) error {
	dbPath := cfg.DatabasePath()
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove index file %s: %w", path, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return classifyDB("check schema version table", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return classifyDB("read schema version", err)
	}
	if version != schemaVersion {
		return services.Wrap(services.ErrIndexCorruption, "store", "open", s.path,
			fmt.Errorf("%w: index has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion))
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyDB("begin schema tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return classifyDB("create schema", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return classifyDB("record schema version", err)
	}
	if err := tx.Commit(); err != nil {
		return classifyDB("commit schema", err)
	}
	return nil
}

// classifyDB folds SQLite failures into the error taxonomy. Damaged
// database files surface as index corruption so the engine knows a full
// re-fingerprint is required; everything else wraps plainly.
func classifyDB(operation string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") {
		return services.Wrap(services.ErrIndexCorruption, "store", operation, "", err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
