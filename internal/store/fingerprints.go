package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mediadup/internal/fingerprint"
	"mediadup/internal/media"
	"mediadup/internal/services"
)

// SaveFingerprint stores a complete fingerprint in one statement, so a
// file's stored signals are always all-or-nothing. An existing row for the
// file is replaced.
func (s *Store) SaveFingerprint(ctx context.Context, fp *fingerprint.Fingerprint) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	hasPerceptual := 0
	if fp.HasPerceptual {
		hasPerceptual = 1
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO fingerprints (
            file_id, content_digest, size_bytes, mtime_unix,
            has_perceptual, perceptual_hash, difference_hash,
            keypoints, frame_hashes, audio_frames, computed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(file_id) DO UPDATE SET
            content_digest = excluded.content_digest,
            size_bytes = excluded.size_bytes,
            mtime_unix = excluded.mtime_unix,
            has_perceptual = excluded.has_perceptual,
            perceptual_hash = excluded.perceptual_hash,
            difference_hash = excluded.difference_hash,
            keypoints = excluded.keypoints,
            frame_hashes = excluded.frame_hashes,
            audio_frames = excluded.audio_frames,
            computed_at = excluded.computed_at`,
		fp.FileID, string(fp.ContentDigest), fp.SizeBytes, fp.ModTimeUnix,
		hasPerceptual, int64(fp.PerceptualHash), int64(fp.DifferenceHash),
		encodeKeypoints(fp.Keypoints), encodeFrameHashes(fp.FrameHashes),
		encodeAudioFrames(fp.AudioFrames), now)
	if err != nil {
		return classifyDB("save fingerprint", err)
	}
	return nil
}

// NeedsRefingerprint reports whether the stored fingerprint for fileID is
// missing or stale relative to the given stat values.
func (s *Store) NeedsRefingerprint(ctx context.Context, fileID int64, size int64, mtimeUnix int64) (bool, error) {
	var storedSize, storedMtime int64
	err := s.db.QueryRowContext(ctx,
		"SELECT size_bytes, mtime_unix FROM fingerprints WHERE file_id = ?", fileID,
	).Scan(&storedSize, &storedMtime)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, classifyDB("check fingerprint freshness", err)
	}
	return storedSize != size || storedMtime != mtimeUnix, nil
}

const fingerprintColumns = `
    fp.file_id, f.kind, fp.content_digest, fp.size_bytes, fp.mtime_unix,
    fp.has_perceptual, fp.perceptual_hash, fp.difference_hash,
    fp.keypoints, fp.frame_hashes, fp.audio_frames`

func scanFingerprint(row interface{ Scan(...any) error }) (*fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint
	var kind string
	var digest string
	var hasPerceptual int
	var phash, dhash int64
	var keypointBlob, frameBlob, audioBlob []byte

	err := row.Scan(&fp.FileID, &kind, &digest, &fp.SizeBytes, &fp.ModTimeUnix,
		&hasPerceptual, &phash, &dhash, &keypointBlob, &frameBlob, &audioBlob)
	if err != nil {
		return nil, err
	}

	fp.Kind = media.Kind(kind)
	fp.ContentDigest = fingerprint.Digest(digest)
	fp.HasPerceptual = hasPerceptual != 0
	fp.PerceptualHash = uint64(phash)
	fp.DifferenceHash = uint64(dhash)

	if fp.Keypoints, err = decodeKeypoints(keypointBlob); err != nil {
		return nil, services.Wrap(services.ErrIndexCorruption, "store", "decode keypoints", "", err)
	}
	if fp.FrameHashes, err = decodeFrameHashes(frameBlob); err != nil {
		return nil, services.Wrap(services.ErrIndexCorruption, "store", "decode frame hashes", "", err)
	}
	if fp.AudioFrames, err = decodeAudioFrames(audioBlob); err != nil {
		return nil, services.Wrap(services.ErrIndexCorruption, "store", "decode audio frames", "", err)
	}
	return &fp, nil
}

// GetFingerprint loads the stored fingerprint for fileID, or nil when none
// exists.
func (s *Store) GetFingerprint(ctx context.Context, fileID int64) (*fingerprint.Fingerprint, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+fingerprintColumns+" FROM fingerprints fp JOIN files f ON f.id = fp.file_id WHERE fp.file_id = ?",
		fileID)
	fp, err := scanFingerprint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, services.ErrIndexCorruption) {
			return nil, err
		}
		return nil, classifyDB("get fingerprint", err)
	}
	return fp, nil
}

// ListFingerprints loads every stored fingerprint ordered by file ID.
func (s *Store) ListFingerprints(ctx context.Context) ([]*fingerprint.Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT"+fingerprintColumns+" FROM fingerprints fp JOIN files f ON f.id = fp.file_id ORDER BY fp.file_id")
	if err != nil {
		return nil, classifyDB("list fingerprints", err)
	}
	defer rows.Close()

	var fingerprints []*fingerprint.Fingerprint
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			if errors.Is(err, services.ErrIndexCorruption) {
				return nil, err
			}
			return nil, classifyDB("scan fingerprint row", err)
		}
		fingerprints = append(fingerprints, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDB("iterate fingerprints", err)
	}
	return fingerprints, nil
}
