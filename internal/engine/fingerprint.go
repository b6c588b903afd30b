package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mediadup/internal/fingerprint"
	"mediadup/internal/imagehash"
	"mediadup/internal/keypoint"
	"mediadup/internal/logging"
	"mediadup/internal/media"
	"mediadup/internal/scan"
	"mediadup/internal/services"
	"mediadup/internal/store"
)

// fileJob is one walked file headed for the worker pool. Reused jobs
// carry a still-fresh stored fingerprint and pass straight through.
type fileJob struct {
	file  media.File
	reuse bool
}

// fileResult is one file's outcome. A nil fp means the file was dropped
// from this scan; degraded means the digest stuck but perceptual
// extraction did not.
type fileResult struct {
	file     media.File
	fp       *fingerprint.Fingerprint
	details  *media.Details
	reused   bool
	degraded bool
	err      error
}

// runFingerprintPhase walks the roots and fingerprints files through the
// worker pool. Workers share nothing mutable: the producer owns the walk
// and the store reads, workers own per-file extraction, and this
// goroutine is the single collector persisting results and tallying
// counters.
func (e *Engine) runFingerprintPhase(ctx context.Context, full bool, counters *store.ScanCounters) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	walker := scan.NewWalker(e.cfg, e.logger)
	refs, walkErrs := walker.Walk(gctx)

	jobs := make(chan fileJob)
	results := make(chan fileResult)

	g.Go(func() error {
		defer close(jobs)
		return e.produceJobs(gctx, full, refs, walkErrs, jobs)
	})

	var workers sync.WaitGroup
	workerCount := e.cfg.Workers(runtime.NumCPU())
	workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			defer workers.Done()
			return e.fingerprintWorker(gctx, jobs, results)
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	var persistErr error
	for res := range results {
		counters.Seen++
		if persistErr != nil {
			continue
		}
		switch {
		case res.reused:
			counters.Reused++
		case res.fp == nil:
			counters.Skipped++
			e.logger.Warn("dropping file from scan",
				logging.String(logging.FieldPath, res.file.Path),
				logging.Error(res.err))
		default:
			if err := e.persistResult(ctx, res); err != nil {
				persistErr = err
				cancel()
				continue
			}
			counters.Fingerprinted++
			if res.degraded {
				counters.Degraded++
				e.logger.Warn("perceptual extraction failed, keeping digest only",
					logging.String(logging.FieldPath, res.file.Path),
					logging.Error(res.err))
			}
		}
	}

	waitErr := g.Wait()
	if persistErr != nil {
		return persistErr
	}
	return waitErr
}

// produceJobs upserts every walked file and decides whether its stored
// fingerprint is still fresh. Incremental scans reuse fingerprints whose
// size and mtime are unchanged; full scans recompute everything.
func (e *Engine) produceJobs(ctx context.Context, full bool, refs <-chan media.FileRef, walkErrs <-chan error, jobs chan<- fileJob) error {
	for ref := range refs {
		file, err := e.store.UpsertFile(ctx, ref)
		if err != nil {
			return err
		}

		job := fileJob{file: file}
		if !full {
			needs, err := e.store.NeedsRefingerprint(ctx, file.ID, file.Size, file.ModTime.Unix())
			if err != nil {
				return err
			}
			job.reuse = !needs
		}

		select {
		case jobs <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := <-walkErrs; err != nil {
		return err
	}
	return nil
}

// fingerprintWorker drains jobs until the channel closes, returning an
// error only for failures that must abort the whole scan.
func (e *Engine) fingerprintWorker(ctx context.Context, jobs <-chan fileJob, results chan<- fileResult) error {
	for job := range jobs {
		res := fileResult{file: job.file, reused: job.reuse}
		if !job.reuse {
			var err error
			res, err = e.fingerprintFile(ctx, job.file)
			if err != nil {
				return err
			}
		}
		select {
		case results <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// fingerprintFile computes one file's digest and, unless the scan is
// exact-only, its perceptual signals. The per-file budget covers all
// extraction for the file; expiry costs the perceptual data, never the
// scan.
func (e *Engine) fingerprintFile(ctx context.Context, file media.File) (fileResult, error) {
	res := fileResult{file: file}

	budget := time.Duration(e.cfg.Engine.ExtractionTimeoutSec) * time.Second
	fctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	fctx = services.WithFilePath(fctx, file.Path)

	digest, err := fingerprint.HashFile(fctx, file.Path, e.algo)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.err = err
		return res, nil
	}

	res.fp = &fingerprint.Fingerprint{
		FileID:        file.ID,
		Kind:          file.Kind,
		ContentDigest: digest,
		SizeBytes:     file.Size,
		ModTimeUnix:   file.ModTime.Unix(),
	}

	if e.cfg.Match.ExactOnly || file.Kind == media.KindOther {
		return res, nil
	}

	var extractErr error
	switch file.Kind {
	case media.KindImage:
		res.details, extractErr = e.extractImage(fctx, file, res.fp)
	case media.KindVideo:
		res.details, extractErr = e.extractVideo(fctx, file, res.fp)
	}
	if extractErr == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if fctx.Err() != nil && !errors.Is(extractErr, services.ErrExtractionTimeout) {
		extractErr = services.Wrap(services.ErrExtractionTimeout, "engine", "extract", file.Path, extractErr)
	}

	switch services.ClassifyFileError(extractErr) {
	case services.OutcomeDegrade:
		res.degraded = true
		res.err = extractErr
		return res, nil
	case services.OutcomeAbort:
		return res, extractErr
	default:
		res.fp = nil
		res.details = nil
		res.err = extractErr
		return res, nil
	}
}

// extractImage decodes the file and fills in the image signal set. The
// fingerprint is only touched once every signal is in hand, so a failure
// leaves it digest-only.
func (e *Engine) extractImage(ctx context.Context, file media.File, fp *fingerprint.Fingerprint) (*media.Details, error) {
	img, err := e.decoder.Decode(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	phash, err := imagehash.Perceptual(img)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "engine", "perceptual hash", file.Path, err)
	}

	fp.HasPerceptual = true
	fp.PerceptualHash = phash
	fp.DifferenceHash = imagehash.Difference(img)
	fp.Keypoints = keypoint.Extract(img)

	bounds := img.Bounds()
	return &media.Details{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// extractVideo samples keyframes and audio through the media tool.
func (e *Engine) extractVideo(ctx context.Context, file media.File, fp *fingerprint.Fingerprint) (*media.Details, error) {
	features, err := e.video.Extract(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	fp.HasPerceptual = len(features.FrameHashes) > 0
	fp.FrameHashes = features.FrameHashes
	fp.AudioFrames = features.AudioFrames

	return &media.Details{
		Width:       features.Width,
		Height:      features.Height,
		BitrateKbps: int(features.BitrateKbps),
		DurationMs:  features.DurationMs,
	}, nil
}

// persistResult writes one file's details and fingerprint. The
// fingerprint row is last so a failure part-way leaves the file absent
// from matching rather than half-recorded.
func (e *Engine) persistResult(ctx context.Context, res fileResult) error {
	if res.details != nil {
		if err := e.store.UpdateFileDetails(ctx, res.file.ID, *res.details); err != nil {
			return fmt.Errorf("persist details for %s: %w", res.file.Path, err)
		}
	}
	if err := e.store.SaveFingerprint(ctx, res.fp); err != nil {
		return fmt.Errorf("persist fingerprint for %s: %w", res.file.Path, err)
	}
	return nil
}

// runListOnly enumerates and classifies files without fingerprinting,
// writing file rows in batches.
func (e *Engine) runListOnly(ctx context.Context, counters *store.ScanCounters) error {
	walker := scan.NewWalker(e.cfg, e.logger)
	refs, walkErrs := walker.Walk(ctx)

	batch := make([]media.FileRef, 0, fileBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.store.UpsertFileBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for ref := range refs {
		counters.Seen++
		batch = append(batch, ref)
		if len(batch) >= fileBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := <-walkErrs; err != nil {
		return err
	}
	return flush()
}
