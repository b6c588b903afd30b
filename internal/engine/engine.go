package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediadup/internal/cluster"
	"mediadup/internal/codec"
	"mediadup/internal/config"
	"mediadup/internal/fingerprint"
	"mediadup/internal/logging"
	"mediadup/internal/match"
	"mediadup/internal/services"
	"mediadup/internal/services/ffmpeg"
	"mediadup/internal/store"
	"mediadup/internal/videofp"
)

// fileBatchSize bounds the rows written per transaction during
// enumeration-only scans.
const fileBatchSize = 1000

// Engine runs scans against one index: it walks the configured roots,
// fingerprints files through a bounded worker pool, generates candidate
// pairs, scores them, and replaces the stored cluster set.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	algo    fingerprint.Algorithm
	decoder *codec.Decoder
	video   *videofp.Extractor
	matcher *match.Matcher
}

// New constructs an engine bound to cfg and st.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Engine, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("engine requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	algo, err := fingerprint.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "hash algorithm", "", err)
	}

	tool := ffmpeg.NewClient(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	return &Engine{
		cfg:     cfg,
		store:   st,
		logger:  logging.NewComponentLogger(logger, "engine"),
		algo:    algo,
		decoder: codec.NewDecoder(""),
		video:   videofp.NewExtractor(tool, cfg.Video.KeyframeCount, logger),
		matcher: match.New(match.Config{
			ExactOnly:                  cfg.Match.ExactOnly,
			HammingThresholdImage:      cfg.Match.HammingThresholdImage,
			HammingThresholdVideoFrame: cfg.Match.HammingThresholdVideoFrame,
			KeypointMatchRatioMin:      cfg.Match.KeypointMatchRatioMin,
			AudioSimilarityMin:         cfg.Match.AudioSimilarityMin,
		}),
	}, nil
}

// Options selects the scan mode. The zero value is an incremental scan.
type Options struct {
	// Full refingerprints every file and prunes index entries for files
	// that no longer exist on disk.
	Full bool
	// ListOnly enumerates and classifies files without fingerprinting.
	ListOnly bool
}

func (o Options) mode() string {
	switch {
	case o.ListOnly:
		return store.ModeListOnly
	case o.Full:
		return store.ModeFull
	default:
		return store.ModeIncremental
	}
}

// Summary reports a finished scan.
type Summary struct {
	ScanID    string
	Mode      string
	Status    string
	StartedAt time.Time
	Duration  time.Duration
	Counters  store.ScanCounters
	Clusters  []cluster.Cluster
}

// Scan runs one scan to completion. Only one scan may run against an
// index at a time; concurrent callers fail fast instead of queueing.
// The outcome is recorded in the scans table even when the run fails or
// is cancelled, so nothing about an interrupted scan is silent.
func (e *Engine) Scan(ctx context.Context, opts Options) (*Summary, error) {
	mode := opts.mode()

	lock := flock.New(e.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another scan is already running against this index")
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			e.logger.Warn("failed to release scan lock", logging.Error(unlockErr))
		}
	}()

	scanID := uuid.NewString()
	ctx = services.WithScanID(ctx, scanID)
	logger := logging.WithContext(ctx, e.logger)

	startedAt := time.Now().UTC()
	if err := e.store.StartScan(ctx, scanID, mode); err != nil {
		return nil, err
	}
	logger.Info("scan started",
		logging.String("mode", mode),
		logging.Int("workers", e.cfg.Workers(runtime.NumCPU())))

	var counters store.ScanCounters
	var clusters []cluster.Cluster

	runErr := func() error {
		if opts.ListOnly {
			return e.runListOnly(ctx, &counters)
		}
		if err := e.runFingerprintPhase(ctx, opts.Full, &counters); err != nil {
			return err
		}
		if opts.Full {
			removed, err := e.store.PruneFilesNotSeenSince(ctx, startedAt)
			if err != nil {
				return err
			}
			if removed > 0 {
				logger.Info("pruned index entries for deleted files",
					logging.Int64("removed", removed))
			}
		}
		built, err := e.runMatchingPhase(ctx, scanID, &counters)
		if err != nil {
			return err
		}
		clusters = built
		return nil
	}()

	status := store.ScanCompleted
	errMsg := ""
	if runErr != nil {
		if mode == store.ModeIncremental && errors.Is(runErr, services.ErrIndexCorruption) {
			runErr = fmt.Errorf("%w (re-run with --full to rebuild the index)", runErr)
		}
		status = store.ScanFailed
		if errors.Is(runErr, context.Canceled) {
			status = store.ScanAborted
		}
		errMsg = runErr.Error()
	}

	// The scan outcome must land even when ctx is already cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if err := e.store.FinishScan(finishCtx, scanID, status, counters, errMsg); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			logger.Warn("failed to persist scan outcome", logging.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("scan did not complete",
			logging.String("status", status),
			logging.Error(runErr))
		return nil, runErr
	}

	logger.Info("scan completed",
		logging.Duration("elapsed", time.Since(startedAt)),
		logging.Int("seen", counters.Seen),
		logging.Int("fingerprinted", counters.Fingerprinted),
		logging.Int("reused", counters.Reused),
		logging.Int("skipped", counters.Skipped),
		logging.Int("degraded", counters.Degraded),
		logging.Int("clusters", counters.Clusters))

	return &Summary{
		ScanID:    scanID,
		Mode:      mode,
		Status:    status,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Counters:  counters,
		Clusters:  clusters,
	}, nil
}
