package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediadup/internal/config"
	"mediadup/internal/deps"
	"mediadup/internal/engine"
	"mediadup/internal/logging"
	"mediadup/internal/preflight"
	"mediadup/internal/services"
	"mediadup/internal/store"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var full bool
	var listOnly bool
	var exactOnly bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan [dir ...]",
		Short: "Scan the configured roots and group duplicate files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				roots := make([]string, 0, len(args))
				for _, arg := range args {
					expanded, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve root %q: %w", arg, err)
					}
					roots = append(roots, expanded)
				}
				cfg.Scan.Roots = roots
			}
			if exactOnly {
				cfg.Match.ExactOnly = true
			}
			if err := cfg.ValidateRoots(); err != nil {
				return err
			}

			if err := runScanPreflight(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			st, err := openStoreForScan(cfg, full)
			if err != nil {
				return err
			}
			defer st.Close()

			eng, err := engine.New(cfg, st, logger)
			if err != nil {
				return err
			}

			summary, err := eng.Scan(scanCtx, engine.Options{Full: full, ListOnly: listOnly})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeScanSummaryJSON(cmd, summary)
			}
			printScanSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Refingerprint every file and prune entries for deleted files")
	cmd.Flags().BoolVar(&listOnly, "list-only", false, "Enumerate and classify files without fingerprinting")
	cmd.Flags().BoolVar(&exactOnly, "exact-only", false, "Group byte-identical files only, skipping perceptual analysis")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the scan summary as JSON")
	return cmd
}

// runScanPreflight stops the scan on filesystem problems but lets it
// proceed when external tools are missing: affected files degrade to
// digest-only participation instead of blocking the whole run.
func runScanPreflight(cfg *config.Config, errOut io.Writer) error {
	var failures []string
	for _, res := range preflight.RunAll(cfg) {
		if !res.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", res.Name, res.Detail))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight failed:\n  %s", strings.Join(failures, "\n  "))
	}

	for _, dep := range deps.MissingRequired(preflight.CheckSystemDeps(cfg)) {
		fmt.Fprintf(errOut, "warning: %s unavailable (%s); affected files will be indexed by digest only\n",
			dep.Name, dep.Detail)
	}
	return nil
}

// openStoreForScan opens the index, rebuilding it from scratch when a
// full scan meets a corrupt or incompatible database. Incremental scans
// never destroy state on their own.
func openStoreForScan(cfg *config.Config, full bool) (*store.Store, error) {
	st, err := store.Open(cfg)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, services.ErrIndexCorruption) {
		return nil, err
	}
	if !full {
		return nil, fmt.Errorf("%w (re-run with --full to rebuild the index)", err)
	}
	if rmErr := store.Remove(cfg); rmErr != nil {
		return nil, fmt.Errorf("rebuild index: %w", rmErr)
	}
	return store.Open(cfg)
}

func printScanSummary(out io.Writer, sum *engine.Summary) {
	fmt.Fprintf(out, "Scan %s completed in %s\n", sum.ScanID, sum.Duration.Round(time.Millisecond))

	rows := [][]string{
		{"Files seen", strconv.Itoa(sum.Counters.Seen)},
		{"Fingerprinted", strconv.Itoa(sum.Counters.Fingerprinted)},
		{"Reused", strconv.Itoa(sum.Counters.Reused)},
		{"Degraded", strconv.Itoa(sum.Counters.Degraded)},
		{"Skipped", strconv.Itoa(sum.Counters.Skipped)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	switch {
	case sum.Mode == store.ModeListOnly:
		fmt.Fprintln(out, "Classification only; no fingerprints were computed")
	case sum.Counters.Clusters > 0:
		fmt.Fprintf(out, "Found %d duplicate groups; run `mediadup report` for details\n", sum.Counters.Clusters)
	default:
		fmt.Fprintln(out, "No duplicates found")
	}
}

func writeScanSummaryJSON(cmd *cobra.Command, sum *engine.Summary) error {
	type payload struct {
		ScanID        string `json:"scanId"`
		Mode          string `json:"mode"`
		Status        string `json:"status"`
		DurationMs    int64  `json:"durationMs"`
		Seen          int    `json:"seen"`
		Fingerprinted int    `json:"fingerprinted"`
		Reused        int    `json:"reused"`
		Skipped       int    `json:"skipped"`
		Degraded      int    `json:"degraded"`
		Clusters      int    `json:"clusters"`
	}
	return writeJSON(cmd, payload{
		ScanID:        sum.ScanID,
		Mode:          sum.Mode,
		Status:        sum.Status,
		DurationMs:    sum.Duration.Milliseconds(),
		Seen:          sum.Counters.Seen,
		Fingerprinted: sum.Counters.Fingerprinted,
		Reused:        sum.Counters.Reused,
		Skipped:       sum.Counters.Skipped,
		Degraded:      sum.Counters.Degraded,
		Clusters:      sum.Counters.Clusters,
	})
}
