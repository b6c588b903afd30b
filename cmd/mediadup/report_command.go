package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediadup/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show duplicate groups and the space a cleanup would reclaim",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := report.Build(cmd.Context(), st)
			if err != nil {
				return err
			}
			if limit > 0 && len(rep.Clusters) > limit {
				rep.Clusters = rep.Clusters[:limit]
			}
			if jsonOut {
				return writeJSON(cmd, rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many groups, largest savings first (0 for all)")
	return cmd
}

func printReport(out io.Writer, rep *report.Report) {
	if len(rep.Clusters) == 0 {
		if rep.Scan == nil {
			fmt.Fprintln(out, "No scans recorded yet; run `mediadup scan` first")
			return
		}
		fmt.Fprintln(out, "No duplicate groups in the index")
		return
	}

	colorize := shouldColorize(out)
	fmt.Fprintf(out, "%d duplicate groups, %d redundant files, %s reclaimable\n",
		len(rep.Clusters), rep.DuplicateFiles, formatBytes(rep.ReclaimableBytes))

	for i, cl := range rep.Clusters {
		fmt.Fprintln(out)
		title := fmt.Sprintf("Group %d: %s, confidence %.2f, %s reclaimable",
			i+1, describeClusterKind(cl.Kind), cl.Confidence, formatBytes(cl.ReclaimableBytes))
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}

		rows := make([][]string, 0, len(cl.Duplicates)+1)
		rows = append(rows, clusterMemberRow("keep", cl.SuggestedKeep))
		for _, dup := range cl.Duplicates {
			rows = append(rows, clusterMemberRow("duplicate", dup))
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Role", "Path", "Size", "Details", "Modified"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	fmt.Fprintln(out, "Review before deleting anything; mediadup never removes files")
}

func describeClusterKind(kind string) string {
	return strings.ReplaceAll(kind, "_", " ")
}

func clusterMemberRow(role string, f report.FileView) []string {
	return []string{role, f.Path, formatBytes(f.SizeBytes), fileDetails(f), f.ModTime}
}

// fileDetails summarizes the dimensions or duration recorded for a file.
func fileDetails(f report.FileView) string {
	switch {
	case f.Width > 0 && f.Height > 0:
		return fmt.Sprintf("%dx%d", f.Width, f.Height)
	case f.DurationMs > 0:
		return (time.Duration(f.DurationMs) * time.Millisecond).Round(time.Second).String()
	default:
		return ""
	}
}
