package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediadup/internal/deps"
	"mediadup/internal/preflight"
	"mediadup/internal/report"
	"mediadup/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics, tool availability, and filesystem health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := report.BuildStats(cmd.Context(), st, cfg)
			if err != nil {
				return err
			}
			tools := preflight.CheckSystemDeps(cfg)
			checks := preflight.RunAll(cfg)

			if jsonOut {
				return writeStatusJSON(cmd, stats, tools, checks)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Index", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, stats.DatabasePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Size", statusInfo, formatBytes(stats.DatabaseBytes), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Files", statusInfo, strconv.Itoa(stats.Files), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Fingerprints", statusInfo, strconv.Itoa(stats.Fingerprints), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Duplicate groups", statusInfo, strconv.Itoa(stats.ActiveClusters), colorize))
			fmt.Fprintln(stdout, lastScanStatusLine(stats.LastScan, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("External Tools", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, tool := range tools {
				fmt.Fprintln(stdout, toolStatusLine(tool, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Filesystem", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, res := range checks {
				fmt.Fprintln(stdout, checkStatusLine(res, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func lastScanStatusLine(scan *report.ScanView, colorize bool) string {
	if scan == nil {
		return renderStatusLine("Last scan", statusInfo, "Never", colorize)
	}
	detail := fmt.Sprintf("%s %s at %s", scan.Mode, scan.Status, scan.StartedAt)
	switch scan.Status {
	case store.ScanCompleted:
		return renderStatusLine("Last scan", statusOK, detail, colorize)
	case store.ScanFailed:
		if scan.Error != "" {
			detail += ": " + scan.Error
		}
		return renderStatusLine("Last scan", statusError, detail, colorize)
	case store.ScanAborted:
		return renderStatusLine("Last scan", statusWarn, detail, colorize)
	default:
		return renderStatusLine("Last scan", statusInfo, detail, colorize)
	}
}

func toolStatusLine(status deps.Status, colorize bool) string {
	if status.Available {
		return renderStatusLine(status.Name, statusOK, status.Command, colorize)
	}
	if status.Optional {
		return renderStatusLine(status.Name, statusInfo, status.Detail, colorize)
	}
	detail := status.Detail + "; affected files degrade to digest-only matching"
	return renderStatusLine(status.Name, statusWarn, detail, colorize)
}

func checkStatusLine(res preflight.Result, colorize bool) string {
	if res.Passed {
		return renderStatusLine(res.Name, statusOK, res.Detail, colorize)
	}
	return renderStatusLine(res.Name, statusError, res.Detail, colorize)
}

func writeStatusJSON(cmd *cobra.Command, stats *report.IndexStats, tools []deps.Status, checks []preflight.Result) error {
	type toolItem struct {
		Name      string `json:"name"`
		Command   string `json:"command"`
		Available bool   `json:"available"`
		Optional  bool   `json:"optional"`
		Detail    string `json:"detail,omitempty"`
	}
	type checkItem struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
		Detail string `json:"detail,omitempty"`
	}
	payload := struct {
		Index  *report.IndexStats `json:"index"`
		Tools  []toolItem         `json:"tools"`
		Checks []checkItem        `json:"checks"`
	}{Index: stats}
	for _, tool := range tools {
		payload.Tools = append(payload.Tools, toolItem{
			Name:      tool.Name,
			Command:   tool.Command,
			Available: tool.Available,
			Optional:  tool.Optional,
			Detail:    tool.Detail,
		})
	}
	for _, res := range checks {
		payload.Checks = append(payload.Checks, checkItem{
			Name:   res.Name,
			Passed: res.Passed,
			Detail: res.Detail,
		})
	}
	return writeJSON(cmd, payload)
}
