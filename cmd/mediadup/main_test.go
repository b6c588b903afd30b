package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediadup/internal/config"
	"mediadup/internal/logging"
	"mediadup/internal/report"
	"mediadup/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaRoot  string
}

// setupCLITestEnv isolates HOME and the config env var so commands only
// ever see the per-test configuration file.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("MEDIADUP_CONFIG", "")
	t.Setenv("MEDIADUP_DB_PATH", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		mediaRoot:  testsupport.MediaRoot(cfg),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeDuplicatePair drops two byte-identical JPEGs into the media root.
func writeDuplicatePair(t *testing.T, root string) {
	t.Helper()
	a := filepath.Join(root, "a.jpg")
	testsupport.WriteImage(t, a, testsupport.GradientImage(320, 240))
	testsupport.CopyFile(t, a, filepath.Join(root, "b.jpg"))
}

func TestCLIScanAndReport(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDuplicatePair(t, env.mediaRoot)

	out, _, err := runCLI(t, env.configPath, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Files seen")
	requireContains(t, out, "Fingerprinted")
	requireContains(t, out, "Found 1 duplicate groups")

	out, _, err = runCLI(t, env.configPath, "report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "a.jpg")
	requireContains(t, out, "b.jpg")
	requireContains(t, out, "keep")
	requireContains(t, out, "duplicate")
	requireContains(t, out, "reclaimable")
	requireContains(t, out, "never removes files")
}

func TestCLIScanJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDuplicatePair(t, env.mediaRoot)

	out, _, err := runCLI(t, env.configPath, "scan", "--json")
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}

	var payload struct {
		ScanID   string `json:"scanId"`
		Status   string `json:"status"`
		Seen     int    `json:"seen"`
		Clusters int    `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse scan JSON: %v\noutput: %s", err, out)
	}
	if payload.ScanID == "" {
		t.Fatal("expected a scan id in JSON output")
	}
	if payload.Status != "completed" {
		t.Fatalf("unexpected status: %q", payload.Status)
	}
	if payload.Seen != 2 {
		t.Fatalf("expected 2 files seen, got %d", payload.Seen)
	}
	if payload.Clusters != 1 {
		t.Fatalf("expected 1 cluster, got %d", payload.Clusters)
	}
}

func TestCLIReportJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDuplicatePair(t, env.mediaRoot)

	if _, _, err := runCLI(t, env.configPath, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "report", "--json")
	if err != nil {
		t.Fatalf("report --json: %v", err)
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("parse report JSON: %v\noutput: %s", err, out)
	}
	if len(rep.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(rep.Clusters))
	}
	cl := rep.Clusters[0]
	if cl.Kind != "exact" {
		t.Fatalf("unexpected cluster kind: %q", cl.Kind)
	}
	if cl.Confidence != 1.0 {
		t.Fatalf("unexpected confidence: %v", cl.Confidence)
	}
	if filepath.Base(cl.SuggestedKeep.Path) != "a.jpg" {
		t.Fatalf("unexpected suggested keep: %q", cl.SuggestedKeep.Path)
	}
	if len(cl.Duplicates) != 1 || filepath.Base(cl.Duplicates[0].Path) != "b.jpg" {
		t.Fatalf("unexpected duplicates: %+v", cl.Duplicates)
	}
	if rep.DuplicateFiles != 1 {
		t.Fatalf("expected 1 redundant file, got %d", rep.DuplicateFiles)
	}
	if rep.ReclaimableBytes != cl.Duplicates[0].SizeBytes {
		t.Fatalf("reclaimable %d does not match duplicate size %d", rep.ReclaimableBytes, cl.Duplicates[0].SizeBytes)
	}
}

func TestCLIScanListOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDuplicatePair(t, env.mediaRoot)

	out, _, err := runCLI(t, env.configPath, "scan", "--list-only")
	if err != nil {
		t.Fatalf("scan --list-only: %v", err)
	}
	requireContains(t, out, "Classification only")
}

func TestCLIScanPositionalRoots(t *testing.T) {
	env := setupCLITestEnv(t)

	extraRoot := filepath.Join(t.TempDir(), "photos")
	if err := os.MkdirAll(extraRoot, 0o755); err != nil {
		t.Fatalf("mkdir extra root: %v", err)
	}
	writeDuplicatePair(t, extraRoot)

	out, _, err := runCLI(t, env.configPath, "scan", extraRoot)
	if err != nil {
		t.Fatalf("scan with positional root: %v", err)
	}
	requireContains(t, out, "Found 1 duplicate groups")
}

func TestCLIScanNoRootsFails(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Scan.Roots = nil
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, env.configPath, "scan")
	if err == nil {
		t.Fatal("expected scan to fail without configured roots")
	}
	if !strings.Contains(err.Error(), "scan.roots is empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIScanMissingRootFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.mediaRoot); err != nil {
		t.Fatalf("remove media root: %v", err)
	}

	_, _, err := runCLI(t, env.configPath, "scan")
	if err == nil {
		t.Fatal("expected scan to fail with a missing root")
	}
	if !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIReportEmptyIndex(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "No scans recorded yet")
}

func TestCLIStatus(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	writeDuplicatePair(t, env.mediaRoot)

	if _, _, err := runCLI(t, env.configPath, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Index ==")
	requireContains(t, out, "Database:")
	requireContains(t, out, "Last scan:")
	requireContains(t, out, "== External Tools ==")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "== Filesystem ==")
	requireContains(t, out, "Index directory")
}

func TestCLIStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	writeDuplicatePair(t, env.mediaRoot)

	if _, _, err := runCLI(t, env.configPath, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}

	var payload struct {
		Index struct {
			Files          int `json:"files"`
			Fingerprints   int `json:"fingerprints"`
			ActiveClusters int `json:"activeClusters"`
		} `json:"index"`
		Tools []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"tools"`
		Checks []struct {
			Name   string `json:"name"`
			Passed bool   `json:"passed"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse status JSON: %v\noutput: %s", err, out)
	}
	if payload.Index.Files != 2 {
		t.Fatalf("expected 2 files, got %d", payload.Index.Files)
	}
	if payload.Index.Fingerprints != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", payload.Index.Fingerprints)
	}
	if payload.Index.ActiveClusters != 1 {
		t.Fatalf("expected 1 active cluster, got %d", payload.Index.ActiveClusters)
	}
	if len(payload.Tools) == 0 {
		t.Fatal("expected tool statuses")
	}
	for _, tool := range payload.Tools {
		if !tool.Available {
			t.Fatalf("expected stubbed tool %s to be available", tool.Name)
		}
	}
	for _, check := range payload.Checks {
		if !check.Passed {
			t.Fatalf("expected check %s to pass", check.Name)
		}
	}
}

func TestCLIInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Hash.Algorithm = "md5"
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, env.configPath, "scan")
	if err == nil {
		t.Fatal("expected scan to reject an unknown hash algorithm")
	}
	if !strings.Contains(err.Error(), "hash.algorithm") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLILogs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No scan log yet")

	logPath := logging.FilePath(env.cfg)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "logs", "--lines", "2")
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("expected only trailing lines, got %q", out)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
}

func TestCLIVersion(t *testing.T) {
	out, _, err := runCLI(t, "", "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	requireContains(t, out, "mediadup version")

	out, _, err = runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "mediadup version")
}
