package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/nodescan/internal/config"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/progress"
	"github.com/nao1215/nodescan/internal/report"
)

const pageWithProblems = `<html><body>
<img src="/files/logo.png">
<a href="/missing">Missing page</a>
<a href="/ok">Fine</a>
<a href="mailto:info@example.com">Mail</a>
</body></html>`

const cleanPage = `<html><body><img src="/files/a.png" alt="A"><a href="/ok">Fine</a></body></html>`

// testSite serves a small site with nodes 1 and 3 under /dept/.
type testSite struct {
	*httptest.Server
	mu   sync.Mutex
	gets map[string]int
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	s := &testSite{gets: map[string]int{}}
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				s.mu.Lock()
				s.gets[r.URL.Path]++
				s.mu.Unlock()
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.Handle("/dept/node/1/", page(pageWithProblems))
	mux.Handle("/dept/node/3/", page(cleanPage))
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *testSite) getCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

// testDirs isolates every directory a command touches.
type testDirs struct {
	state, lists, db, reports string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	root := t.TempDir()
	return testDirs{
		state:   filepath.Join(root, "state"),
		lists:   filepath.Join(root, "lists"),
		db:      filepath.Join(root, "db"),
		reports: filepath.Join(root, "reports"),
	}
}

func (d testDirs) flags() []string {
	return []string{
		"--state-dir", d.state,
		"--list-dir", d.lists,
		"--db-dir", d.db,
		"--report-dir", d.reports,
		"--config", filepath.Join(d.lists, "missing-ok.yaml"),
	}
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeEmptyConfig creates the config file referenced by testDirs.flags.
func writeEmptyConfig(t *testing.T, d testDirs) {
	t.Helper()
	if err := os.MkdirAll(d.lists, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d.lists, "missing-ok.yaml"), []byte("sites: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
}

// TestScanCmdEndToEnd tests a sequential scan that writes a report and records history.
func TestScanCmdEndToEnd(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dirs := newTestDirs(t)
	writeEmptyConfig(t, dirs)

	args := append([]string{"scan", site.URL + "/dept", "--start", "1", "--end", "4"}, dirs.flags()...)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("scan failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Working on node 1", "Working on node 3", "Scan completed", "Report written to"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got\n%s", want, out)
		}
	}

	reportPath := filepath.Join(dirs.reports, report.FileName("dept_", time.Now()))
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	want := "base_url: " + site.URL + "/dept/node/1/\n" +
		"    acc_problem:\n" +
		"        1. " + site.URL + "/files/logo.png\n" +
		"    broken_urls:\n" +
		"        1. " + site.URL + "/missing\n\n"
	if string(data) != want {
		t.Errorf("report =\n%q\nexpected\n%q", data, want)
	}

	if _, err := os.Stat(filepath.Join(dirs.state, progress.TextFileName)); !os.IsNotExist(err) {
		t.Error("checkpoint should be cleared after a completed scan")
	}

	out, err = runCLI(t, "history", "--db-dir", dirs.db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, site.URL+"/dept/") || !strings.Contains(out, "completed") {
		t.Errorf("unexpected history output\n%s", out)
	}

	out, err = runCLI(t, "history", "--db-dir", dirs.db, "--run", "1", "--csv", "-")
	if err != nil {
		t.Fatalf("history export failed: %v", err)
	}
	if !strings.Contains(out, "run_id,node_id,base_url,kind,url") ||
		!strings.Contains(out, "1,1,"+site.URL+"/dept/node/1/,broken,"+site.URL+"/missing") {
		t.Errorf("unexpected CSV export\n%s", out)
	}

	mdPath := filepath.Join(t.TempDir(), "out", "run.md")
	if _, err := runCLI(t, "history", "--db-dir", dirs.db, "--run", "1", "--markdown", mdPath); err != nil {
		t.Fatalf("markdown export failed: %v", err)
	}
	if md, err := os.ReadFile(mdPath); err != nil || !strings.Contains(string(md), site.URL+"/missing") {
		t.Errorf("unexpected markdown export %q, %v", md, err)
	}
}

// TestScanCmdSingleNode tests --node in mode all.
func TestScanCmdSingleNode(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dirs := newTestDirs(t)
	writeEmptyConfig(t, dirs)

	args := append([]string{"scan", site.URL + "/dept/", "--node", "1", "--mode", "all", "--no-db"}, dirs.flags()...)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("scan failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Broken URLs: "+site.URL+"/missing") {
		t.Errorf("expected broken link in output\n%s", out)
	}
	if !strings.Contains(out, "Accessibility Problems: "+site.URL+"/files/logo.png") {
		t.Errorf("expected accessibility problem in output\n%s", out)
	}
	if _, err := os.Stat(dirs.state); !os.IsNotExist(err) {
		t.Error("single node checks must not write a checkpoint")
	}
	if _, err := os.Stat(dirs.db); !os.IsNotExist(err) {
		t.Error("--no-db must not create the history database")
	}
}

// TestScanCmdParallel tests a parallel scan with exclusions from the list directory.
func TestScanCmdParallel(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dirs := newTestDirs(t)
	writeEmptyConfig(t, dirs)

	if _, err := config.AddToList(filepath.Join(dirs.lists, config.ExclusionListFile), nil,
		site.URL+"/files/logo.png"); err != nil {
		t.Fatal(err)
	}

	args := append([]string{"scan", site.URL + "/dept", "-s", "0", "-e", "10", "--parallel", "-w", "3",
		"--mode", "accessibility", "--no-db"}, dirs.flags()...)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("scan failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "finish 10") {
		t.Errorf("expected finish line, got\n%s", out)
	}
	if !strings.Contains(out, "No problems found.") {
		t.Errorf("excluded image should leave nothing to report\n%s", out)
	}
	if site.getCount("/dept/node/1/") != 1 || site.getCount("/dept/node/3/") != 1 {
		t.Errorf("each existing node should be fetched once: %v", site.gets)
	}
}

// TestScanCmdValidation tests that invalid input never starts a scan.
func TestScanCmdValidation(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid mode", []string{site.URL + "/dept", "--end", "5", "--mode", "7"}, "invalid mode"},
		{"empty range", []string{site.URL + "/dept", "--start", "5", "--end", "5"}, "invalid node range"},
		{"missing end", []string{site.URL + "/dept"}, "--end is required"},
		{"invalid site", []string{"ftp://example.com/x", "--end", "5"}, "invalid site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dirs := newTestDirs(t)
			writeEmptyConfig(t, dirs)
			args := append(append([]string{"scan"}, tt.args...), dirs.flags()...)
			_, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
			if site.getCount("/dept/node/1/") != 0 {
				t.Error("no page should be fetched")
			}
		})
	}
}

// TestScanCmdUnreachableSite tests the pre-flight check.
func TestScanCmdUnreachableSite(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dirs := newTestDirs(t)
	writeEmptyConfig(t, dirs)

	args := append([]string{"scan", site.URL + "/other", "--end", "3"}, dirs.flags()...)
	_, err := runCLI(t, args...)
	if !errors.Is(err, errSiteUnreachable) {
		t.Errorf("expected errSiteUnreachable, got %v", err)
	}
}

// TestResumeCmd tests continuing a sequential scan from its checkpoint.
func TestResumeCmd(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dirs := newTestDirs(t)
	writeEmptyConfig(t, dirs)

	r := model.ScanRange{Site: site.URL + "/dept/", StartNode: 1, EndNode: 4, Strategy: model.StrategySequential}
	cp := model.NewSequentialCheckpoint(r)
	cp.LastCompletedNode = 2
	store := progress.NewFileStore(dirs.state)
	if err := store.Save(cp); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "progress", "--state-dir", dirs.state)
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if !strings.Contains(out, site.URL+"/dept/") || !strings.Contains(out, "[1, 4)") {
		t.Errorf("unexpected progress output\n%s", out)
	}

	// A different range is refused while the checkpoint exists.
	args := append([]string{"scan", site.URL + "/dept", "--start", "1", "--end", "3", "--no-db"}, dirs.flags()...)
	if _, err := runCLI(t, args...); err == nil || !strings.Contains(err.Error(), "nodescan resume") {
		t.Errorf("expected checkpoint mismatch hint, got %v", err)
	}

	args = append([]string{"resume", "--mode", "both", "--no-db"}, dirs.flags()...)
	out, err = runCLI(t, args...)
	if err != nil {
		t.Fatalf("resume failed: %v\n%s", err, out)
	}
	if site.getCount("/dept/node/1/") != 0 {
		t.Error("completed node 1 should not be fetched again")
	}
	if site.getCount("/dept/node/3/") != 1 {
		t.Error("node 3 should be processed")
	}

	if _, err := runCLI(t, "resume", "--state-dir", dirs.state); !errors.Is(err, errNoCheckpoint) {
		t.Errorf("expected errNoCheckpoint after completion, got %v", err)
	}
}

// TestProgressCmdClear tests discarding a checkpoint.
func TestProgressCmdClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := model.ScanRange{Site: "https://example.com/", StartNode: 0, EndNode: 16, Strategy: model.StrategyParallel}
	cp := model.NewBitmapCheckpoint(r)
	cp.MarkDone(3)
	if err := progress.NewFileStore(dir).Save(cp); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "progress", "--state-dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "parallel") || !strings.Contains(out, "15") {
		t.Errorf("unexpected progress output\n%s", out)
	}

	if _, err := runCLI(t, "progress", "--clear", "--state-dir", dir); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "progress", "--state-dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No scan in progress.") {
		t.Errorf("expected empty progress, got\n%s", out)
	}
}

// TestBuildConfigPrecedence tests that flags override the config file.
func TestBuildConfigPrecedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "nodescan.yaml")
	content := `defaults:
  mode: broken
  workers: 4
sites:
  https://example.com/dept:
    outputPrefix: custom_
    strategy: parallel
    workers: 8
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("config file values apply", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, "https://example.com/dept")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Site != "https://example.com/dept/" {
			t.Errorf("Site = %q", cfg.Site)
		}
		if cfg.OutputPrefix != "custom_" || cfg.Workers != 8 ||
			cfg.Mode != model.ModeBrokenOnly || cfg.Strategy != model.StrategyParallel {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath, "-m", "acc", "-w", "2", "-o", "flag_", "--no-db"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, "https://example.com/dept")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.OutputPrefix != "flag_" || cfg.Workers != 2 || cfg.Mode != model.ModeAccessibilityOnly || cfg.SaveToDB {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("derived prefix without config entry", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, "https://uwaterloo.ca/civil-engineering")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.OutputPrefix != "civil_engineering_" || cfg.Workers != 4 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(dir, "nope.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, "https://example.com/dept"); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

// TestApplyRangeFlags tests range and strategy selection.
func TestApplyRangeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		start, end int
		strategy   model.Strategy
	}{
		{"range", []string{"-s", "10", "-e", "20"}, 10, 20, model.StrategySequential},
		{"parallel", []string{"-e", "20", "-p"}, 1, 20, model.StrategyParallel},
		{"single node", []string{"-n", "42", "-p"}, 42, 43, model.StrategySequential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := NewScanCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg := config.NewConfig()
			if err := applyRangeFlags(cmd, cfg); err != nil {
				t.Fatal(err)
			}
			if cfg.StartNode != tt.start || cfg.EndNode != tt.end || cfg.Strategy != tt.strategy {
				t.Errorf("got [%d, %d) %v", cfg.StartNode, cfg.EndNode, cfg.Strategy)
			}
		})
	}
}
