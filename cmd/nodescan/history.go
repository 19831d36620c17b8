package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/nodescan/internal/config"
	"github.com/nao1215/nodescan/internal/database"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/report"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "Show recorded scan runs",
		Long: `History lists the scan runs recorded in the history database.

With --run the findings of one run are printed, or exported with
--markdown and --csv. Export paths of "-" write to standard output;
both exports may be given at once.

Examples:
  # List all runs
  nodescan history

  # List the runs of one site
  nodescan history https://uwaterloo.ca/civil-engineering

  # List the recorded sites
  nodescan history --list-sites

  # Export run 12 as Markdown and CSV
  nodescan history --run 12 --markdown run12.md --csv run12.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("list-sites", false, "List the sites with recorded runs")
	cmd.Flags().Int64("run", 0, "Show the findings of the run with this id")
	cmd.Flags().String("markdown", "", "Export the run as Markdown to this path (- for stdout)")
	cmd.Flags().String("csv", "", "Export the run as CSV to this path (- for stdout)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the scan history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	listSites, err := flags.GetBool("list-sites")
	if err != nil {
		return err
	}
	runID, err := flags.GetInt64("run")
	if err != nil {
		return err
	}
	markdownPath, err := flags.GetString("markdown")
	if err != nil {
		return err
	}
	csvPath, err := flags.GetString("csv")
	if err != nil {
		return err
	}
	if (markdownPath != "" || csvPath != "") && runID == 0 {
		return errors.New("--markdown and --csv require --run")
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no scan history found in %s: %w", dbDir, err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case listSites:
		sites, err := db.ListSites(ctx)
		if err != nil {
			return err
		}
		for _, site := range sites {
			fmt.Fprintln(out, site)
		}
		return nil

	case runID != 0:
		run, err := db.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if markdownPath == "" && csvPath == "" {
			printRun(out, run)
			return nil
		}
		return exportRun(out, run, markdownPath, csvPath)
	}

	var site string
	if len(args) == 1 {
		if site, _, err = model.NormalizeSite(args[0]); err != nil {
			return err
		}
	}
	runs, err := db.ListRuns(ctx, site)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No scan runs recorded.")
		return nil
	}

	tbl := table.New("ID", "Site", "Range", "Mode", "Strategy", "Started", "Status").WithWriter(out)
	for _, run := range runs {
		tbl.AddRow(run.ID, run.Site, fmt.Sprintf("[%d, %d)", run.StartNode, run.EndNode),
			run.Mode, run.Strategy, run.StartedAt.Local().Format(time.DateTime), run.Status)
	}
	tbl.Print()
	return nil
}

// printRun prints the findings of run as a table.
func printRun(out io.Writer, run *model.ScanRun) {
	acc, broken := run.IssueCounts()
	fmt.Fprintf(out, "Run %d: %s [%d, %d) %s, %s\n", run.ID, run.Site, run.StartNode, run.EndNode, run.Mode, run.Status)
	fmt.Fprintf(out, "%d nodes recorded, %d accessibility problems, %d broken links\n\n", len(run.Outcomes), acc, broken)

	tbl := table.New("Node", "Kind", "URL").WithWriter(out)
	for _, o := range run.Outcomes {
		for _, issue := range o.Issues {
			tbl.AddRow(o.NodeID, issue.Kind, issue.URL)
		}
	}
	tbl.Print()
}

// exportRun writes run to every requested export.
func exportRun(out io.Writer, run *model.ScanRun, markdownPath, csvPath string) error {
	var (
		writers []report.Writer
		files   []*os.File
	)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	open := func(path string) (io.Writer, error) {
		if path == "-" {
			return out, nil
		}
		f, err := createReportFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		return f, nil
	}

	if markdownPath != "" {
		w, err := open(markdownPath)
		if err != nil {
			return err
		}
		writers = append(writers, report.NewMarkdownWriter(w))
	}
	if csvPath != "" {
		w, err := open(csvPath)
		if err != nil {
			return err
		}
		writers = append(writers, report.NewCSVWriter(w))
	}

	if err := report.NewMultiWriter(writers...).WriteRun(run); err != nil {
		return fmt.Errorf("failed to export run %d: %w", run.ID, err)
	}
	for _, f := range files {
		if err := f.Close(); err != nil {
			return err
		}
	}
	files = nil
	return nil
}

// createReportFile creates path and its parent directories.
// Reports are written with owner-only permissions.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
