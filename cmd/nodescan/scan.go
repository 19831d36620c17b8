package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/nodescan/internal/config"
	"github.com/nao1215/nodescan/internal/crawler"
	"github.com/nao1215/nodescan/internal/database"
	"github.com/nao1215/nodescan/internal/linkcheck"
	nslog "github.com/nao1215/nodescan/internal/log"
	"github.com/nao1215/nodescan/internal/metrics"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/pipeline"
	"github.com/nao1215/nodescan/internal/progress"
	"github.com/nao1215/nodescan/internal/report"
	"github.com/spf13/cobra"
)

// errSiteUnreachable is returned when the pre-flight request fails.
var errSiteUnreachable = errors.New("site is not reachable")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <site>",
		Short: "Scan a range of node pages for broken links and accessibility problems",
		Long: `Scan checks the node pages <site>node/<id>/ for every id in [start, end).

For each page that exists it reports:
- Images without alt text
- Links without visible text
- Outbound links that answer 404 or cannot be reached

Filter modes:
  all            print every existing node to the console
  accessibility  write nodes with accessibility problems and no broken links
  broken         write nodes with broken links and no accessibility problems
  both           write nodes with any problem (default)

Reports are appended to <prefix>result_YYYYMMDD.txt in the report directory.
Progress is checkpointed after every node; an interrupted scan continues
with "nodescan resume".

Examples:
  # Scan nodes 1 to 4999 of a site
  nodescan scan https://uwaterloo.ca/civil-engineering --start 1 --end 5000

  # Split the range into 20 shards processed concurrently
  nodescan scan https://uwaterloo.ca/civil-engineering -s 1 -e 5000 --parallel -w 20

  # Check a single node and print everything found
  nodescan scan https://uwaterloo.ca/civil-engineering --node 42 --mode all`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().IntP("start", "s", 1, "First node id to scan")
	cmd.Flags().IntP("end", "e", 0, "One past the last node id to scan")
	cmd.Flags().IntP("node", "n", 0, "Check a single node id instead of a range")
	cmd.Flags().BoolP("parallel", "p", false, "Process the range in concurrent shards")
	cmd.MarkFlagsMutuallyExclusive("node", "end")
	addRunFlags(cmd)

	return cmd
}

// addRunFlags adds the flags shared by scan and resume.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", model.ModeBoth.String(),
		"Filter mode: all, accessibility, broken or both (or 0-3)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of shards of a parallel scan")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("output-prefix", "o", "",
		"Report file prefix (default: derived from the site path)")
	cmd.Flags().StringP("report-dir", "r", "",
		"Directory report files are written to (default: your Desktop)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .nodescan in current or home directory)")
	cmd.Flags().String("state-dir", config.XDGStateDir(),
		"Directory holding the scan checkpoint")
	cmd.Flags().String("list-dir", config.XDGConfigDir(),
		"Directory holding exclusion_list.json and social_media_domains.json")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")
	cmd.Flags().Bool("no-db", false,
		"Do not record the scan in the history database")
	cmd.Flags().String("metrics-addr", "",
		"Expose Prometheus metrics on this address during the scan (e.g. :9090)")
	cmd.Flags().String("log-file", "",
		"Also write logs to this file, rotated by size")
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if err := applyRangeFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// A single node check never touches the checkpoint of a paused range scan.
	var store pipeline.CheckpointStore = progress.NewFileStore(cfg.StateDir)
	if cmd.Flags().Changed("node") {
		store = progress.NewMemoryStore()
	}
	return executeScan(cmd, cfg, store)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config for site from the config file and the run flags.
// Flags that were set explicitly take precedence over the config file.
func buildConfig(cmd *cobra.Command, site string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.Site, cfg.OutputPrefix, err = model.NormalizeSite(site)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}
	if err := applySiteConfig(cfg, cfg.SiteConfigs.GetSiteConfig(cfg.Site)); err != nil {
		return nil, err
	}

	if flags.Changed("mode") {
		raw, err := flags.GetString("mode")
		if err != nil {
			return nil, err
		}
		if cfg.Mode, err = model.ParseFilterMode(raw); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-prefix") {
		if cfg.OutputPrefix, err = flags.GetString("output-prefix"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("report-dir") {
		if cfg.ReportDir, err = flags.GetString("report-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.StateDir, err = flags.GetString("state-dir"); err != nil {
		return nil, err
	}
	if cfg.ListDir, err = flags.GetString("list-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the config file into cfg.SiteConfigs.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// applySiteConfig copies the scalar settings of sc into cfg.
func applySiteConfig(cfg *config.Config, sc config.SiteConfig) error {
	if sc.OutputPrefix != "" {
		cfg.OutputPrefix = sc.OutputPrefix
	}
	if sc.Workers > 0 {
		cfg.Workers = sc.Workers
	}
	if sc.Mode != "" {
		mode, err := model.ParseFilterMode(sc.Mode)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		cfg.Mode = mode
	}
	if sc.Strategy != "" {
		strategy, err := config.ParseStrategy(sc.Strategy)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		cfg.Strategy = strategy
	}
	return nil
}

// applyRangeFlags sets the node range and strategy of a scan from its flags.
func applyRangeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("parallel") {
		parallel, err := flags.GetBool("parallel")
		if err != nil {
			return err
		}
		cfg.Strategy = model.StrategySequential
		if parallel {
			cfg.Strategy = model.StrategyParallel
		}
	}

	if flags.Changed("node") {
		node, err := flags.GetInt("node")
		if err != nil {
			return err
		}
		cfg.StartNode, cfg.EndNode = node, node+1
		cfg.Strategy = model.StrategySequential
		return nil
	}

	if !flags.Changed("end") {
		return errors.New("--end is required (or use --node to check a single node)")
	}
	start, err := flags.GetInt("start")
	if err != nil {
		return err
	}
	end, err := flags.GetInt("end")
	if err != nil {
		return err
	}
	cfg.StartNode, cfg.EndNode = start, end
	return nil
}

// executeScan sets up logging and signal handling and runs the scan.
func executeScan(cmd *cobra.Command, cfg *config.Config, store pipeline.CheckpointStore) error {
	logger, closer := nslog.NewLogger(nslog.Options{
		Writer:  cmd.ErrOrStderr(),
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, store, cmd.OutOrStdout(), logger)
}

// runScan wires the scan components for cfg and runs the scheduler.
func runScan(ctx context.Context, cfg *config.Config, store pipeline.CheckpointStore, out io.Writer, logger *slog.Logger) (err error) {
	r := cfg.ScanRange()
	client := linkcheck.NewClient(cfg.Timeout, cfg.UserAgent)
	prober := linkcheck.NewProber(client, linkcheck.WithLogger(logger))

	if !prober.Exists(ctx, cfg.Site+"node/1") {
		return fmt.Errorf("%w: HEAD %snode/1 did not return 200", errSiteUnreachable, cfg.Site)
	}

	analyzer, err := newAnalyzer(cfg, client, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithObserver(newConsoleObserver(out)),
	}

	var sink *report.FileSink
	if r.Mode.WritesReport() {
		sink = report.NewFileSink(cfg.ReportDir, r.OutputPrefix, time.Now())
		opts = append(opts, pipeline.WithSink(sink))
	}

	if cfg.SaveToDB {
		db, openErr := database.Open(cfg.DBDir, database.DefaultOptions())
		if openErr != nil {
			return fmt.Errorf("failed to open database: %w", openErr)
		}
		defer db.Close()

		rec, startErr := db.StartRun(ctx, r)
		if startErr != nil {
			return startErr
		}
		defer func() {
			// The scan context may already be cancelled here.
			if ferr := rec.Finish(context.Background(), err); ferr != nil {
				logger.Warn("failed to finish scan run", "run", rec.RunID(), "error", ferr)
			}
		}()
		opts = append(opts, pipeline.WithRecorder(rec))
		logger.Info("recording scan run", "run", rec.RunID(), "db", db.Path())
	}

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		opts = append(opts, pipeline.WithMetrics(collector))

		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := collector.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	fmt.Fprintf(out, "Scanning %s nodes [%d, %d) in %s mode (%s)...\n",
		r.Site, r.StartNode, r.EndNode, r.Mode, r.Strategy)
	startTime := time.Now()

	err = pipeline.NewScheduler(prober, analyzer, store, opts...).Run(ctx, r)
	switch {
	case errors.Is(err, pipeline.ErrCheckpointMismatch):
		return fmt.Errorf("%w (run \"nodescan resume\" to continue it or \"nodescan progress --clear\" to discard it)", err)
	case errors.Is(err, context.Canceled):
		if _, ok := store.(*progress.FileStore); ok {
			fmt.Fprintf(out, "\nScan interrupted. Run \"nodescan resume --mode %s\" to continue.\n", r.Mode)
		}
		return err
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "Scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	if sink != nil {
		if _, statErr := os.Stat(sink.Path()); statErr == nil {
			fmt.Fprintf(out, "Report written to %s\n", sink.Path())
		} else {
			fmt.Fprintln(out, "No problems found.")
		}
	}
	return nil
}

// newAnalyzer builds the page analyzer with the exclusion and social
// domain lists plus the site's config file additions.
func newAnalyzer(cfg *config.Config, client *http.Client, logger *slog.Logger) (*crawler.Analyzer, error) {
	exclusions, err := config.LoadExclusionSet(cfg.ExclusionListPath())
	if err != nil {
		return nil, err
	}
	social, err := config.LoadSocialDomainSet(cfg.SocialDomainListPath())
	if err != nil {
		return nil, err
	}
	if cfg.SiteConfigs != nil {
		sc := cfg.SiteConfigs.GetSiteConfig(cfg.Site)
		exclusions.Add(sc.Exclude...)
		social.Add(sc.SocialDomains...)
	}
	logger.Debug("lists loaded", "exclusions", exclusions.Len(), "socialDomains", social.Len())

	verifier := linkcheck.NewVerifier(client,
		linkcheck.WithConcurrency(cfg.VerifyConcurrency),
		linkcheck.WithLogger(logger),
	)
	return crawler.NewAnalyzer(client, verifier,
		crawler.WithExclusions(exclusions),
		crawler.WithSocialDomains(social),
		crawler.WithLogger(logger),
	), nil
}
