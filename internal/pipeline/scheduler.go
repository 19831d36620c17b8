package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/nodescan/internal/crawler"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/report"
)

// NodeProber decides whether a node page exists.
type NodeProber interface {
	Exists(ctx context.Context, pageURL string) bool
}

// PageAnalyzer finds the issues of an existing node page.
type PageAnalyzer interface {
	Analyze(ctx context.Context, pageURL string) (crawler.Result, error)
}

// CheckpointStore persists scan progress.
type CheckpointStore interface {
	Load() (model.Checkpoint, error)
	Save(cp model.Checkpoint) error
	Clear() error
}

// ReportSink receives report blocks.
type ReportSink interface {
	Append(block report.Block) error
	SortByNode() error
}

// Recorder stores the outcome of every existing node, for example in the
// scan history. Recording failures are logged and do not stop the scan.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome model.NodeOutcome) error
}

// Metrics observes processed nodes and progress.
type Metrics interface {
	ObserveNode(outcome model.NodeOutcome)
	SetProgress(completed, total int)
}

// Scheduler runs scans over node ranges.
type Scheduler struct {
	prober   NodeProber
	analyzer PageAnalyzer
	store    CheckpointStore
	sink     ReportSink
	recorder Recorder
	metrics  Metrics
	notify   *notifier
	workers  int
	logger   *slog.Logger
}

// DefaultWorkers is the number of shards of a parallel scan.
const DefaultWorkers = 10

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSink sets where reporting modes append their blocks.
func WithSink(sink ReportSink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = recorder
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithObserver sets the event callbacks.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.notify = &notifier{observer: o}
	}
}

// WithWorkers sets the shard count of parallel scans.
// Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(prober NodeProber, analyzer PageAnalyzer, store CheckpointStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		prober:   prober,
		analyzer: analyzer,
		store:    store,
		notify:   &notifier{},
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run scans r. A matching checkpoint resumes the scan where it stopped.
// On success the checkpoint is cleared; on error or cancellation it is kept.
func (s *Scheduler) Run(ctx context.Context, r model.ScanRange) error {
	err := s.run(ctx, r)
	s.notify.done(err == nil)
	return err
}

func (s *Scheduler) run(ctx context.Context, r model.ScanRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Mode.WritesReport() && s.sink == nil {
		return ErrNoSink
	}

	cp, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp != nil && !cp.Matches(r) {
		site, start, end := cp.Range()
		return fmt.Errorf("%w: %s scan of %s [%d, %d)", ErrCheckpointMismatch, cp.Strategy(), site, start, end)
	}

	s.logger.Info("scan started",
		"site", r.Site,
		"start", r.StartNode,
		"end", r.EndNode,
		"mode", r.Mode.String(),
		"strategy", r.Strategy.String(),
		"resumed", cp != nil,
	)

	switch r.Strategy {
	case model.StrategyParallel:
		bitmap, _ := cp.(*model.BitmapCheckpoint)
		err = s.runParallel(ctx, r, bitmap)
	default:
		seq, _ := cp.(*model.SequentialCheckpoint)
		err = s.runSequential(ctx, r, seq)
	}
	if err != nil {
		s.logger.Warn("scan stopped", "site", r.Site, "error", err)
		return err
	}

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	s.logger.Info("scan finished", "site", r.Site)
	return nil
}

// processNode probes, analyzes and emits one node. It returns the context
// error if the scan was cancelled while the node was in flight; the node
// must then not be marked complete.
func (s *Scheduler) processNode(ctx context.Context, r model.ScanRange, id int) error {
	baseURL := r.NodeURL(id)
	s.notify.log(fmt.Sprintf("Working on node %d", id))

	outcome := model.NodeOutcome{NodeID: id, BaseURL: baseURL}
	outcome.Exists = s.prober.Exists(ctx, baseURL)
	if err := ctx.Err(); err != nil {
		return err
	}

	if outcome.Exists {
		result, err := s.analyzer.Analyze(ctx, baseURL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			outcome.FetchErr = err
			s.logger.Warn("failed to analyze node", "node", id, "url", baseURL, "error", err)
			s.notify.log(fmt.Sprintf("Error fetching URLs from %s: %v", baseURL, err))
		} else {
			outcome.Issues = result.Issues
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveNode(outcome)
	}
	if !outcome.Exists {
		return nil
	}

	if s.recorder != nil {
		if err := s.recorder.RecordOutcome(ctx, outcome); err != nil {
			s.logger.Warn("failed to record node outcome", "node", id, "error", err)
		}
	}

	switch Decide(r.Mode, outcome) {
	case ActionStream:
		s.notify.outcome(outcome)
	case ActionWrite:
		if err := s.sink.Append(report.NewBlock(outcome, r.Mode)); err != nil {
			return fmt.Errorf("failed to write report for node %d: %w", id, err)
		}
	case ActionSkip:
	}
	return nil
}

func (s *Scheduler) progress(completed, total int) {
	if s.metrics != nil {
		s.metrics.SetProgress(completed, total)
	}
	s.notify.progress(completed, total)
}
