package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/nodescan/internal/crawler"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/progress"
	"github.com/nao1215/nodescan/internal/report"
)

const testSite = "https://example.com/dept/"

// fakeSite answers probes and analyses from fixed tables and counts calls.
type fakeSite struct {
	mu       sync.Mutex
	existing map[int]bool
	issues   map[int][]model.Issue
	fetchErr map[int]bool
	probed   map[int]int

	// onProbe runs before a probe returns; tests use it to cancel scans.
	onProbe func(id int)
}

func newFakeSite(existing ...int) *fakeSite {
	f := &fakeSite{
		existing: map[int]bool{},
		issues:   map[int][]model.Issue{},
		fetchErr: map[int]bool{},
		probed:   map[int]int{},
	}
	for _, id := range existing {
		f.existing[id] = true
	}
	return f
}

func nodeID(pageURL string) int {
	var id int
	rest := strings.TrimPrefix(pageURL, testSite+"node/")
	if _, err := fmt.Sscanf(rest, "%d/", &id); err != nil {
		panic(err)
	}
	return id
}

func (f *fakeSite) Exists(_ context.Context, pageURL string) bool {
	id := nodeID(pageURL)
	f.mu.Lock()
	f.probed[id]++
	hook := f.onProbe
	exists := f.existing[id]
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return exists
}

func (f *fakeSite) Analyze(_ context.Context, pageURL string) (crawler.Result, error) {
	id := nodeID(pageURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr[id] {
		return crawler.Result{}, fmt.Errorf("%w: boom", crawler.ErrFetch)
	}
	return crawler.Result{Issues: f.issues[id]}, nil
}

func (f *fakeSite) probedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.probed))
	for id, n := range f.probed {
		for range n {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func broken(id int) model.Issue {
	return model.Issue{Kind: model.IssueBroken, URL: fmt.Sprintf("https://example.com/dead/%d", id)}
}

func missingAlt(id int) model.Issue {
	return model.Issue{Kind: model.IssueMissingAltText, URL: fmt.Sprintf("https://example.com/img/%d.png", id)}
}

// events records observer callbacks.
type events struct {
	mu       sync.Mutex
	progress [][2]int
	logs     []string
	outcomes []model.NodeOutcome
	done     []bool
}

func (e *events) observer() Observer {
	return Observer{
		OnProgress: func(c, t int) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.progress = append(e.progress, [2]int{c, t})
		},
		OnLog: func(line string) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.logs = append(e.logs, line)
		},
		OnOutcome: func(o model.NodeOutcome) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.outcomes = append(e.outcomes, o)
		},
		OnDone: func(completed bool) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.done = append(e.done, completed)
		},
	}
}

type memoryRecorder struct {
	mu  sync.Mutex
	ids []int
}

func (m *memoryRecorder) RecordOutcome(_ context.Context, o model.NodeOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, o.NodeID)
	return nil
}

func readReport(t *testing.T, sink *report.FileSink) string {
	t.Helper()
	data, err := os.ReadFile(sink.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

func scanRange(start, end int, mode model.FilterMode, strategy model.Strategy) model.ScanRange {
	return model.ScanRange{
		Site:      testSite,
		StartNode: start,
		EndNode:   end,
		Mode:      mode,
		Strategy:  strategy,
	}
}

// TestDecide tests the filter table.
func TestDecide(t *testing.T) {
	t.Parallel()

	acc := model.NodeOutcome{Issues: []model.Issue{missingAlt(1)}}
	brk := model.NodeOutcome{Issues: []model.Issue{broken(1)}}
	both := model.NodeOutcome{Issues: []model.Issue{missingAlt(1), broken(1)}}
	none := model.NodeOutcome{}

	tests := []struct {
		name    string
		mode    model.FilterMode
		outcome model.NodeOutcome
		want    Action
	}{
		{"all streams clean nodes", model.ModeAll, none, ActionStream},
		{"all streams nodes with issues", model.ModeAll, both, ActionStream},
		{"accessibility only writes acc", model.ModeAccessibilityOnly, acc, ActionWrite},
		{"accessibility only skips mixed", model.ModeAccessibilityOnly, both, ActionSkip},
		{"accessibility only skips broken", model.ModeAccessibilityOnly, brk, ActionSkip},
		{"broken only writes broken", model.ModeBrokenOnly, brk, ActionWrite},
		{"broken only skips mixed", model.ModeBrokenOnly, both, ActionSkip},
		{"broken only skips acc", model.ModeBrokenOnly, acc, ActionSkip},
		{"both writes acc", model.ModeBoth, acc, ActionWrite},
		{"both writes broken", model.ModeBoth, brk, ActionWrite},
		{"both writes mixed", model.ModeBoth, both, ActionWrite},
		{"both skips clean", model.ModeBoth, none, ActionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(tt.mode, tt.outcome); got != tt.want {
				t.Errorf("Decide() = %v, expected %v", got, tt.want)
			}
		})
	}
}

// TestShards tests partitioning of a range into contiguous shards.
func TestShards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		start, end, n int
		want          []Shard
	}{
		{"even split", 0, 20, 4, []Shard{{0, 5}, {5, 10}, {10, 15}, {15, 20}}},
		{"remainder to last", 10, 23, 3, []Shard{{10, 14}, {14, 18}, {18, 23}}},
		{"single worker", 5, 9, 1, []Shard{{5, 9}}},
		{"fewer nodes than workers", 0, 3, 5, []Shard{{0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Shards(tt.start, tt.end, tt.n); !slices.Equal(got, tt.want) {
				t.Errorf("Shards() = %v, expected %v", got, tt.want)
			}
		})
	}
}

// TestSchedulerSequential tests a full sequential scan.
func TestSchedulerSequential(t *testing.T) {
	t.Parallel()

	site := newFakeSite(1, 2, 4)
	site.issues[2] = []model.Issue{broken(2)}
	site.issues[4] = []model.Issue{missingAlt(4)}

	store := progress.NewFileStore(t.TempDir())
	sink := report.NewFileSink(t.TempDir(), "dept_", time.Now())
	ev := &events{}
	rec := &memoryRecorder{}

	s := NewScheduler(site, site, store,
		WithSink(sink), WithObserver(ev.observer()), WithRecorder(rec))

	if err := s.Run(context.Background(), scanRange(1, 6, model.ModeBoth, model.StrategySequential)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := site.probedIDs(); !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("probed %v", got)
	}

	want := report.NewBlock(model.NodeOutcome{BaseURL: testSite + "node/2/", Issues: site.issues[2]}, model.ModeBoth).String() +
		report.NewBlock(model.NodeOutcome{BaseURL: testSite + "node/4/", Issues: site.issues[4]}, model.ModeBoth).String()
	if got := readReport(t, sink); got != want {
		t.Errorf("report =\n%s\nexpected\n%s", got, want)
	}

	wantProgress := [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}
	if !slices.Equal(ev.progress, wantProgress) {
		t.Errorf("progress = %v, expected %v", ev.progress, wantProgress)
	}
	if !slices.Equal(ev.done, []bool{true}) {
		t.Errorf("done = %v", ev.done)
	}
	if len(ev.logs) == 0 || ev.logs[0] != "Working on node 1" {
		t.Errorf("unexpected logs %v", ev.logs)
	}
	if !slices.Equal(rec.ids, []int{1, 2, 4}) {
		t.Errorf("recorded %v, expected existing nodes only", rec.ids)
	}

	cp, err := store.Load()
	if err != nil || cp != nil {
		t.Errorf("checkpoint should be cleared, got %v, %v", cp, err)
	}
}

// TestSchedulerSequentialResume tests resuming after the last completed node.
func TestSchedulerSequentialResume(t *testing.T) {
	t.Parallel()

	r := scanRange(1, 6, model.ModeAll, model.StrategySequential)
	store := progress.NewMemoryStore()
	cp := model.NewSequentialCheckpoint(r)
	cp.LastCompletedNode = 3
	if err := store.Save(cp); err != nil {
		t.Fatal(err)
	}

	site := newFakeSite(1, 2, 3, 4, 5)
	ev := &events{}
	s := NewScheduler(site, site, store, WithObserver(ev.observer()))
	if err := s.Run(context.Background(), r); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := site.probedIDs(); !slices.Equal(got, []int{4, 5}) {
		t.Errorf("probed %v, expected [4 5]", got)
	}
	if ev.progress[0] != [2]int{3, 5} {
		t.Errorf("expected initial progress 3/5, got %v", ev.progress)
	}
}

// TestSchedulerParallelResume tests that a resumed parallel scan processes exactly the unset nodes.
func TestSchedulerParallelResume(t *testing.T) {
	t.Parallel()

	r := scanRange(0, 20, model.ModeBoth, model.StrategyParallel)
	store := progress.NewFileStore(t.TempDir())
	cp := model.NewBitmapCheckpoint(r)
	done := []int{0, 1, 2, 7, 8, 13, 19}
	for _, id := range done {
		cp.MarkDone(id)
	}
	if err := store.Save(cp); err != nil {
		t.Fatal(err)
	}

	site := newFakeSite()
	ev := &events{}
	s := NewScheduler(site, site, store,
		WithSink(report.NewFileSink(t.TempDir(), "", time.Now())),
		WithWorkers(4),
		WithObserver(ev.observer()))

	if err := s.Run(context.Background(), r); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var want []int
	for id := range 20 {
		if !slices.Contains(done, id) {
			want = append(want, id)
		}
	}
	if got := site.probedIDs(); !slices.Equal(got, want) {
		t.Errorf("probed %v, expected %v", got, want)
	}

	last := ev.progress[len(ev.progress)-1]
	if last != [2]int{20, 20} {
		t.Errorf("final progress = %v, expected [20 20]", last)
	}
	if ev.progress[0] != [2]int{len(done), 20} {
		t.Errorf("initial progress = %v", ev.progress[0])
	}
}

// TestSchedulerParallelWorkerCounts tests that the worker count does not change the result.
func TestSchedulerParallelWorkerCounts(t *testing.T) {
	t.Parallel()

	var reports []string
	for _, workers := range []int{1, 4, 10} {
		site := newFakeSite()
		for id := range 37 {
			if id%3 != 0 {
				site.existing[id] = true
			}
			if id%5 == 0 {
				site.issues[id] = []model.Issue{broken(id)}
			}
			if id%7 == 0 {
				site.issues[id] = append(site.issues[id], missingAlt(id))
			}
		}

		store := progress.NewMemoryStore()
		sink := report.NewFileSink(t.TempDir(), "w_", time.Now())
		s := NewScheduler(site, site, store, WithSink(sink), WithWorkers(workers))

		r := scanRange(0, 37, model.ModeBoth, model.StrategyParallel)
		if err := s.Run(context.Background(), r); err != nil {
			t.Fatalf("workers=%d: Run() error = %v", workers, err)
		}

		probed := site.probedIDs()
		if len(probed) != 37 {
			t.Errorf("workers=%d: probed %d nodes, expected 37", workers, len(probed))
		}
		for i, id := range probed {
			if id != i {
				t.Errorf("workers=%d: node %d probed unexpectedly", workers, id)
				break
			}
		}
		reports = append(reports, readReport(t, sink))
	}

	for i := 1; i < len(reports); i++ {
		if reports[i] != reports[0] {
			t.Errorf("report with worker set %d differs:\n%s\nvs\n%s", i, reports[i], reports[0])
		}
	}
	if !strings.HasPrefix(reports[0], "base_url: "+testSite+"node/5/") {
		t.Errorf("expected node 5 first in sorted report, got\n%s", reports[0])
	}
}

// TestSchedulerCancellation tests that cancelling keeps the checkpoint for resumption.
func TestSchedulerCancellation(t *testing.T) {
	t.Parallel()

	t.Run("sequential", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		site := newFakeSite(0, 1, 2, 3, 4, 5)
		site.onProbe = func(id int) {
			if id == 3 {
				cancel()
			}
		}
		store := progress.NewMemoryStore()
		ev := &events{}
		s := NewScheduler(site, site, store, WithObserver(ev.observer()))

		r := scanRange(0, 6, model.ModeAll, model.StrategySequential)
		err := s.Run(ctx, r)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, expected context.Canceled", err)
		}
		if !slices.Equal(ev.done, []bool{false}) {
			t.Errorf("done = %v", ev.done)
		}

		cp, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		seq, ok := cp.(*model.SequentialCheckpoint)
		if !ok {
			t.Fatalf("expected sequential checkpoint, got %T", cp)
		}
		if seq.LastCompletedNode != 2 {
			t.Errorf("LastCompletedNode = %d, expected 2", seq.LastCompletedNode)
		}

		// Resuming processes the interrupted node again and finishes.
		site.onProbe = nil
		if err := NewScheduler(site, site, store).Run(context.Background(), r); err != nil {
			t.Fatalf("resume error = %v", err)
		}
		if got := site.probedIDs(); !slices.Equal(got, []int{0, 1, 2, 3, 3, 4, 5}) {
			t.Errorf("probed %v", got)
		}
	})

	t.Run("parallel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		site := newFakeSite()
		site.onProbe = func(id int) {
			if id == 4 {
				cancel()
			}
		}
		store := progress.NewMemoryStore()
		s := NewScheduler(site, site, store, WithWorkers(1),
			WithSink(report.NewFileSink(t.TempDir(), "", time.Now())))

		r := scanRange(0, 10, model.ModeBoth, model.StrategyParallel)
		if err := s.Run(ctx, r); !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, expected context.Canceled", err)
		}

		cp, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		bm, ok := cp.(*model.BitmapCheckpoint)
		if !ok {
			t.Fatalf("expected bitmap checkpoint, got %T", cp)
		}
		if got := bm.PendingNodes(); !slices.Equal(got, []int{4, 5, 6, 7, 8, 9}) {
			t.Errorf("pending = %v", got)
		}
		if bm.Completed != 4 {
			t.Errorf("Completed = %d, expected 4", bm.Completed)
		}
	})
}

// TestSchedulerCheckpointMismatch tests that a foreign checkpoint stops the scan.
func TestSchedulerCheckpointMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		saved model.ScanRange
	}{
		{"different range", scanRange(0, 50, model.ModeBoth, model.StrategySequential)},
		{"different strategy", scanRange(0, 10, model.ModeBoth, model.StrategyParallel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := progress.NewMemoryStore()
			var cp model.Checkpoint = model.NewSequentialCheckpoint(tt.saved)
			if tt.saved.Strategy == model.StrategyParallel {
				cp = model.NewBitmapCheckpoint(tt.saved)
			}
			if err := store.Save(cp); err != nil {
				t.Fatal(err)
			}

			site := newFakeSite()
			s := NewScheduler(site, site, store, WithSink(report.NewFileSink(t.TempDir(), "", time.Now())))
			err := s.Run(context.Background(), scanRange(0, 10, model.ModeBoth, model.StrategySequential))
			if !errors.Is(err, ErrCheckpointMismatch) {
				t.Errorf("Run() error = %v, expected ErrCheckpointMismatch", err)
			}
			if len(site.probedIDs()) != 0 {
				t.Error("no node should be processed")
			}
		})
	}
}

// TestSchedulerModeAll tests that mode all streams outcomes and writes nothing.
func TestSchedulerModeAll(t *testing.T) {
	t.Parallel()

	site := newFakeSite(1, 3)
	site.issues[3] = []model.Issue{missingAlt(3), broken(3)}
	ev := &events{}
	s := NewScheduler(site, site, progress.NewMemoryStore(), WithObserver(ev.observer()))

	if err := s.Run(context.Background(), scanRange(0, 4, model.ModeAll, model.StrategySequential)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(ev.outcomes) != 2 {
		t.Fatalf("expected 2 streamed outcomes, got %d", len(ev.outcomes))
	}
	if ev.outcomes[0].NodeID != 1 || len(ev.outcomes[0].Issues) != 0 {
		t.Errorf("unexpected first outcome %+v", ev.outcomes[0])
	}
	if got := ev.outcomes[1].Broken(); !slices.Equal(got, []string{broken(3).URL}) {
		t.Errorf("unexpected broken list %v", got)
	}
}

// TestSchedulerNoSink tests that reporting modes require a sink.
func TestSchedulerNoSink(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	s := NewScheduler(site, site, progress.NewMemoryStore())
	err := s.Run(context.Background(), scanRange(0, 4, model.ModeBrokenOnly, model.StrategySequential))
	if !errors.Is(err, ErrNoSink) {
		t.Errorf("Run() error = %v, expected ErrNoSink", err)
	}
}

// TestSchedulerInvalidRange tests that invalid ranges never start.
func TestSchedulerInvalidRange(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	ev := &events{}
	s := NewScheduler(site, site, progress.NewMemoryStore(), WithObserver(ev.observer()))
	err := s.Run(context.Background(), scanRange(10, 5, model.ModeAll, model.StrategySequential))
	if !errors.Is(err, model.ErrInvalidRange) {
		t.Errorf("Run() error = %v, expected ErrInvalidRange", err)
	}
	if !slices.Equal(ev.done, []bool{false}) {
		t.Errorf("done = %v", ev.done)
	}
}

// TestSchedulerFetchError tests that a fetch failure completes the node without issues.
func TestSchedulerFetchError(t *testing.T) {
	t.Parallel()

	site := newFakeSite(0, 1)
	site.fetchErr[0] = true
	site.issues[1] = []model.Issue{broken(1)}

	store := progress.NewMemoryStore()
	sink := report.NewFileSink(t.TempDir(), "", time.Now())
	ev := &events{}
	s := NewScheduler(site, site, store, WithSink(sink), WithObserver(ev.observer()))

	if err := s.Run(context.Background(), scanRange(0, 2, model.ModeBoth, model.StrategySequential)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := readReport(t, sink)
	if strings.Contains(got, "node/0/") || !strings.Contains(got, "node/1/") {
		t.Errorf("unexpected report %q", got)
	}
	found := false
	for _, line := range ev.logs {
		if strings.HasPrefix(line, "Error fetching URLs from "+testSite+"node/0/") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected fetch error log line, got %v", ev.logs)
	}
}

type failingStore struct {
	progress.MemoryStore
}

func (f *failingStore) Save(model.Checkpoint) error { return errors.New("disk full") }

// TestSchedulerSaveFailure tests that checkpoint write failures are fatal.
func TestSchedulerSaveFailure(t *testing.T) {
	t.Parallel()

	for _, strategy := range []model.Strategy{model.StrategySequential, model.StrategyParallel} {
		site := newFakeSite()
		s := NewScheduler(site, site, &failingStore{}, WithSink(report.NewFileSink(t.TempDir(), "", time.Now())))
		err := s.Run(context.Background(), scanRange(0, 3, model.ModeBoth, strategy))
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("%v: Run() error = %v, expected disk full", strategy, err)
		}
	}
}
