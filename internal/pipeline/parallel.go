package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/nao1215/nodescan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Shard is a contiguous half-open slice [Start, End) of a node range.
type Shard struct {
	Start int
	End   int
}

// Shards splits [start, end) into n contiguous shards of (end-start)/n
// nodes each. The remainder goes to the last shard, so when the range is
// smaller than n every shard but the last is empty.
func Shards(start, end, n int) []Shard {
	if n < 1 {
		n = 1
	}
	per := (end - start) / n
	shards := make([]Shard, 0, n)
	for i := range n {
		shard := Shard{Start: start + i*per, End: start + (i+1)*per}
		if i == n-1 {
			shard.End = end
		}
		shards = append(shards, shard)
	}
	return shards
}

// bitmapState is the state shared by the shard goroutines. The pending
// test and markDone lock separately with the node work in between; this is
// safe because each id belongs to exactly one shard, so no other goroutine
// can test or set that bit in the meantime.
type bitmapState struct {
	mu    sync.Mutex
	cp    *model.BitmapCheckpoint
	total int
}

func (b *bitmapState) pending(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cp.Pending(id)
}

// runParallel processes the pending nodes of cp with one goroutine per shard.
func (s *Scheduler) runParallel(ctx context.Context, r model.ScanRange, cp *model.BitmapCheckpoint) error {
	if cp == nil {
		cp = model.NewBitmapCheckpoint(r)
	}
	cp.Completed = cp.DoneCount()
	if err := s.store.Save(cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	state := &bitmapState{cp: cp, total: r.Total()}
	s.progress(cp.Completed, state.total)

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range Shards(r.StartNode, r.EndNode, s.workers) {
		if shard.Start >= shard.End {
			continue
		}
		g.Go(func() error {
			return s.runShard(gctx, r, shard, state)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.Mode.WritesReport() {
		if err := s.sink.SortByNode(); err != nil {
			return fmt.Errorf("failed to sort report: %w", err)
		}
	}
	s.notify.log(fmt.Sprintf("finish %d", cp.DoneCount()))
	return nil
}

func (s *Scheduler) runShard(ctx context.Context, r model.ScanRange, shard Shard, state *bitmapState) error {
	for id := shard.Start; id < shard.End; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !state.pending(id) {
			continue
		}
		if err := s.processNode(ctx, r, id); err != nil {
			return err
		}
		if err := s.markDone(state, id); err != nil {
			return err
		}
	}
	return nil
}

// markDone sets the bit of id, bumps the counter, reports progress and
// persists the checkpoint as one step under the state lock.
func (s *Scheduler) markDone(state *bitmapState, id int) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.cp.MarkDone(id)
	state.cp.Completed++
	if err := s.store.Save(state.cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.progress(state.cp.Completed, state.total)
	return nil
}
