package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/nodescan/internal/model"
)

// runSequential processes nodes in ascending order starting after the last
// completed node of cp, or at r.StartNode when cp is nil.
func (s *Scheduler) runSequential(ctx context.Context, r model.ScanRange, cp *model.SequentialCheckpoint) error {
	if cp == nil {
		cp = model.NewSequentialCheckpoint(r)
		if err := s.store.Save(cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}

	total := r.Total()
	next := cp.NextNode()
	if next > r.StartNode {
		s.progress(next-r.StartNode, total)
	}

	for id := next; id < r.EndNode; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processNode(ctx, r, id); err != nil {
			return err
		}

		cp.LastCompletedNode = id
		if err := s.store.Save(cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		s.progress(id-r.StartNode+1, total)
	}
	return nil
}
