package database

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/nodescan/internal/model"
)

// RunRecorder records the outcomes of one scan run. It satisfies the
// scheduler's recorder interface.
type RunRecorder struct {
	db    *HistoryDB
	runID int64
}

// StartRun begins a run for r and returns its recorder.
func (hdb *HistoryDB) StartRun(ctx context.Context, r model.ScanRange) (*RunRecorder, error) {
	id, err := hdb.BeginRun(ctx, r, time.Now())
	if err != nil {
		return nil, err
	}
	return &RunRecorder{db: hdb, runID: id}, nil
}

// RunID returns the id of the recorded run.
func (rr *RunRecorder) RunID() int64 {
	return rr.runID
}

// RecordOutcome stores one node outcome.
func (rr *RunRecorder) RecordOutcome(ctx context.Context, outcome model.NodeOutcome) error {
	return rr.db.RecordOutcome(ctx, rr.runID, outcome)
}

// Finish stores the final status derived from the scan error.
func (rr *RunRecorder) Finish(ctx context.Context, scanErr error) error {
	return rr.db.FinishRun(ctx, rr.runID, StatusOf(scanErr), time.Now())
}

// StatusOf maps the error returned by a scan to a run status.
func StatusOf(scanErr error) model.RunStatus {
	switch {
	case scanErr == nil:
		return model.RunCompleted
	case errors.Is(scanErr, context.Canceled):
		return model.RunCancelled
	default:
		return model.RunFailed
	}
}
