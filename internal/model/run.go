package model

import "time"

// RunStatus is the lifecycle state of a recorded scan run.
type RunStatus string

const (
	// RunRunning marks a run that has started and not yet finished.
	RunRunning RunStatus = "running"

	// RunCompleted marks a run that processed its whole range.
	RunCompleted RunStatus = "completed"

	// RunCancelled marks a run stopped by the user. Its checkpoint is kept.
	RunCancelled RunStatus = "cancelled"

	// RunFailed marks a run stopped by an error.
	RunFailed RunStatus = "failed"
)

// ScanRun is one recorded execution of a scan, as kept in the history database.
// A resumed scan is recorded as a new run.
type ScanRun struct {
	ID         int64
	Site       string
	StartNode  int
	EndNode    int
	Mode       FilterMode
	Strategy   Strategy
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus

	// Outcomes holds the recorded nodes ordered by node id.
	// It is only populated when the run is loaded with its results.
	Outcomes []NodeOutcome
}

// IssueCounts returns the number of accessibility issues and broken links
// over all recorded outcomes.
func (r *ScanRun) IssueCounts() (accessibility, broken int) {
	for _, o := range r.Outcomes {
		for _, issue := range o.Issues {
			if issue.Kind.IsAccessibility() {
				accessibility++
			} else {
				broken++
			}
		}
	}
	return accessibility, broken
}
