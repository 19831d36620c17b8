package pipeline

import "errors"

var (
	// ErrCheckpointMismatch is returned when a persisted checkpoint belongs
	// to a different site, node range or strategy than the requested scan.
	ErrCheckpointMismatch = errors.New("checkpoint belongs to a different scan: resume it or clear it first")

	// ErrNoSink is returned when a reporting mode is run without a report sink.
	ErrNoSink = errors.New("mode writes a report but no report sink is configured")
)
