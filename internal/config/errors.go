package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSite is returned when no site URL was given.
	ErrNoSite = errors.New("no site specified: provide the site URL as an argument")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidVerifyConcurrency is returned when the link check concurrency is not positive.
	ErrInvalidVerifyConcurrency = errors.New("invalid verify concurrency: must be positive")

	// ErrNoReportDir is returned when a reporting mode has nowhere to write.
	ErrNoReportDir = errors.New("no report directory: set --report-dir")

	// ErrNoStateDir is returned when there is no directory for checkpoints.
	ErrNoStateDir = errors.New("no state directory: set --state-dir")

	// ErrMalformedList is returned when an ignore list file is not a JSON
	// array or object of strings.
	ErrMalformedList = errors.New("malformed list file")
)
