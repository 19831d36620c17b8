package model

import "errors"

// Validation errors returned by ScanRange.Validate and the parse helpers.
var (
	// ErrInvalidSite is returned when the site is not an absolute http(s) URL.
	ErrInvalidSite = errors.New("invalid site: must be an absolute http or https URL")

	// ErrInvalidRange is returned when the node range is empty, reversed or negative.
	ErrInvalidRange = errors.New("invalid node range: start must be >= 0 and end must be greater than start")

	// ErrInvalidMode is returned when no valid filter mode was selected.
	ErrInvalidMode = errors.New("invalid mode: choose one of all, accessibility, broken, both")

	// ErrInvalidStrategy is returned for an unknown scheduling strategy.
	ErrInvalidStrategy = errors.New("invalid strategy: must be sequential or parallel")
)
