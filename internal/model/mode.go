package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterMode selects which findings a scan reports.
// The numeric values are the ones users type on the command line
// and the ones stored in the scan history.
type FilterMode int

const (
	// ModeAll streams both lists for every existing node and writes no report file.
	ModeAll FilterMode = iota

	// ModeAccessibilityOnly reports nodes that have accessibility issues and no broken links.
	ModeAccessibilityOnly

	// ModeBrokenOnly reports nodes that have broken links and no accessibility issues.
	ModeBrokenOnly

	// ModeBoth reports nodes that have either kind of issue.
	ModeBoth
)

// String returns the command line name of the mode.
func (m FilterMode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeAccessibilityOnly:
		return "accessibility"
	case ModeBrokenOnly:
		return "broken"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the four defined modes.
func (m FilterMode) Valid() bool {
	return m >= ModeAll && m <= ModeBoth
}

// WritesReport reports whether the mode appends findings to a report file.
// ModeAll only streams results to the caller.
func (m FilterMode) WritesReport() bool {
	return m != ModeAll && m.Valid()
}

// IncludesAccessibility reports whether accessibility issues appear in report blocks.
func (m FilterMode) IncludesAccessibility() bool {
	return m == ModeAll || m == ModeAccessibilityOnly || m == ModeBoth
}

// IncludesBroken reports whether broken links appear in report blocks.
func (m FilterMode) IncludesBroken() bool {
	return m == ModeAll || m == ModeBrokenOnly || m == ModeBoth
}

// ParseFilterMode parses a mode given either by name or by its number.
func ParseFilterMode(s string) (FilterMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := FilterMode(n)
		if !m.Valid() {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
		}
		return m, nil
	}

	switch s {
	case "all":
		return ModeAll, nil
	case "accessibility", "acc":
		return ModeAccessibilityOnly, nil
	case "broken":
		return ModeBrokenOnly, nil
	case "both":
		return ModeBoth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Strategy selects how the scheduler walks the node range.
// The numeric value is persisted as the speed flag of a checkpoint.
type Strategy int

const (
	// StrategySequential processes nodes one at a time in ascending order.
	StrategySequential Strategy = iota

	// StrategyParallel splits the range into contiguous shards processed concurrently.
	StrategyParallel
)

// String returns a human-readable name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategySequential || s == StrategyParallel
}
