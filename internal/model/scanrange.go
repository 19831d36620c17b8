package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ScanRange describes one scan. It is fixed once the scan starts.
//
// Nodes are processed over the half-open interval [StartNode, EndNode).
// Site always ends with a slash so that node pages live at
// Site + "node/<id>/".
type ScanRange struct {
	// Site is the base URL of the site, with a trailing slash.
	Site string

	// StartNode is the first node id to scan.
	StartNode int

	// EndNode is one past the last node id to scan.
	EndNode int

	// Mode selects which findings are reported.
	Mode FilterMode

	// Strategy selects sequential or parallel processing.
	Strategy Strategy

	// OutputPrefix is prepended to the report file name.
	OutputPrefix string
}

// Total returns the number of nodes in the range.
func (r ScanRange) Total() int {
	return r.EndNode - r.StartNode
}

// NodeURL returns the page URL of node id.
func (r ScanRange) NodeURL(id int) string {
	return r.Site + "node/" + strconv.Itoa(id) + "/"
}

// Validate checks that the range can be scanned.
func (r ScanRange) Validate() error {
	if err := validateSite(r.Site); err != nil {
		return err
	}
	if !strings.HasSuffix(r.Site, "/") {
		return fmt.Errorf("%w: %q has no trailing slash", ErrInvalidSite, r.Site)
	}
	if r.StartNode < 0 || r.EndNode <= r.StartNode {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, r.StartNode, r.EndNode)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, r.Mode)
	}
	if !r.Strategy.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, r.Strategy)
	}
	return nil
}

// NormalizeSite appends a trailing slash to raw and derives the report
// output prefix from its last path segment, with hyphens replaced by
// underscores. For "https://uwaterloo.ca/civil-engineering" it returns
// "https://uwaterloo.ca/civil-engineering/" and "civil_engineering_".
func NormalizeSite(raw string) (site, outputPrefix string, err error) {
	raw = strings.TrimSpace(raw)
	if err := validateSite(raw); err != nil {
		return "", "", err
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}

	u, _ := url.Parse(raw) // already validated
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		last = u.Hostname()
	}
	return raw, strings.ReplaceAll(last, "-", "_") + "_", nil
}

func validateSite(site string) error {
	u, err := url.Parse(site)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSite, site)
	}
	return nil
}
