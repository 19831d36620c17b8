package model

import "fmt"

// IssueKind classifies a finding on a node page.
type IssueKind int

const (
	// IssueBroken is an outbound link whose HEAD request returned 404 or failed.
	IssueBroken IssueKind = iota

	// IssueMissingAltText is an image with an absent or blank alt attribute.
	IssueMissingAltText

	// IssueEmptyLinkText is a hyperlink with no visible text.
	IssueEmptyLinkText
)

// String returns the identifier stored in the scan history.
func (k IssueKind) String() string {
	switch k {
	case IssueBroken:
		return "broken"
	case IssueMissingAltText:
		return "missing_alt_text"
	case IssueEmptyLinkText:
		return "empty_link_text"
	default:
		return "unknown"
	}
}

// ParseIssueKind is the inverse of IssueKind.String.
func ParseIssueKind(s string) (IssueKind, error) {
	switch s {
	case "broken":
		return IssueBroken, nil
	case "missing_alt_text":
		return IssueMissingAltText, nil
	case "empty_link_text":
		return IssueEmptyLinkText, nil
	default:
		return 0, fmt.Errorf("unknown issue kind %q", s)
	}
}

// MarshalText encodes the kind as its String form.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *IssueKind) UnmarshalText(text []byte) error {
	kind, err := ParseIssueKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// IsAccessibility reports whether the issue belongs to the accessibility list.
func (k IssueKind) IsAccessibility() bool {
	return k == IssueMissingAltText || k == IssueEmptyLinkText
}

// Issue is a single finding. URL is always absolute.
type Issue struct {
	Kind IssueKind `json:"kind"`
	URL  string    `json:"url"`
}

// NodeOutcome is the result of processing one node.
type NodeOutcome struct {
	// NodeID is the numeric node id.
	NodeID int

	// BaseURL is the page URL of the node.
	BaseURL string

	// Exists is true when the probe saw HTTP 200. Missing nodes carry no issues.
	Exists bool

	// Issues holds accessibility issues in discovery order followed by broken links.
	Issues []Issue

	// FetchErr is set when the page existed but could not be fetched for analysis.
	FetchErr error
}

// Accessibility returns the URLs of accessibility issues in discovery order.
func (o NodeOutcome) Accessibility() []string {
	var urls []string
	for _, issue := range o.Issues {
		if issue.Kind.IsAccessibility() {
			urls = append(urls, issue.URL)
		}
	}
	return urls
}

// Broken returns the URLs of broken links in discovery order.
func (o NodeOutcome) Broken() []string {
	var urls []string
	for _, issue := range o.Issues {
		if issue.Kind == IssueBroken {
			urls = append(urls, issue.URL)
		}
	}
	return urls
}
