package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/nodescan/internal/model"
	"golang.org/x/net/html"
)

// DefaultMaxBodySize limits how much of a page is read for analysis.
const DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// ErrFetch is returned when a page cannot be fetched for analysis.
var ErrFetch = errors.New("failed to fetch page")

// LinkVerifier returns the broken subset of urls.
type LinkVerifier interface {
	Verify(ctx context.Context, urls []string) []string
}

// Result holds the findings of one page.
type Result struct {
	// Issues holds accessibility issues in discovery order followed by
	// broken links in verification order.
	Issues []model.Issue
}

// Analyzer fetches and analyzes node pages.
type Analyzer struct {
	client      *http.Client
	verifier    LinkVerifier
	exclusions  URLSet
	social      DomainMatcher
	maxBodySize int64
	logger      *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithExclusions sets the URLs never reported as accessibility problems.
func WithExclusions(set URLSet) AnalyzerOption {
	return func(a *Analyzer) {
		a.exclusions = set
	}
}

// WithSocialDomains sets the domains whose links are ignored.
func WithSocialDomains(m DomainMatcher) AnalyzerOption {
	return func(a *Analyzer) {
		a.social = m
	}
}

// WithMaxBodySize sets the maximum number of bytes read from a page.
func WithMaxBodySize(size int64) AnalyzerOption {
	return func(a *Analyzer) {
		if size > 0 {
			a.maxBodySize = size
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an Analyzer. client is used for the page fetch and
// should be the client the verifier uses.
func NewAnalyzer(client *http.Client, verifier LinkVerifier, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		client:      client,
		verifier:    verifier,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze fetches pageURL and returns its accessibility issues and broken
// links. A transport failure or a non-2xx status returns an error wrapping
// ErrFetch and no issues.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) (Result, error) {
	doc, err := a.fetch(ctx, pageURL)
	if err != nil {
		return Result{}, err
	}

	parser, err := NewParser(pageURL, a.exclusions, a.social)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	classified := parser.Classify(doc)

	issues := classified.Accessibility
	for _, broken := range a.verifier.Verify(ctx, classified.ToVerify) {
		issues = append(issues, model.Issue{Kind: model.IssueBroken, URL: broken})
	}

	a.logger.Debug("page analyzed",
		"url", pageURL,
		"links", len(classified.ToVerify),
		"issues", len(issues))
	return Result{Issues: issues}, nil
}

func (a *Analyzer) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, pageURL, resp.StatusCode)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, a.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
