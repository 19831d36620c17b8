package linkcheck

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Verifier checks outbound links for breakage.
type Verifier struct {
	client      *http.Client
	logger      *slog.Logger
	concurrency int
}

// NewVerifier creates a Verifier that sends requests through client.
func NewVerifier(client *http.Client, opts ...Option) *Verifier {
	o := newOptions(opts)
	return &Verifier{
		client:      client,
		logger:      o.logger,
		concurrency: o.concurrency,
	}
}

// IsBroken reports whether target answers HEAD with 404 or cannot be
// reached at all. Any other status, 5xx included, counts as reachable.
func (v *Verifier) IsBroken(ctx context.Context, target string) bool {
	status, err := head(ctx, v.client, target)
	if err != nil {
		v.logger.Debug("link unreachable", "url", target, "error", err)
		return true
	}
	return status == http.StatusNotFound
}

// Verify checks urls concurrently and returns the broken ones in input
// order. Every occurrence is checked and reported on its own, so a URL
// listed twice is requested twice. At most the configured number of
// requests is in flight at a time.
func (v *Verifier) Verify(ctx context.Context, urls []string) []string {
	broken := make([]bool, len(urls))
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			broken[i] = v.IsBroken(ctx, u)
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	var result []string
	for i, u := range urls {
		if broken[i] {
			result = append(result, u)
		}
	}
	return result
}
