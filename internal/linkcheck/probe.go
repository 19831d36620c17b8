package linkcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// Prober decides whether a node page exists.
type Prober struct {
	client *http.Client
	logger *slog.Logger
}

// NewProber creates a Prober that sends requests through client.
func NewProber(client *http.Client, opts ...Option) *Prober {
	o := newOptions(opts)
	return &Prober{client: client, logger: o.logger}
}

// Exists sends a HEAD request to pageURL and reports whether the final
// response, after redirects, is 200 OK. Transport failures count as absent.
func (p *Prober) Exists(ctx context.Context, pageURL string) bool {
	status, err := head(ctx, p.client, pageURL)
	if err != nil {
		p.logger.Debug("probe failed", "url", pageURL, "error", err)
		return false
	}
	return status == http.StatusOK
}

// head performs a HEAD request and returns the final status code.
func head(ctx context.Context, client *http.Client, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
