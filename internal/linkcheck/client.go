package linkcheck

import (
	"net/http"
	"time"
)

// NewClient returns the HTTP client shared by every request of a scan.
// Redirects are followed (up to the net/http default of 10) and each
// request, redirects included, must finish within timeout.
func NewClient(timeout time.Duration, userAgent string) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	base.MaxIdleConnsPerHost = 32

	var transport http.RoundTripper = base
	if userAgent != "" {
		transport = &userAgentTransport{base: base, userAgent: userAgent}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
