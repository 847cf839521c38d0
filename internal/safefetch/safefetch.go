// Package safefetch issues outbound HTTP requests behind a
// destination-safety check that blocks loopback, private and
// link-local address ranges before any connection is made.
package safefetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// ErrUnsafeURL marks a destination rejected by the safety check. This
// is the one adapter-level error class surfaced to end users, because
// it signals a misconfigured or malicious input rather than ordinary
// upstream unavailability.
var ErrUnsafeURL = errors.New("unsafe destination")

var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
}

// IsSafeURL reports whether raw is an http(s) URL whose host is neither
// a blocklisted name nor a literal address in a loopback, private,
// link-local or unspecified range. Cloud metadata endpoints such as
// 169.254.169.254 fall under link-local.
func IsSafeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if _, blocked := blockedHostnames[host]; blocked {
		return false
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
			addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return false
		}
	}
	return true
}

// Client performs guarded requests with a fixed User-Agent.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			// redirects get the same treatment as the original URL
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if !IsSafeURL(req.URL.String()) {
					return fmt.Errorf("%w: redirect to %s", ErrUnsafeURL, req.URL)
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// SetTransport overrides the underlying transport, used in tests.
func (c *Client) SetTransport(rt http.RoundTripper) { c.httpClient.Transport = rt }

// Get fetches rawURL after the safety check. The caller owns the
// response body.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, rawURL)
}

// Head issues a guarded HEAD request, used for size preflights.
func (c *Client) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, rawURL)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if !IsSafeURL(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrUnsafeURL, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}
