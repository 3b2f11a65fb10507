// Package fetch retrieves feed documents over HTTP with conditional-GET
// cursors, a private-network guard, and the circuit-breaker cooldown table
// used by the poller.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
)

const defaultMaxBodyBytes = 10 << 20

// Result is one fetch outcome. When NotModified is set the body is empty and
// the stored cursor is still current.
type Result struct {
	Body         []byte
	ETag         *string
	LastModified *string
	ContentType  string
	NotModified  bool
	StatusCode   int
	FetchedAt    time.Time
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Permanent reports whether retrying without operator intervention is
// pointless: the feed is gone or the request itself is rejected. Rate
// limiting (429) and server errors stay retryable.
func (e *StatusError) Permanent() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsPermanent classifies a fetch error for the breaker: permanent failures
// still count toward the streak but are worth flagging to the operator.
func IsPermanent(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Permanent()
	}
	return errors.Is(err, ErrBlockedAddress)
}

// Client fetches feeds. All requests go through the private-network dial
// guard, including every redirect hop.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64

	// allowPrivate disables the address guard for tests against loopback
	// servers.
	allowPrivate bool
}

// NewClient builds a fetch client with the given per-request timeout.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "rollup/1.0 (+feed-aggregator)"
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return ValidateTarget(req.URL.String())
			},
		},
		userAgent:    userAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Fetch performs a conditional GET. The stored etag and lastModified cursors
// are sent when present; a 304 response comes back as NotModified without a
// body.
func (c *Client) Fetch(ctx context.Context, feedURL string, etag, lastModified *string) (*Result, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("fetch client is not initialized")
	}
	if !c.allowPrivate {
		if err := ValidateTarget(feedURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", feedURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")
	if etag != nil && strings.TrimSpace(*etag) != "" {
		req.Header.Set("If-None-Match", *etag)
	}
	if lastModified != nil && strings.TrimSpace(*lastModified) != "" {
		req.Header.Set("If-Modified-Since", *lastModified)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	fetchedAt := globaltime.UTC()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{
			NotModified: true,
			StatusCode:  resp.StatusCode,
			FetchedAt:   fetchedAt,
		}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: feedURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", feedURL, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("feed %s exceeds %d byte limit", feedURL, c.maxBodyBytes)
	}

	result := &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   fetchedAt,
	}
	if v := strings.TrimSpace(resp.Header.Get("ETag")); v != "" {
		result.ETag = &v
	}
	if v := strings.TrimSpace(resp.Header.Get("Last-Modified")); v != "" {
		result.LastModified = &v
	}
	return result, nil
}
