package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		userAgent:    "rollup-test",
		maxBodyBytes: defaultMaxBodyBytes,
		allowPrivate: true,
	}
}

func strPtr(s string) *string { return &s }

func TestFetch_StoresValidators(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	result, err := newTestClient().Fetch(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if result.NotModified {
		t.Fatalf("expected a full response, got not-modified")
	}
	if result.ETag == nil || *result.ETag != `"v1"` {
		t.Fatalf("unexpected etag: %v", result.ETag)
	}
	if result.LastModified == nil || *result.LastModified != "Mon, 02 Jan 2006 15:04:05 GMT" {
		t.Fatalf("unexpected last-modified: %v", result.LastModified)
	}
	if string(result.Body) != "<rss/>" {
		t.Fatalf("unexpected body: %q", result.Body)
	}
}

func TestFetch_ConditionalHeadersAnd304(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != `"v1"` {
			t.Errorf("missing If-None-Match, got %q", r.Header.Get("If-None-Match"))
		}
		if r.Header.Get("If-Modified-Since") == "" {
			t.Errorf("missing If-Modified-Since")
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	result, err := newTestClient().Fetch(context.Background(), server.URL, strPtr(`"v1"`), strPtr("Mon, 02 Jan 2006 15:04:05 GMT"))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if !result.NotModified {
		t.Fatalf("expected not-modified result")
	}
	if len(result.Body) != 0 {
		t.Fatalf("not-modified result must have no body, got %d bytes", len(result.Body))
	}
}

func TestFetch_StatusErrorClassification(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient().Fetch(context.Background(), server.URL, nil, nil)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if !IsPermanent(err) {
		t.Fatalf("404 should classify as permanent: %v", err)
	}
}

func TestFetch_RateLimitIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient().Fetch(context.Background(), server.URL, nil, nil)
	if err == nil {
		t.Fatalf("expected error for 429")
	}
	if IsPermanent(err) {
		t.Fatalf("429 should stay retryable: %v", err)
	}
}

func TestValidateTarget(t *testing.T) {
	t.Parallel()

	blocked := []string{
		"http://127.0.0.1/feed.xml",
		"http://localhost/feed.xml",
		"http://10.0.0.5/feed.xml",
		"http://192.168.1.1/feed.xml",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/feed.xml",
		"ftp://example.com/feed.xml",
		"file:///etc/passwd",
	}
	for _, target := range blocked {
		if err := ValidateTarget(target); err == nil {
			t.Fatalf("expected %q to be rejected", target)
		}
	}

	allowed := []string{
		"https://example.com/feed.xml",
		"http://news.example.org/rss",
		"https://93.184.216.34/feed",
	}
	for _, target := range allowed {
		if err := ValidateTarget(target); err != nil {
			t.Fatalf("expected %q to be allowed, got %v", target, err)
		}
	}
}

func TestCooldownForFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, time.Hour},
		{4, 4 * time.Hour},
		{5, 12 * time.Hour},
		{6, 24 * time.Hour},
		{12, 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := CooldownForFailures(tc.failures); got != tc.want {
			t.Fatalf("failures=%d: got %v want %v", tc.failures, got, tc.want)
		}
	}
}

func TestOpenUntil(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if deadline := OpenUntil(now, 2); deadline != nil {
		t.Fatalf("streak below first step should not open the circuit, got %v", deadline)
	}
	deadline := OpenUntil(now, 4)
	if deadline == nil || !deadline.Equal(now.Add(4*time.Hour)) {
		t.Fatalf("unexpected deadline for streak 4: %v", deadline)
	}
}
