package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	raw := "First  line\r\n\r\n  Second\tline  \r\nThird"
	want := "First line\n\nSecond line\n\nThird"
	if got := CleanText(raw); got != want {
		t.Fatalf("unexpected cleaned text: got %q want %q", got, want)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	if got, truncated := TruncateText("short", 10); got != "short" || truncated {
		t.Fatalf("short text should pass through: got %q truncated=%t", got, truncated)
	}
	got, truncated := TruncateText("abcdefghij", 5)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if got != "abcd…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}
	if got, _ := TruncateText("  ", 5); got != "" {
		t.Fatalf("whitespace-only input should yield empty, got %q", got)
	}
}

func TestFetchText_PlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Just the article body.\n\nSecond paragraph."))
	}))
	defer server.Close()

	text, err := FetchTextWithOptions(context.Background(), server.URL, "", FetchOptions{
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Just the article body.\n\nSecond paragraph." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestFetchText_BlocksPrivateTargets(t *testing.T) {
	t.Parallel()

	if _, err := FetchText(context.Background(), "http://169.254.169.254/latest/meta-data", ""); err == nil {
		t.Fatalf("expected metadata endpoint to be rejected")
	}
}
