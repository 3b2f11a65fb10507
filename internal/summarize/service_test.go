package summarize

import (
	"strings"
	"testing"
	"time"
)

func TestWithinProgressiveWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-6 * time.Hour)
	stale := now.Add(-48 * time.Hour)

	if !withinProgressiveWindow(&fresh, now, 24) {
		t.Fatalf("item 6h old should be inside a 24h window")
	}
	if withinProgressiveWindow(&stale, now, 24) {
		t.Fatalf("item 48h old should be outside a 24h window")
	}
	if !withinProgressiveWindow(nil, now, 24) {
		t.Fatalf("undated item should count as fresh")
	}
}

func TestBuildPrompt_TruncatesContent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxPromptContentChars+500)
	prompt := buildPrompt("Title", long)
	if len(prompt) > maxPromptContentChars+200 {
		t.Fatalf("prompt not truncated: %d chars", len(prompt))
	}
	if !strings.Contains(prompt, "Title: Title") {
		t.Fatalf("prompt missing title:\n%s", prompt[:120])
	}
}
