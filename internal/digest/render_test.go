package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func makeCandidates(n int) []candidate {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	out := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidate{
			ClusterID:   int64(i + 1),
			Title:       fmt.Sprintf("Story %d", i+1),
			URL:         fmt.Sprintf("https://example.com/%d", i+1),
			Summary:     fmt.Sprintf("Summary of story %d.", i+1),
			MemberCount: n - i,
			FirstSeenAt: now.Add(-time.Duration(i) * time.Hour),
			LastSeenAt:  now,
		})
	}
	return out
}

func TestSplitSections_TwelveCandidates(t *testing.T) {
	t.Parallel()

	entries := splitSections(makeCandidates(12))
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Section]++
	}
	if counts[SectionTopPicks] != 5 || counts[SectionBigStories] != 5 || counts[SectionQuickScan] != 2 {
		t.Fatalf("unexpected section split: %v", counts)
	}
	if entries[0].Rank != 1 || entries[11].Rank != 12 {
		t.Fatalf("ranks must be contiguous: first=%d last=%d", entries[0].Rank, entries[11].Rank)
	}
}

func TestSplitSections_FewCandidatesTopPicksOnly(t *testing.T) {
	t.Parallel()

	entries := splitSections(makeCandidates(3))
	for _, e := range entries {
		if e.Section != SectionTopPicks {
			t.Fatalf("with 3 candidates everything is a top pick, got %q", e.Section)
		}
	}
}

func TestOneLiner_Truncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 60)
	got := oneLiner(candidate{Summary: long})
	if utf8.RuneCountInString(got) > oneLinerMaxChars {
		t.Fatalf("one-liner too long: %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated one-liner must end with ellipsis: %q", got)
	}

	short := oneLiner(candidate{Summary: "Fits easily."})
	if short != "Fits easily." {
		t.Fatalf("short summary must pass through: %q", short)
	}
}

func TestOneLiner_FallsBackToTitle(t *testing.T) {
	t.Parallel()

	if got := oneLiner(candidate{Title: "Headline only"}); got != "Headline only" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestRenderMarkdown_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	markdown := renderMarkdown(splitSections(makeCandidates(3)))
	if !strings.Contains(markdown, "## Top Picks") {
		t.Fatalf("expected top picks heading:\n%s", markdown)
	}
	if strings.Contains(markdown, "## Big Stories") || strings.Contains(markdown, "## Quick Scan") {
		t.Fatalf("empty sections must be omitted:\n%s", markdown)
	}
}

func TestRenderMarkdown_AllSections(t *testing.T) {
	t.Parallel()

	markdown := renderMarkdown(splitSections(makeCandidates(12)))
	for _, heading := range []string{"## Top Picks", "## Big Stories", "## Quick Scan"} {
		if !strings.Contains(markdown, heading) {
			t.Fatalf("missing heading %q:\n%s", heading, markdown)
		}
	}
	if !strings.Contains(markdown, "(12 sources)") {
		t.Fatalf("expected source count annotation:\n%s", markdown)
	}
	if !strings.Contains(markdown, "[Story 1](https://example.com/1)") {
		t.Fatalf("expected linked title:\n%s", markdown)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	if opts.BacklogThreshold != 50 || opts.AwayLookback != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
