package settings

import "testing"

func TestWellKnownKeys(t *testing.T) {
	t.Parallel()

	// These key names are part of the operator surface; renaming one
	// silently orphans every stored override.
	want := map[string]string{
		KeyAIMode:                  "ai_mode",
		KeyProgressiveSummaryHours: "progressive_summary_hours",
		KeyDigestBacklogThreshold:  "digest_backlog_threshold",
		KeyDigestAwayHours:         "digest_away_hours",
		KeyRetentionDays:           "retention_days",
	}
	for got, expected := range want {
		if got != expected {
			t.Fatalf("key mismatch: got %q want %q", got, expected)
		}
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	truthy := []string{"1", "true", "TRUE", " yes ", "on", "Enabled"}
	for _, v := range truthy {
		if !ParseBool(v) {
			t.Fatalf("expected %q to parse as true", v)
		}
	}
	falsy := []string{"", "0", "false", "off", "no", "banana"}
	for _, v := range falsy {
		if ParseBool(v) {
			t.Fatalf("expected %q to parse as false", v)
		}
	}
}
