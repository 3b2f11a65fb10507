package digest

import (
	"strings"
	"testing"
	"time"
)

// The candidate query carries the selection policy; guard the clauses that
// decide what a digest may contain and in which order.
func TestCandidateQueryPolicy(t *testing.T) {
	t.Parallel()

	if !strings.Contains(selectDigestCandidatesSQL, "r.read OR r.not_interested") {
		t.Fatal("candidate query must exclude read and dismissed clusters")
	}

	memberCount := strings.Index(selectDigestCandidatesSQL, "c.member_count DESC")
	weight := strings.Index(selectDigestCandidatesSQL, "COALESCE(s.weight, 0) DESC")
	lastSeen := strings.Index(selectDigestCandidatesSQL, "c.last_seen_at DESC")
	if memberCount < 0 || weight < 0 || lastSeen < 0 {
		t.Fatalf("candidate ordering clause missing: %d %d %d", memberCount, weight, lastSeen)
	}
	if !(memberCount < weight && weight < lastSeen) {
		t.Fatal("candidate ordering must be coverage, then source weight, then recency")
	}
}

func TestDecideTrigger(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-30 * time.Hour)
	lookback := 24 * time.Hour

	cases := []struct {
		name       string
		backlog    int
		threshold  int
		lastDigest *time.Time
		want       string
		fire       bool
	}{
		{"empty backlog never fires", 0, 50, nil, "", false},
		{"backlog at threshold fires", 50, 50, &recent, TriggerBacklog, true},
		{"backlog above threshold fires", 80, 50, &recent, TriggerBacklog, true},
		{"small backlog with recent digest waits", 3, 50, &recent, "", false},
		{"small backlog with stale digest fires away", 3, 50, &stale, TriggerAway, true},
		{"never digested counts as away", 3, 50, nil, TriggerAway, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, fire := decideTrigger(tc.backlog, tc.threshold, tc.lastDigest, now, lookback)
			if fire != tc.fire || got != tc.want {
				t.Fatalf("decideTrigger(%d, %d) = (%q, %t), want (%q, %t)",
					tc.backlog, tc.threshold, got, fire, tc.want, tc.fire)
			}
		})
	}
}

func TestDecideTrigger_ExactLookbackBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	exactly := now.Add(-24 * time.Hour)
	got, fire := decideTrigger(1, 50, &exactly, now, 24*time.Hour)
	if !fire || got != TriggerAway {
		t.Fatalf("digest exactly lookback old should fire away, got (%q, %t)", got, fire)
	}
}
