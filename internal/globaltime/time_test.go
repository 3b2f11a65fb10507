package globaltime

import (
	"testing"
	"time"
)

func TestStartOfDayUTC(t *testing.T) {
	SetMockTime(time.Date(2026, 3, 2, 17, 45, 12, 0, time.FixedZone("CET", 3600)))
	defer ResetTime()

	got := StartOfDayUTC()
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected day start: got %v want %v", got, want)
	}
}

func TestSetMockTime(t *testing.T) {
	pinned := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	SetMockTime(pinned)
	defer ResetTime()

	if !UTC().Equal(pinned) {
		t.Fatalf("clock not pinned: got %v", UTC())
	}
}
