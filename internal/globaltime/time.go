// Package globaltime is the process-wide clock. Persisted timestamps,
// circuit cooldowns, digest windows, and budget days all read it, so a test
// that pins the clock pins the whole system's notion of now.
package globaltime

import (
	"sync"
	"time"
)

var (
	clockMu sync.RWMutex
	clock   = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	clockMu.RLock()
	defer clockMu.RUnlock()
	return clock()
}

// UTC returns the current time in UTC. All persisted timestamps go through
// here.
func UTC() time.Time {
	return Now().UTC()
}

// StartOfDayUTC returns today's midnight in UTC, the boundary the daily
// token budget resets on.
func StartOfDayUTC() time.Time {
	now := UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// SetMockTime pins the clock for tests.
func SetMockTime(t time.Time) {
	clockMu.Lock()
	defer clockMu.Unlock()
	clock = func() time.Time { return t }
}

// ResetTime restores the wall clock.
func ResetTime() {
	clockMu.Lock()
	defer clockMu.Unlock()
	clock = time.Now
}
