package fetch

import "time"

// CooldownForFailures maps a consecutive-failure streak to how long the
// source's circuit stays open. The steps are deliberately coarse; a feed that
// fails six polls in a row is parked for a day.
func CooldownForFailures(failures int) time.Duration {
	switch {
	case failures < 3:
		return 0
	case failures == 3:
		return time.Hour
	case failures == 4:
		return 4 * time.Hour
	case failures == 5:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// OpenUntil returns the breaker deadline for a failure streak, or nil while
// the streak is below the first step.
func OpenUntil(now time.Time, failures int) *time.Time {
	cooldown := CooldownForFailures(failures)
	if cooldown == 0 {
		return nil
	}
	deadline := now.Add(cooldown)
	return &deadline
}
