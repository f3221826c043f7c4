// Package calendar implements the deterministic "next Friday 08:00 UTC"
// arithmetic that drives weekly epoch rollover. All functions are pure:
// time is injected as a unix-second argument, never read from the host
// clock, so callers must supply a monotonic now().
package calendar

import "time"

const (
	fourDays   = 4 * 24 * time.Hour
	sevenDays  = 7 * 24 * time.Hour
	fridayHour = 8
)

// Friday returns the unix second of the first Friday 08:00 UTC that is
// greater than or equal to t.
func Friday(t int64) int64 {
	tm := time.Unix(t, 0).UTC()
	daysUntilFriday := (int(time.Friday) - int(tm.Weekday()) + 7) % 7
	candidate := time.Date(tm.Year(), tm.Month(), tm.Day(), fridayHour, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysUntilFriday)
	if candidate.Before(tm) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate.Unix()
}

// NextFriday returns the unix second of the next Friday 08:00 UTC that is
// at least four days beyond t: Friday rolls to the following Friday,
// Monday stays on this week's Friday unless fewer than four days remain.
func NextFriday(t int64) int64 {
	candidate := Friday(t)
	if candidate-t < int64(fourDays/time.Second) {
		candidate += int64(sevenDays / time.Second)
	}
	return candidate
}
