package rules

import "time"

const (
	MessageWindow = 24 * time.Hour
)

// WindowResetAt is when a quota window opened at start closes.
func WindowResetAt(start time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = MessageWindow
	}
	return start.Add(window).UTC()
}

// WindowExpired reports whether the window has closed; a window closes at
// exactly resetAt.
func WindowExpired(now time.Time, resetAt *time.Time) bool {
	if resetAt == nil {
		return false
	}
	return !now.Before(*resetAt)
}

// SecondsUntil rounds partial seconds up and never goes below zero, so a
// clock running backwards or a stale reset time reads as 0.
func SecondsUntil(now time.Time, resetAt *time.Time) int64 {
	if resetAt == nil {
		return 0
	}
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
