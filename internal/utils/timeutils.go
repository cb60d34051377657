package utils

import "time"

// WithinWindow reports whether ts falls in (now-window, now]. A non-positive window accepts everything up to now.
func WithinWindow(ts, now time.Time, window time.Duration) bool {
	if ts.After(now) {
		return false
	}
	if window <= 0 {
		return true
	}
	return now.Sub(ts) < window
}
