// Package supervisor drives repeated execution of the host program,
// distinguishing crash loops from network outages and applying
// different restart policies to each.
package supervisor

import "time"

// Backoff returns the wait before retry number attempt:
// min(base * 2^(attempt-1), max). Attempt is 1-based, so attempt 1
// yields base. Attempts <= 0 yield sub-base values; callers own keeping
// attempt positive.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		return base >> uint(1-attempt)
	}

	d := base
	for n := 1; n < attempt; n++ {
		d <<= 1
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
