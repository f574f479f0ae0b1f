package queue

import "time"

// maxBackoff caps the retry delay so a long-failing item still gets probed
// at a reasonable cadence.
const maxBackoff = time.Hour

// Backoff returns the delay before the next attempt after the given number
// of completed attempts: base, 2*base, 4*base, ... capped at maxBackoff.
// Attempts below one are treated as one.
func Backoff(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempts < 1 {
		attempts = 1
	}

	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
