// Package clock abstracts wall-clock time so handshake expiry, session
// issuance and cache stamps can be driven by tests.
package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Until returns the time left before deadline by c, or zero once it has passed
func Until(c Clock, deadline time.Time) time.Duration {
	if left := deadline.Sub(c.Now()); left > 0 {
		return left
	}
	return 0
}
