// Package clock provides the single source of "now" for session timing.
// All elapsed-time arithmetic in the recorder goes through a Clock so
// tests can drive arbitrary pause/resume sequences deterministically.
package clock

import "time"

// Clock provides time information for the session timer.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time in UTC with second precision,
// the precision every persisted timestamp carries.
type RealClock struct{}

// Now returns the current UTC time truncated to whole seconds.
func (RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// TestClock provides controllable time for testing.
type TestClock struct {
	CurrentTime time.Time
}

// Now returns the test time.
func (t *TestClock) Now() time.Time {
	return t.CurrentTime
}

// Advance moves the test clock forward.
func (t *TestClock) Advance(d time.Duration) {
	t.CurrentTime = t.CurrentTime.Add(d)
}

// Set pins the test clock to an absolute instant.
func (t *TestClock) Set(ts time.Time) {
	t.CurrentTime = ts
}
