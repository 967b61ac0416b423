package memory

import "time"

// Cancel stops a scheduled task. Stop reports whether the task was
// prevented from running.
type Cancel interface {
	Stop() bool
}

// Scheduler runs one-shot deferred work. Every timed behaviour in a round
// goes through it so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Cancel
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	return time.AfterFunc(d, f)
}
