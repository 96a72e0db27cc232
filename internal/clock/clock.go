// Package clock abstracts one-shot timers so timer-driven components can be
// driven by a manual clock in tests.
package clock

import "time"

// Timer is a cancellable pending callback. Stop reports whether it prevented
// the callback from running.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real returns the wall clock.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stop stops t if it is non-nil.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}
