// Package clock abstracts time so timer-driven build progress can be tested
// without waiting.
//
// Production code injects Real(). Tests inject NewManual(start) and move time
// forward with Advance, which fires due callbacks synchronously in deadline
// order. A callback that schedules another timer due within the same Advance
// window fires during that Advance, so self-rearming timers behave as they
// would in real time.
package clock

import "time"

// Clock is the subset of the time package the engine needs
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// AfterFunc calls f once d has elapsed and returns a handle that can
	// cancel the pending call
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Real returns a Clock backed by the time package
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
