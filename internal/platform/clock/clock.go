// Package clock abstracts wall time and scheduled callbacks so timers can be driven in tests.
package clock

import "time"

// Clock provides the current time and cancellable scheduled callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f in its own goroutine once d has elapsed. The returned Timer cancels it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback. Returns false if it already ran or was stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package. Now is reported in UTC.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
