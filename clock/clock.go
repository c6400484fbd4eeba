// Package clock is the time source for scheduled work. Production code uses
// Real(); tests use a Fake that only moves when told to.
package clock

import "time"

// Clock supplies the current time and one-shot callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has elapsed. If d <= 0 the call is immediate
	// (on a new goroutine for Real, synchronously for Fake).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call and reports whether it was still pending.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
