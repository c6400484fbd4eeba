package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time stands still until Advance or Set is
// called; pending callbacks then run synchronously in deadline order, and the
// clock reads exactly the deadline while each one runs. Callbacks may
// register further AfterFunc calls, which fire within the same Advance if
// they fall before its target.
//
// Do not call Advance from inside a callback.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	seq      uint64 // registration order breaks deadline ties
	fn       func()
	done     bool // fired or stopped
}

type fakeTimer struct {
	clock *Fake
	w     *waiter
}

// NewFake returns a Fake reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	if d <= 0 {
		fn()
		return &fakeTimer{clock: f, w: &waiter{done: true}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	w := &waiter{deadline: f.now.Add(d), seq: f.seq, fn: fn}
	f.waiters = append(f.waiters, w)
	return &fakeTimer{clock: f, w: w}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.w.done {
		return false
	}
	t.w.done = true
	t.clock.removeLocked(t.w)
	return true
}

// Advance moves the clock forward by d, firing every callback whose
// deadline is reached on the way.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()
	f.advanceTo(target)
}

// Set moves the clock to t. Moving backwards only changes Now.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	if !t.After(f.now) {
		f.now = t
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.advanceTo(t)
}

func (f *Fake) advanceTo(target time.Time) {
	for {
		f.mu.Lock()
		w := f.earliestLocked(target)
		if w == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		w.done = true
		f.removeLocked(w)
		if w.deadline.After(f.now) {
			f.now = w.deadline
		}
		f.mu.Unlock()

		w.fn()
	}
}

// Pending returns the number of callbacks that have not fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

func (f *Fake) earliestLocked(target time.Time) *waiter {
	var first *waiter
	for _, w := range f.waiters {
		if w.deadline.After(target) {
			continue
		}
		if first == nil || w.deadline.Before(first.deadline) ||
			(w.deadline.Equal(first.deadline) && w.seq < first.seq) {
			first = w
		}
	}
	return first
}

func (f *Fake) removeLocked(w *waiter) {
	for i, cur := range f.waiters {
		if cur == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}
