package clock

import (
	"sort"
	"sync"
	"time"
)

// NewFake returns a deterministic Clock frozen at initial. Time moves
// only when Advance is called; due callbacks run synchronously inside
// Advance, in deadline order. Do not call Advance from a callback.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeTimer
}

type fakeTimer struct {
	clk      *Fake
	deadline time.Time
	fn       func()
	done     bool
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clk: f, deadline: f.current.Add(d), fn: fn}
	f.waiters = append(f.waiters, t)
	return t
}

// Pending reports how many timers are armed and not yet fired.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.waiters {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires every timer whose
// deadline has been reached, earliest first.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	var due []*fakeTimer
	var rest []*fakeTimer
	for _, t := range f.waiters {
		if !t.done && !t.deadline.After(f.current) {
			t.done = true
			due = append(due, t)
		} else if !t.done {
			rest = append(rest, t)
		}
	}
	f.waiters = rest
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	f.mu.Unlock()

	// Callbacks run without the clock lock so they may arm new timers.
	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
