// Package clock abstracts deferred execution so timer-driven code can
// be tested without sleeping. Production code injects Real(); tests
// inject a Fake and advance it explicitly.
package clock

import "time"

type Clock interface {
	Now() time.Time

	// AfterFunc schedules f to run once d has elapsed. The returned
	// Timer cancels the pending call with Stop.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending deferred call.
type Timer interface {
	// Stop prevents the call from firing. Returns false if it already
	// fired or was already stopped.
	Stop() bool
}
