// Package clock isolates wall-clock reads and delayed callbacks so timer math
// and debounced persistence can run against a virtual clock in tests.
//
// Both clocks come from github.com/jonboulle/clockwork. Callbacks registered
// with AfterFunc run on their own goroutine in both, like time.AfterFunc.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the single time source used by the timer store, the persistence
// gateway and the reconciliation client. Every clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer = clockwork.Timer

// Fake is a manually advanced clock. Advance fires every callback that
// became due.
type Fake = clockwork.FakeClock

// New returns the system clock.
func New() Clock { return clockwork.NewRealClock() }

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake { return clockwork.NewFakeClockAt(start) }

// Millis converts t to milliseconds since the Unix epoch.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// FromMillis converts milliseconds since the Unix epoch to a time.Time.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
