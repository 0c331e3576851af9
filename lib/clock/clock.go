// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations the chat core depends on.
// Production code injects Real(); tests inject Fake() for deterministic
// control of timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for duration d, then calls f. Returns a Timer
	// whose Stop method cancels the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer represents a scheduled call created by AfterFunc.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the Timer from firing. Returns true if the call stops
// the timer, false if the timer has already fired or been stopped.
// Stop does not wait for an in-flight callback to return.
func (t *Timer) Stop() bool { return t.stopFunc() }
