// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. After and AfterFunc register pending
// waiters that fire when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called.
//
// AfterFunc callbacks are invoked synchronously during Advance in
// deadline order. Do not call Advance from within a callback — that
// would deadlock.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
	changed *sync.Cond
}

// waiter is a pending After channel or AfterFunc callback.
type waiter struct {
	deadline time.Time
	channel  chan time.Time // nil for AfterFunc waiters
	callback func()         // nil for After waiters
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives after duration d elapses. If
// d <= 0, the channel receives immediately without registering a waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, &waiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.changed.Broadcast()
	return channel
}

// AfterFunc schedules f to be called after duration d. If d <= 0, f is
// called synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	if d <= 0 {
		c.mu.Unlock()
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}
	defer c.mu.Unlock()

	w := &waiter{
		deadline: c.current.Add(d),
		callback: f,
	}
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w.stopped || w.fired {
				return false
			}
			w.stopped = true
			return true
		},
	}
}

// Advance moves the fake time forward by d, firing every waiter whose
// deadline falls within the advanced interval, in deadline order.
// Callbacks run synchronously on the calling goroutine; channel waiters
// receive their fire time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)

	for {
		next := c.nextDueLocked(target)
		if next == nil {
			break
		}
		next.fired = true
		c.current = next.deadline
		if next.channel != nil {
			next.channel <- next.deadline
		}
		if next.callback != nil {
			// Release the lock: the callback may register new
			// timers or stop existing ones.
			c.mu.Unlock()
			next.callback()
			c.mu.Lock()
		}
	}

	c.current = target
	c.compactLocked()
	c.mu.Unlock()
}

// nextDueLocked returns the unfired, unstopped waiter with the earliest
// deadline at or before target, or nil if none is due.
func (c *FakeClock) nextDueLocked(target time.Time) *waiter {
	var due []*waiter
	for _, w := range c.waiters {
		if !w.fired && !w.stopped && !w.deadline.After(target) {
			due = append(due, w)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	return due[0]
}

// compactLocked drops fired and stopped waiters.
func (c *FakeClock) compactLocked() {
	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.fired && !w.stopped {
			live = append(live, w)
		}
	}
	c.waiters = live
}

// WaitForTimers blocks until at least n pending waiters are registered.
// Use this to synchronize with a goroutine that is about to schedule a
// timer, eliminating the race between timer registration and Advance.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingTimers returns the number of registered, unfired waiters.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.fired && !w.stopped {
			count++
		}
	}
	return count
}
