// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, or time.AfterFunc directly. Real() provides standard
// library behavior; Fake() provides a deterministic clock that advances
// only when Advance is called.
//
// The chat core has exactly two timed behaviors — the fixed-interval
// reconnect timer and the join-message suppression window — and both
// must be testable without wall-clock sleeps. Wiring pattern:
//
//	m := &Manager{clock: clock.Real()}
//
// and in tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	m := &Manager{clock: c}
//	c.WaitForTimers(1)         // block until the reconnect timer exists
//	c.Advance(3 * time.Second) // fire it deterministically
package clock
