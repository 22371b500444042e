// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	channel  chan time.Time

	// period is non-zero for tickers, which are rescheduled after
	// firing instead of being removed.
	period  time.Duration
	stopped bool
}

// Fake returns a FakeClock stopped at start.
func Fake(start time.Time) *FakeClock {
	clock := &FakeClock{now: start}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&waiter{deadline: c.now.Add(d), channel: channel})
	return channel
}

// NewTicker registers a periodic waiter.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	ticker := &waiter{deadline: c.now.Add(d), channel: channel, period: d}
	c.addLocked(ticker)

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ticker.stopped = true
			c.changed.Broadcast()
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			ticker.period = d
			ticker.deadline = c.now.Add(d)
			if ticker.stopped {
				ticker.stopped = false
				c.addLocked(ticker)
			}
		},
	}
}

func (c *FakeClock) addLocked(w *waiter) {
	if !slices.Contains(c.waiters, w) {
		c.waiters = append(c.waiters, w)
	}
	c.changed.Broadcast()
}

// Advance moves time forward by d and fires every waiter whose
// deadline has been reached, earliest first. A ticker spanning several
// periods fires once per period, but ticks that find the channel full
// are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	for {
		due := c.dueLocked()
		if due == nil {
			break
		}
		select {
		case due.channel <- due.deadline:
		default:
		}
		if due.period > 0 {
			due.deadline = due.deadline.Add(due.period)
		} else {
			c.waiters = slices.DeleteFunc(c.waiters, func(w *waiter) bool { return w == due })
		}
	}
	c.waiters = slices.DeleteFunc(c.waiters, func(w *waiter) bool { return w.stopped })
	c.changed.Broadcast()
}

// dueLocked returns the earliest waiter whose deadline is not after
// now, or nil.
func (c *FakeClock) dueLocked() *waiter {
	var earliest *waiter
	for _, w := range c.waiters {
		if w.stopped || w.deadline.After(c.now) {
			continue
		}
		if earliest == nil || w.deadline.Before(earliest.deadline) {
			earliest = w
		}
	}
	return earliest
}

// WaitForWaiters blocks until at least n timers or tickers are
// registered. Call it before Advance to make sure the goroutine under
// test has reached its wait.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// Pending returns the number of registered, unstopped waiters.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped {
			count++
		}
	}
	return count
}
