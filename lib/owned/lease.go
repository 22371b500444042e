// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package owned

import "sync/atomic"

// Lease is a short-lived borrow of a payload. A live lease keeps the
// payload alive even if every handle is dropped or reset while it is
// held. Leases are not shared or stored: take one, use it, release it.
type Lease[T any] struct {
	b     *block
	value T
	live  bool

	released atomic.Bool
}

// acquire builds a lease on b. The liveness check, type assertion and
// lease count increment happen under the block mutex so they cannot
// interleave with a concurrent reset destroying the payload.
func acquire[T any](b *block) *Lease[T] {
	if b == nil {
		return &Lease[T]{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.activeLocked() {
		return &Lease[T]{}
	}
	value, ok := b.payload.(T)
	if !ok {
		return &Lease[T]{}
	}
	b.incLease()
	return &Lease[T]{b: b, value: value, live: true}
}

// Ok reports whether the lease holds the payload.
func (l *Lease[T]) Ok() bool {
	return l != nil && l.live && !l.released.Load()
}

// Value returns the leased payload. The second result is false for an
// inert or released lease, in which case the zero T is returned.
func (l *Lease[T]) Value() (T, bool) {
	if !l.Ok() {
		var zero T
		return zero, false
	}
	return l.value, true
}

// Release gives the lease back. If a reset was deferred on account of
// this lease and it was the last one, the payload is destroyed now.
// Releasing more than once, or releasing an inert lease, does nothing.
func (l *Lease[T]) Release() {
	if l == nil || !l.live || !l.released.CompareAndSwap(false, true) {
		return
	}

	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.decLease() {
		b.resetLocked()
	}
	b.releaseIfUnreferencedLocked()

	var zero T
	l.value = zero
}

// Do leases h's payload, calls fn with it and releases the lease.
// Returns false without calling fn if no lease could be taken.
func Do[T any](h *Handle[T], fn func(T)) bool {
	lease := h.Lease()
	defer lease.Release()

	value, ok := lease.Value()
	if !ok {
		return false
	}
	fn(value)
	return true
}
