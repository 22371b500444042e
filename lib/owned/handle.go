// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package owned

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Handle is one unit of shared ownership of a payload viewed as type
// T. The zero Handle and a nil *Handle are inert: they own nothing and
// report inactive.
//
// Every Handle obtained from this package must eventually be dropped.
// Dropping the last handle destroys the payload, or defers destruction
// until outstanding leases are released.
type Handle[T any] struct {
	b atomic.Pointer[block]
}

// Make allocates a payload and returns its first handle. A nil
// interface value yields an inert handle.
func Make[T any](value T, options ...Option) *Handle[T] {
	if any(value) == nil {
		return &Handle[T]{}
	}
	b := newBlock(value, options)
	b.incUse()
	handle := &Handle[T]{}
	handle.b.Store(b)
	return handle
}

func (h *Handle[T]) load() *block {
	if h == nil {
		return nil
	}
	return h.b.Load()
}

// Clone returns a new handle sharing ownership of the same payload.
// Cloning an inert handle returns an inert handle.
func (h *Handle[T]) Clone() *Handle[T] {
	clone := &Handle[T]{}
	if b := h.load(); b != nil && b.retain() {
		clone.b.Store(b)
	}
	return clone
}

// Take moves ownership out of h into a new handle. h becomes inert;
// the use count is unchanged.
func (h *Handle[T]) Take() *Handle[T] {
	moved := &Handle[T]{}
	if h == nil {
		return moved
	}
	if b := h.b.Swap(nil); b != nil {
		moved.b.Store(b)
	}
	return moved
}

// Drop gives up this handle's ownership. Dropping twice, or dropping
// an inert handle, does nothing.
func (h *Handle[T]) Drop() {
	if h == nil {
		return
	}
	if b := h.b.Swap(nil); b != nil {
		b.decUse()
	}
}

// Reset invalidates the payload for every handle aliasing it, not just
// h. The payload is destroyed immediately if no lease holds it;
// otherwise destruction happens when the last lease is released. h
// keeps its unit of ownership and must still be dropped.
func (h *Handle[T]) Reset() {
	if b := h.load(); b != nil {
		b.reset()
	}
}

// Active reports whether the payload is alive and has not been reset.
func (h *Handle[T]) Active() bool {
	b := h.load()
	return b != nil && b.active()
}

// Lease borrows the payload for the duration of a call. The returned
// lease is inert if the handle is inactive or the payload is not a T.
func (h *Handle[T]) Lease() *Lease[T] {
	return acquire[T](h.load())
}

// Get returns the payload without leasing it. The payload may be
// destroyed by another goroutine at any moment after Get returns; use
// it for diagnostics and tests, never for normal access.
func (h *Handle[T]) Get() (T, bool) {
	var zero T
	b := h.load()
	if b == nil {
		return zero, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasPayload {
		return zero, false
	}
	value, ok := b.payload.(T)
	return value, ok
}

// Counts returns the current use and lease counts of the payload's
// control block. Both are zero for an inert handle.
func (h *Handle[T]) Counts() (uses, leases uint32) {
	b := h.load()
	if b == nil {
		return 0, 0
	}
	return b.uses.Load(), b.leases.Load()
}

// Same reports whether h and other alias the same payload.
func (h *Handle[T]) Same(other interface{ load() *block }) bool {
	b := h.load()
	return b != nil && b == other.load()
}

func (h *Handle[T]) String() string {
	b := h.load()
	if b == nil {
		return fmt.Sprintf("owned.Handle[%s](empty)", reflect.TypeFor[T]())
	}
	uses, leases := b.uses.Load(), b.leases.Load()
	return fmt.Sprintf("owned.Handle[%s](uses=%d leases=%d active=%t)",
		reflect.TypeFor[T](), uses, leases, b.active())
}

// Cast returns a handle viewing h's payload as a T. If the payload is
// currently not a T (or h is inert) the result is inert and no counter
// changes. On success the result shares ownership with h and must be
// dropped independently.
//
// The check is made only once, here. Leases taken from the result
// check again at borrow time.
func Cast[T, U any](h *Handle[U]) *Handle[T] {
	cast := &Handle[T]{}
	b := h.load()
	if b == nil {
		return cast
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released || !b.hasPayload {
		return cast
	}
	if _, ok := b.payload.(T); !ok {
		return cast
	}
	b.incUse()
	cast.b.Store(b)
	return cast
}

func typeName(value any) string {
	if value == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", value)
}
