// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package owned

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// block is the control block shared by every handle and lease aliasing
// one payload. It is the only place that destroys the payload.
//
// The counters are atomic so the increment paths stay cheap, but every
// decision that can destroy the payload or release the block (decrement,
// inspect both counters, maybe destroy) runs under mu. Lease
// acquisition also runs under mu so that a lease can never pin a
// payload that a concurrent reset has already destroyed.
type block struct {
	mu sync.Mutex

	// payload is the type-erased object. It is cleared when the
	// payload is destroyed and when the block is released.
	payload    any
	hasPayload bool

	// deferred is set when a reset was requested while leases were
	// outstanding. The payload stays alive for those leases, but every
	// handle reports inactive from this point on.
	deferred bool

	// released is set once both counters reached zero and the block
	// was retired. Nothing may take a new reference after that.
	released bool

	uses   atomic.Uint32
	leases atomic.Uint32

	onDestroy []func()
	tracker   *Tracker
	logger    *slog.Logger
}

// Option configures the control block created by [Make].
type Option func(*block)

// WithTracker records the block's lifecycle events in tracker.
func WithTracker(tracker *Tracker) Option {
	return func(b *block) {
		b.tracker = tracker
	}
}

// WithLogger sets the logger used to report payload Close errors.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *block) {
		b.logger = logger
	}
}

// OnDestroy registers fn to run when the payload is destroyed, after
// its Close method (if any). Callbacks run with the control block
// locked and must not touch handles or leases of the same payload.
func OnDestroy(fn func()) Option {
	return func(b *block) {
		b.onDestroy = append(b.onDestroy, fn)
	}
}

func newBlock(payload any, options []Option) *block {
	b := &block{
		payload:    payload,
		hasPayload: true,
	}
	for _, option := range options {
		option(b)
	}
	if b.tracker != nil {
		b.tracker.allocated.Add(1)
	}
	return b
}

// retain takes one more unit of use ownership. Returns false if the
// block was already released, in which case the caller must behave as
// if it held no block at all.
func (b *block) retain() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return false
	}
	b.incUse()
	return true
}

func (b *block) incUse() {
	b.uses.Add(1)
}

func (b *block) incLease() {
	b.leases.Add(1)
}

// decUse gives back one unit of use ownership. When the use count
// reaches zero the payload is reset. Returns true if this call
// destroyed the payload or deferred its destruction to the
// outstanding leases.
func (b *block) decUse() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	destroyed := false
	if b.uses.Add(^uint32(0)) == 0 {
		destroyed = b.resetLocked()
	}
	b.releaseIfUnreferencedLocked()
	return destroyed
}

// decLease gives back one unit of lease ownership. Returns true when a
// deferred reset is pending and this was the last lease, meaning the
// caller must now complete the destruction. Caller holds mu.
func (b *block) decLease() bool {
	remaining := b.leases.Add(^uint32(0))
	return b.deferred && remaining == 0
}

// reset is the kill switch: it destroys the payload now if no lease
// holds it, or marks destruction as deferred otherwise.
func (b *block) reset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.resetLocked()
}

func (b *block) resetLocked() bool {
	if !b.hasPayload {
		return false
	}
	if b.leases.Load() > 0 {
		if !b.deferred {
			b.deferred = true
			if b.tracker != nil {
				b.tracker.deferred.Add(1)
			}
		}
		return true
	}
	b.destroyLocked()
	return true
}

func (b *block) destroyLocked() {
	payload := b.payload
	b.payload = nil
	b.hasPayload = false

	if closer, ok := payload.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			b.log().Warn("closing owned payload failed",
				"type", typeName(payload),
				"error", err,
			)
		}
	}
	for _, fn := range b.onDestroy {
		fn()
	}
	if b.tracker != nil {
		b.tracker.destroyed.Add(1)
	}
}

// releaseIfUnreferencedLocked retires the block once no handle and no
// lease refer to it. Runs at most once per block.
func (b *block) releaseIfUnreferencedLocked() {
	if b.released || !b.unreferenced() {
		return
	}
	// A payload can only survive to this point if nothing ever asked
	// for a reset, which the last decUse always does. Destroy it here
	// anyway so the payload can never outlive its block.
	if b.hasPayload {
		b.destroyLocked()
	}
	b.released = true
	b.onDestroy = nil
	if b.tracker != nil {
		b.tracker.released.Add(1)
	}
}

func (b *block) active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.activeLocked()
}

func (b *block) activeLocked() bool {
	return b.hasPayload && !b.deferred
}

func (b *block) unreferenced() bool {
	return b.uses.Load() == 0 && b.leases.Load() == 0
}

func (b *block) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
