// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package owned

import "sync/atomic"

// Tracker counts lifecycle events of every control block created with
// [WithTracker]. One tracker is typically shared by all nodes of a
// scene graph. The zero Tracker is ready to use.
type Tracker struct {
	allocated atomic.Int64
	destroyed atomic.Int64
	deferred  atomic.Int64
	released  atomic.Int64
}

// Stats is a point-in-time copy of a Tracker's counters.
type Stats struct {
	// Allocated is the number of payloads created.
	Allocated int64 `json:"allocated" cbor:"allocated"`

	// Destroyed is the number of payloads destroyed.
	Destroyed int64 `json:"destroyed" cbor:"destroyed"`

	// Deferred is the number of resets that had to wait for leases.
	Deferred int64 `json:"deferred" cbor:"deferred"`

	// Released is the number of control blocks retired after both
	// their use and lease counts reached zero.
	Released int64 `json:"released" cbor:"released"`
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		Allocated: t.allocated.Load(),
		Destroyed: t.destroyed.Load(),
		Deferred:  t.deferred.Load(),
		Released:  t.released.Load(),
	}
}

// Live returns the number of control blocks not yet released.
func (t *Tracker) Live() int64 {
	stats := t.Stats()
	return stats.Allocated - stats.Released
}

// Pending returns the number of payloads created and not yet
// destroyed, including those held alive only by leases.
func (s Stats) Pending() int64 {
	return s.Allocated - s.Destroyed
}
