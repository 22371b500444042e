// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package owned provides shared ownership of a payload with explicit,
// shared invalidation and in-flight borrows.
//
// A payload is allocated with [Make], which returns the first
// [Handle]. Handles are cloned to share ownership and dropped when the
// owner is done. Unlike an ordinary reference count, [Handle.Reset] is
// a kill switch for the whole object: every handle aliasing the same
// payload reports inactive immediately, no matter how many clones are
// still held.
//
// Code that needs to touch the payload takes a [Lease] from a handle.
// A lease pins the payload: if the last handle is dropped (or any
// handle is reset) while a lease is live, destruction is deferred until
// the last lease is released. This is what lets a renderer walk the
// scene graph while a sampler goroutine concurrently detaches and
// replaces nodes underneath it.
//
// [Cast] produces a handle of a different declared type aliasing the
// same payload. The cast only checks that the payload currently
// satisfies the target type; every lease re-checks at borrow time.
//
// Failure is always represented as emptiness. A nil handle, a handle
// whose cast failed, and a handle whose payload is gone all report
// Active() == false, and leases taken from them are inert: Ok()
// returns false and Value() returns the zero value and false. Nothing
// in this package panics on misuse of an inert handle or lease.
//
// Payload destruction runs exactly once. If the payload implements
// io.Closer, Close is called; errors are logged. [OnDestroy] adds a
// callback. A [Tracker] counts allocations, destructions, deferred
// resets and released control blocks, for tests and diagnostics.
//
// Handles and leases must be used through the pointers returned by
// this package. A Handle may be shared between goroutines; a Lease is
// meant to live on one goroutine's stack for the duration of a call,
// typically:
//
//	lease := handle.Lease()
//	defer lease.Release()
//	node, ok := lease.Value()
//	if !ok {
//	    return
//	}
//
// This package has no Bureau-internal dependencies.
package owned
