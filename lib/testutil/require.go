// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the part of testing.TB the helpers use.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test. A closed channel fails the test too.
//
//	frame := testutil.RequireReceive(t, sampler.Frames(), 5*time.Second, "waiting for frame")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", describe(msgAndArgs))
		}
		return v
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v: %s", timeout, describe(msgAndArgs))
	}
	panic("unreachable")
}

// RequireClosed drains ch until it is closed, or fails the test once
// timeout has passed. Returns the number of values drained. Frame
// channels may still hold a last frame when their producer stops, so
// draining is what "closed" means here.
//
//	testutil.RequireClosed(t, sampler.Frames(), 5*time.Second, "frames closed after Run")
func RequireClosed[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) int {
	t.Helper()
	deadline := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer deadline.Stop()

	drained := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return drained
			}
			drained++
		case <-deadline.C:
			t.Fatalf("channel still open after %v (%d values drained): %s", timeout, drained, describe(msgAndArgs))
			return drained
		}
	}
}

// describe formats optional message arguments: a single value, or a
// format string followed by its arguments.
func describe(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return "(no message)"
	case 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
