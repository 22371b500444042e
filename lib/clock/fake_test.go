// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfter(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(5 * time.Second)

	fake.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(5 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(5*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if fake.Pending() != 0 {
		t.Errorf("Pending() = %d after one-shot fired, want 0", fake.Pending())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTicker(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)

	fake.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after one period")
	}

	// Three periods at once: one tick buffered, the rest dropped.
	fake.Advance(3 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}

	ticker.Stop()
	fake.Advance(time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if fake.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, want 0", fake.Pending())
	}

	ticker.Reset(2 * time.Second)
	fake.Advance(2 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("reset ticker did not fire")
	}
}

func TestFakeWaitForWaiters(t *testing.T) {
	fake := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-fake.After(time.Minute)
		close(done)
	}()

	fake.WaitForWaiters(1)
	fake.Advance(time.Minute)
	<-done
}
