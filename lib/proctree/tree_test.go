// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proctree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/telescene/lib/testutil"
)

func statLine(pid int, command string, ppid int, utime, stime, start, rss uint64) string {
	return fmt.Sprintf("%d (%s) S %d 1 1 0 -1 4194560 100 0 0 0 %d %d 0 0 20 0 1 0 %d 123456 %d 0 0\n",
		pid, command, ppid, utime, stime, start, rss)
}

type fakeProc struct {
	t    *testing.T
	root string
}

func newFakeProc(t *testing.T) *fakeProc {
	t.Helper()
	proc := &fakeProc{t: t, root: t.TempDir()}
	proc.machine(1000, 1000)
	return proc
}

func (p *fakeProc) write(name, content string) {
	p.t.Helper()
	testutil.WriteFiles(p.t, p.root, map[string]string{name: content})
}

// machine writes the aggregate CPU line with the given busy and idle
// jiffies (all busy time is user time).
func (p *fakeProc) machine(busy, idle uint64) {
	p.write("stat", fmt.Sprintf("cpu  %d 0 0 %d 0 0 0 0 0 0\n", busy, idle))
}

func (p *fakeProc) process(pid int, command string, ppid int, ticks, start, rss uint64) {
	p.write(fmt.Sprintf("%d/stat", pid), statLine(pid, command, ppid, ticks, 0, start, rss))
}

func (p *fakeProc) exit(pid int) {
	p.t.Helper()
	if err := os.RemoveAll(filepath.Join(p.root, fmt.Sprint(pid))); err != nil {
		p.t.Fatalf("RemoveAll: %v", err)
	}
}

func refresh(t *testing.T, tree *Tree) RefreshStats {
	t.Helper()
	stats, err := tree.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return stats
}

func TestParseStat(t *testing.T) {
	pageSize := uint64(4096)
	sample, err := parseStat(statLine(77, "my (odd) cmd", 1, 30, 12, 5000, 10), pageSize)
	if err != nil {
		t.Fatalf("parseStat: %v", err)
	}
	want := statSample{
		pid:       77,
		ppid:      1,
		command:   "my (odd) cmd",
		state:     "S",
		cpuTicks:  42,
		startTime: 5000,
		rssBytes:  10 * pageSize,
	}
	if sample != want {
		t.Errorf("parseStat() = %+v, want %+v", sample, want)
	}

	for _, line := range []string{
		"",
		"12 no parens S 1",
		"12 (short) S 1 2 3",
		"x (cmd) S 1 1 1 0 -1 0 0 0 0 0 1 1 0 0 20 0 1 0 1 1 1",
		"12 (cmd) S 1 1 1 0 -1 0 0 0 0 0 a 1 0 0 20 0 1 0 1 1 1",
	} {
		if _, err := parseStat(line, pageSize); err == nil {
			t.Errorf("parseStat(%q) succeeded", line)
		}
	}
}

func TestRefreshTracksLifecycle(t *testing.T) {
	proc := newFakeProc(t)
	proc.process(1, "init", 0, 100, 1, 50)
	proc.process(42, "worker", 1, 200, 900, 80)
	proc.write("self/stat", "not a pid directory")

	tree := New(proc.root, nil)
	defer tree.Close()

	if got := refresh(t, tree); got != (RefreshStats{Added: 2}) {
		t.Fatalf("first Refresh = %+v, want 2 added", got)
	}

	worker := tree.Lookup(42)
	defer worker.Drop()
	if !worker.Active() {
		t.Fatal("Lookup(42) inactive after Refresh")
	}

	// 1000 machine jiffies pass; the worker used 250 of them.
	proc.machine(1500, 1500)
	proc.process(42, "worker", 1, 450, 900, 80)
	if got := refresh(t, tree); got != (RefreshStats{Updated: 2}) {
		t.Fatalf("second Refresh = %+v, want 2 updated", got)
	}
	var info Info
	if !ownedInfo(worker, &info) {
		t.Fatal("worker handle lost after update")
	}
	if info.CPUPercent != 25 {
		t.Errorf("worker CPU = %f, want 25", info.CPUPercent)
	}

	proc.exit(42)
	if got := refresh(t, tree); got != (RefreshStats{Updated: 1, Exited: 1}) {
		t.Fatalf("third Refresh = %+v, want 1 updated and 1 exited", got)
	}
	if worker.Active() {
		t.Error("handle to exited process still active")
	}
	if tree.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tree.Len())
	}
}

func TestRefreshDetectsPIDReuse(t *testing.T) {
	proc := newFakeProc(t)
	proc.process(7, "first", 1, 0, 100, 1)
	tree := New(proc.root, nil)
	defer tree.Close()
	refresh(t, tree)

	old := tree.Lookup(7)
	defer old.Drop()

	proc.process(7, "second", 1, 0, 200, 1)
	if got := refresh(t, tree); got != (RefreshStats{Added: 1, Exited: 1}) {
		t.Fatalf("Refresh = %+v, want 1 added and 1 exited", got)
	}
	if old.Active() {
		t.Error("handle to the first process survived pid reuse")
	}

	current := tree.Lookup(7)
	defer current.Drop()
	var info Info
	if !ownedInfo(current, &info) || info.Command != "second" {
		t.Errorf("Lookup(7) = %+v, want the second process", info)
	}
}

func TestTopAndChildren(t *testing.T) {
	proc := newFakeProc(t)
	proc.process(1, "init", 0, 0, 1, 10)
	proc.process(10, "idle", 1, 0, 2, 500)
	proc.process(11, "busy", 1, 0, 3, 20)
	proc.process(12, "grandchild", 11, 0, 4, 30)
	tree := New(proc.root, nil)
	defer tree.Close()
	refresh(t, tree)

	proc.machine(1100, 1100)
	proc.process(11, "busy", 1, 150, 3, 20)
	proc.process(12, "grandchild", 11, 50, 4, 30)
	refresh(t, tree)

	var commands []string
	for _, info := range tree.Top(3) {
		commands = append(commands, info.Command)
	}
	if diff := cmp.Diff([]string{"busy", "grandchild", "idle"}, commands); diff != "" {
		t.Errorf("Top(3) mismatch (-want +got):\n%s", diff)
	}
	if len(tree.Top(0)) != 4 {
		t.Errorf("Top(0) returned %d processes, want 4", len(tree.Top(0)))
	}
	if diff := cmp.Diff([]int{10, 11}, tree.Children(1)); diff != "" {
		t.Errorf("Children(1) mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseRetiresEverything(t *testing.T) {
	proc := newFakeProc(t)
	proc.process(1, "init", 0, 0, 1, 1)
	proc.process(2, "kthreadd", 0, 0, 1, 0)
	tree := New(proc.root, nil)
	refresh(t, tree)

	held := tree.Lookup(1)
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if held.Active() {
		t.Error("handle active after Close")
	}
	held.Drop()

	stats := tree.Stats()
	if stats.Allocated != 2 || stats.Destroyed != 2 || stats.Released != 2 {
		t.Errorf("ownership after Close = %+v", stats)
	}
	if _, err := tree.Refresh(); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh after Close: err = %v, want ErrClosed", err)
	}
}

func TestRefreshMissingRoot(t *testing.T) {
	tree := New(filepath.Join(t.TempDir(), "missing"), nil)
	defer tree.Close()
	if _, err := tree.Refresh(); err == nil {
		t.Error("Refresh on a missing root succeeded")
	}
}
