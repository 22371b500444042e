// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proctree

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/bureau-foundation/telescene/lib/hwinfo"
	"github.com/bureau-foundation/telescene/lib/owned"
)

// ErrClosed is returned by Refresh after Close.
var ErrClosed = errors.New("proctree: tree closed")

// Tree is the process registry. It is safe for concurrent use.
type Tree struct {
	mu        sync.Mutex
	root      string
	host      *hwinfo.Reader
	pageSize  uint64
	processes map[int]*owned.Handle[*Process]
	lastCPU   hwinfo.CPUReading
	hasCPU    bool
	closed    bool

	tracker owned.Tracker
	logger  *slog.Logger
}

// RefreshStats counts what one Refresh changed.
type RefreshStats struct {
	Added   int
	Updated int
	Exited  int
}

// New returns an empty tree reading from procRoot (default /proc). A
// nil logger discards output.
func New(procRoot string, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	host := hwinfo.NewReader(procRoot)
	return &Tree{
		root:      host.Root,
		host:      host,
		pageSize:  uint64(os.Getpagesize()),
		processes: make(map[int]*owned.Handle[*Process]),
		logger:    logger,
	}
}

// Refresh rescans the proc root.
func (t *Tree) Refresh() (RefreshStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return RefreshStats{}, ErrClosed
	}

	entries, err := os.ReadDir(t.root)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("proctree: scanning %s: %w", t.root, err)
	}

	var totalDelta uint64
	if reading, err := t.host.CPU(); err != nil {
		t.logger.Warn("reading machine CPU time failed", "error", err)
	} else {
		now, then := reading.Busy+reading.Idle, t.lastCPU.Busy+t.lastCPU.Idle
		if t.hasCPU && now > then {
			totalDelta = now - then
		}
		t.lastCPU, t.hasCPU = reading, true
	}

	var stats RefreshStats
	seen := make(map[int]bool, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || !entry.IsDir() {
			continue
		}
		sample, err := readStat(filepath.Join(t.root, entry.Name(), "stat"), t.pageSize)
		if err != nil {
			// The process can exit between ReadDir and the read.
			if !errors.Is(err, fs.ErrNotExist) {
				t.logger.Debug("skipping unreadable process", "pid", pid, "error", err)
			}
			continue
		}
		seen[pid] = true

		if handle, ok := t.processes[pid]; ok {
			same := false
			owned.Do(handle, func(process *Process) {
				if same = process.StartTime == sample.startTime; same {
					process.update(sample, totalDelta)
				}
			})
			if same {
				stats.Updated++
				continue
			}
			// Same pid, different process: the old one exited.
			t.retireLocked(pid)
			stats.Exited++
		}
		t.processes[pid] = owned.Make(newProcess(sample),
			owned.WithTracker(&t.tracker),
			owned.WithLogger(t.logger),
		)
		stats.Added++
	}

	for pid := range t.processes {
		if !seen[pid] {
			t.retireLocked(pid)
			stats.Exited++
		}
	}

	t.logger.Debug("process tree refreshed",
		"processes", len(t.processes),
		"added", stats.Added,
		"exited", stats.Exited,
	)
	return stats, nil
}

func (t *Tree) retireLocked(pid int) {
	handle := t.processes[pid]
	delete(t.processes, pid)
	handle.Reset()
	handle.Drop()
}

// Lookup returns a new handle to the process with the given pid, or an
// inert handle. The handle goes inactive when the process exits. The
// caller drops it.
func (t *Tree) Lookup(pid int) *owned.Handle[*Process] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processes[pid].Clone()
}

// Children returns the pids whose parent is pid, in ascending order.
func (t *Tree) Children(pid int) []int {
	var children []int
	for _, info := range t.infos() {
		if info.PPID == pid {
			children = append(children, info.PID)
		}
	}
	slices.Sort(children)
	return children
}

// Top returns up to n processes ordered by CPU share, then resident
// memory, then pid. n <= 0 returns all of them.
func (t *Tree) Top(n int) []Info {
	infos := t.infos()
	slices.SortFunc(infos, func(a, b Info) int {
		if c := cmp.Compare(b.CPUPercent, a.CPUPercent); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RSSBytes, a.RSSBytes); c != 0 {
			return c
		}
		return cmp.Compare(a.PID, b.PID)
	})
	if n > 0 && len(infos) > n {
		infos = infos[:n]
	}
	return infos
}

// infos leases every process and copies its fields.
func (t *Tree) infos() []Info {
	t.mu.Lock()
	handles := make([]*owned.Handle[*Process], 0, len(t.processes))
	for _, handle := range t.processes {
		handles = append(handles, handle.Clone())
	}
	t.mu.Unlock()

	infos := make([]Info, 0, len(handles))
	for _, handle := range handles {
		owned.Do(handle, func(process *Process) {
			infos = append(infos, process.Info())
		})
		handle.Drop()
	}
	return infos
}

// Len returns the number of tracked processes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.processes)
}

// Stats returns the ownership counters of the registry's processes.
func (t *Tree) Stats() owned.Stats {
	return t.tracker.Stats()
}

// Close retires every process. Close is idempotent.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	for pid := range t.processes {
		t.retireLocked(pid)
	}
	return nil
}
