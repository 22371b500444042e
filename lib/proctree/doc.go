// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proctree tracks the processes of the host as a registry of
// owned handles.
//
// [Tree.Refresh] scans /proc/<pid>/stat, adds new processes, updates
// the counters of known ones and retires the ones that exited. A
// retired process has its handle reset, so any holder of a handle from
// [Tree.Lookup] (the widget's selected process, for instance) sees it
// go inactive on the next check without being told. A process whose
// pid is reused is detected by its start time and treated as a new
// process.
//
// CPU usage is reported as a share of total machine time between two
// refreshes, computed from the aggregate line of /proc/stat.
package proctree
