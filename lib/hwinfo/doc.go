// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo reads host telemetry for the scene sampler.
//
// All procfs readers hang off a [Reader] whose root defaults to /proc,
// so tests can point them at a synthetic tree:
//
//   - CPU busy/idle jiffies from /proc/stat ([Reader.CPU], [CPUPercent])
//   - Memory and swap from /proc/meminfo ([Reader.Memory])
//   - Load averages from /proc/loadavg ([Reader.Load])
//   - Uptime from /proc/uptime ([Reader.Uptime])
//   - Per-interface byte counters from /proc/net/dev ([Reader.Network],
//     [NetworkRates])
//
// Disk usage comes from statfs(2) ([DiskUsage]). Static host identity
// (hostname, kernel, CPU model and count) comes from [Probe], which
// never fails: unreadable sources leave fields empty.
package hwinfo
