// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry drives the sampling loop: it reads host metrics
// from lib/hwinfo, refreshes the lib/proctree registry, and writes the
// readings into a lib/scene graph whose frames the widget renders.
//
// The scene built by a [Sampler] looks like:
//
//	root
//	├── title        label: hostname, kernel, CPU model
//	├── host         group
//	│   ├── cpu          gauge, percent
//	│   ├── cpu history  history, percent
//	│   ├── memory       gauge, bytes
//	│   ├── swap         gauge, bytes
//	│   ├── disk         gauge, bytes
//	│   ├── load         label
//	│   └── uptime       label
//	├── network      group, one group per interface holding
//	│                receive and transmit histories (bytes/s)
//	└── processes    group, rebuilt every sample: one group per
//	                 process (named by pid) holding command, state,
//	                 cpu share and resident nodes
//
// Gauges and histories are updated in place through leases
// ([scene.Update]). The process group is swapped wholesale with
// [scene.Graph.Replace], which retires the previous rows: anything
// still aliasing an old row sees it go inactive.
package telemetry
