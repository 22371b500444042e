// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scene holds the telemetry scene graph: a tree of groups,
// gauges, labels and histories that the sampler updates and the
// widget renders.
//
// Every node lives behind an [owned.Handle]. A [Graph] keeps one
// handle per node in an index keyed by [NodeID], and each [Group]
// owns handles to its children. Parent links are plain NodeIDs, never
// handles, so the tree holds no ownership cycles.
//
// Detaching or replacing a node resets its handle, which makes every
// alias (for example a handle the renderer obtained from [Lookup])
// report inactive at once. A [Graph.Walk] in progress holds a lease on
// each node it visits, so a node detached mid-walk stays intact until
// the walk moves past it.
//
// Node fields are guarded by each node's own mutex; the ownership
// scheme only protects node lifetime.
package scene
