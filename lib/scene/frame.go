// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"time"

	"github.com/bureau-foundation/telescene/lib/owned"
)

// Frame is a plain-data copy of a graph, in walk order. Renderers and
// the snapshot encoder work on frames, never on live nodes.
type Frame struct {
	Time      time.Time   `cbor:"time" json:"time"`
	Nodes     []FrameNode `cbor:"nodes" json:"nodes"`
	Ownership owned.Stats `cbor:"ownership" json:"ownership"`
}

// FrameNode is one node of a Frame. Only the fields relevant to Kind
// are set.
type FrameNode struct {
	ID     NodeID `cbor:"id" json:"id"`
	Parent NodeID `cbor:"parent,omitempty" json:"parent,omitempty"`
	Depth  int    `cbor:"depth" json:"depth"`
	Kind   Kind   `cbor:"kind" json:"kind"`
	Name   string `cbor:"name" json:"name"`

	Children int       `cbor:"children,omitempty" json:"children,omitempty"`
	Value    float64   `cbor:"value,omitempty" json:"value,omitempty"`
	Max      float64   `cbor:"max,omitempty" json:"max,omitempty"`
	Unit     string    `cbor:"unit,omitempty" json:"unit,omitempty"`
	Text     string    `cbor:"text,omitempty" json:"text,omitempty"`
	Samples  []float64 `cbor:"samples,omitempty" json:"samples,omitempty"`
}

// Fraction returns Value/Max clamped to [0, 1], for gauges.
func (n FrameNode) Fraction() float64 {
	if n.Max <= 0 {
		return 0
	}
	return min(max(n.Value/n.Max, 0), 1)
}

// Find returns the first node named name, in walk order.
func (f Frame) Find(name string) (FrameNode, bool) {
	for _, node := range f.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return FrameNode{}, false
}

// ChildrenOf returns the direct children of id, in order.
func (f Frame) ChildrenOf(id NodeID) []FrameNode {
	var children []FrameNode
	for _, node := range f.Nodes {
		if node.Parent == id {
			children = append(children, node)
		}
	}
	return children
}
