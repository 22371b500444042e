// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"fmt"
	"sync"

	"github.com/bureau-foundation/telescene/lib/owned"
)

// NodeID identifies a node within one Graph. Zero is never assigned.
type NodeID uint64

// Kind is the concrete type of a node.
type Kind uint8

const (
	KindGroup Kind = iota + 1
	KindGauge
	KindLabel
	KindHistory
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindGauge:
		return "gauge"
	case KindLabel:
		return "label"
	case KindHistory:
		return "history"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is implemented by the node types of this package.
type Node interface {
	ID() NodeID
	Name() string
	Kind() Kind

	header() *nodeHeader
	fill(*FrameNode)
}

// nodeHeader carries the identity every node shares. id and parent are
// written by the Graph before the node is published and never change
// afterwards.
type nodeHeader struct {
	id     NodeID
	parent NodeID
	name   string
}

func (h *nodeHeader) ID() NodeID          { return h.id }
func (h *nodeHeader) Name() string        { return h.name }
func (h *nodeHeader) header() *nodeHeader { return h }

// Group is an interior node. It owns a handle to each child.
type Group struct {
	nodeHeader

	mu       sync.Mutex
	children []*owned.Handle[Node]
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{nodeHeader: nodeHeader{name: name}}
}

func (g *Group) Kind() Kind { return KindGroup }

func (g *Group) fill(node *FrameNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node.Children = len(g.children)
}

// Len returns the number of children.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.children)
}

func (g *Group) appendChild(child *owned.Handle[Node]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.children = append(g.children, child)
}

// swapChild replaces the child aliasing old with replacement and
// returns the handle it displaced, or nil if old is not a child.
func (g *Group) swapChild(old, replacement *owned.Handle[Node]) *owned.Handle[Node] {
	g.mu.Lock()
	defer g.mu.Unlock()
	for index, child := range g.children {
		if child.Same(old) {
			g.children[index] = replacement
			return child
		}
	}
	return nil
}

// removeChild removes the child aliasing target and returns its
// handle, or nil.
func (g *Group) removeChild(target *owned.Handle[Node]) *owned.Handle[Node] {
	g.mu.Lock()
	defer g.mu.Unlock()
	for index, child := range g.children {
		if child.Same(target) {
			g.children = append(g.children[:index], g.children[index+1:]...)
			return child
		}
	}
	return nil
}

// cloneChildren returns a clone of every child handle. The caller
// drops them.
func (g *Group) cloneChildren() []*owned.Handle[Node] {
	g.mu.Lock()
	defer g.mu.Unlock()
	clones := make([]*owned.Handle[Node], len(g.children))
	for index, child := range g.children {
		clones[index] = child.Clone()
	}
	return clones
}

// Close drops the group's child handles. It runs when the group's
// payload is destroyed.
func (g *Group) Close() error {
	g.mu.Lock()
	children := g.children
	g.children = nil
	g.mu.Unlock()

	for _, child := range children {
		child.Drop()
	}
	return nil
}

// Gauge is a bounded scalar such as CPU or memory utilization.
type Gauge struct {
	nodeHeader

	mu    sync.Mutex
	unit  string
	value float64
	max   float64
}

// NewGauge returns a gauge with the given unit and upper bound.
func NewGauge(name, unit string, limit float64) *Gauge {
	return &Gauge{nodeHeader: nodeHeader{name: name}, unit: unit, max: limit}
}

func (g *Gauge) Kind() Kind { return KindGauge }

// Set stores a new reading.
func (g *Gauge) Set(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
}

// SetMax changes the upper bound.
func (g *Gauge) SetMax(limit float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.max = limit
}

// Reading returns the value and the upper bound.
func (g *Gauge) Reading() (value, max float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value, g.max
}

// Fraction returns value/max clamped to [0, 1].
func (g *Gauge) Fraction() float64 {
	value, limit := g.Reading()
	if limit <= 0 {
		return 0
	}
	return min(max(value/limit, 0), 1)
}

func (g *Gauge) fill(node *FrameNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node.Value = g.value
	node.Max = g.max
	node.Unit = g.unit
}

// Label is a line of text.
type Label struct {
	nodeHeader

	mu   sync.Mutex
	text string
}

// NewLabel returns a label showing text.
func NewLabel(name, text string) *Label {
	return &Label{nodeHeader: nodeHeader{name: name}, text: text}
}

func (l *Label) Kind() Kind { return KindLabel }

// SetText replaces the label's text.
func (l *Label) SetText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text = text
}

// Text returns the label's text.
func (l *Label) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}

func (l *Label) fill(node *FrameNode) {
	node.Text = l.Text()
}

// History is a fixed-size ring of recent samples, rendered as a
// sparkline.
type History struct {
	nodeHeader

	mu      sync.Mutex
	unit    string
	samples []float64
	next    int
	full    bool
}

// NewHistory returns a history keeping the last capacity samples.
// capacity below 1 is treated as 1.
func NewHistory(name, unit string, capacity int) *History {
	return &History{
		nodeHeader: nodeHeader{name: name},
		unit:       unit,
		samples:    make([]float64, max(capacity, 1)),
	}
}

func (h *History) Kind() Kind { return KindHistory }

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(sample float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[h.next] = sample
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
}

// Samples returns the stored samples, oldest first.
func (h *History) Samples() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.samplesLocked()
}

func (h *History) samplesLocked() []float64 {
	if !h.full {
		return append([]float64(nil), h.samples[:h.next]...)
	}
	ordered := make([]float64, 0, len(h.samples))
	ordered = append(ordered, h.samples[h.next:]...)
	return append(ordered, h.samples[:h.next]...)
}

func (h *History) fill(node *FrameNode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	node.Unit = h.unit
	node.Samples = h.samplesLocked()
}
