// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/telescene/lib/owned"
)

var (
	// ErrNotFound is returned for a NodeID the graph does not hold.
	ErrNotFound = errors.New("scene: node not found")

	// ErrNotGroup is returned when a parent is not a *Group.
	ErrNotGroup = errors.New("scene: parent is not a group")

	// ErrDuplicate is returned when adding a node that already
	// belongs to a graph.
	ErrDuplicate = errors.New("scene: node already attached")

	// ErrRoot is returned when detaching or replacing the root.
	ErrRoot = errors.New("scene: operation not permitted on the root")

	// ErrClosed is returned by every mutation after Close.
	ErrClosed = errors.New("scene: graph closed")

	// SkipChildren may be returned by a WalkFunc to skip the
	// children of the node it was called with.
	SkipChildren = errors.New("scene: skip children")
)

// Graph is a tree of nodes rooted at a group. All methods are safe for
// concurrent use.
type Graph struct {
	mu      sync.Mutex
	nodes   map[NodeID]*owned.Handle[Node]
	parents map[NodeID]NodeID
	lastID  NodeID
	root    NodeID
	closed  bool

	tracker owned.Tracker
	logger  *slog.Logger
}

// New returns a graph holding only its root group. A nil logger
// discards output.
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &Graph{
		nodes:   make(map[NodeID]*owned.Handle[Node]),
		parents: make(map[NodeID]NodeID),
		logger:  logger,
	}
	root := NewGroup("root")
	g.lastID++
	root.id = g.lastID
	g.root = root.id
	g.nodes[root.id] = g.own(root)
	return g
}

func (g *Graph) own(node Node) *owned.Handle[Node] {
	return owned.Make[Node](node, owned.WithTracker(&g.tracker), owned.WithLogger(g.logger))
}

// Root returns the root group's ID.
func (g *Graph) Root() NodeID {
	return g.root
}

// Len returns the number of nodes, including the root.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Add attaches node as the last child of parent and returns its ID.
func (g *Graph) Add(parent NodeID, node Node) (NodeID, error) {
	if node == nil {
		return 0, fmt.Errorf("scene: add to %d: nil node", parent)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, ErrClosed
	}
	if node.header().id != 0 {
		return 0, fmt.Errorf("scene: add %q: %w", node.Name(), ErrDuplicate)
	}
	group, err := g.groupLocked(parent)
	if err != nil {
		return 0, fmt.Errorf("scene: add %q under %d: %w", node.Name(), parent, err)
	}
	defer group.Drop()

	g.lastID++
	id := g.lastID
	header := node.header()
	header.id = id
	header.parent = parent

	handle := g.own(node)
	child := handle.Clone()
	if !owned.Do(group, func(group *Group) { group.appendChild(child) }) {
		child.Drop()
		handle.Drop()
		return 0, fmt.Errorf("scene: add %q under %d: %w", node.Name(), parent, ErrNotFound)
	}
	g.nodes[id] = handle
	g.parents[id] = parent

	g.logger.Debug("scene node added",
		"id", id,
		"name", node.Name(),
		"kind", node.Kind(),
		"parent", parent,
	)
	return id, nil
}

// Detach removes a node and its subtree. Every handle aliasing a
// removed node becomes inactive immediately. Walks currently visiting
// the subtree keep it alive until they move on.
func (g *Graph) Detach(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if id == g.root {
		return ErrRoot
	}
	handle, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("scene: detach %d: %w", id, ErrNotFound)
	}

	if group, err := g.groupLocked(g.parents[id]); err == nil {
		var removed *owned.Handle[Node]
		owned.Do(group, func(group *Group) { removed = group.removeChild(handle) })
		removed.Drop()
		group.Drop()
	}

	retired := g.retireLocked(id)
	g.logger.Debug("scene subtree detached", "id", id, "nodes", retired)
	return nil
}

// Replace swaps the node at id for node, keeping its ID and its
// position among its siblings. The old node and its subtree are
// retired as by Detach.
func (g *Graph) Replace(id NodeID, node Node) error {
	if node == nil {
		return fmt.Errorf("scene: replace %d: nil node", id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if id == g.root {
		return ErrRoot
	}
	if node.header().id != 0 {
		return fmt.Errorf("scene: replace %d with %q: %w", id, node.Name(), ErrDuplicate)
	}
	old, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("scene: replace %d: %w", id, ErrNotFound)
	}
	parent := g.parents[id]
	group, err := g.groupLocked(parent)
	if err != nil {
		return fmt.Errorf("scene: replace %d: %w", id, err)
	}
	defer group.Drop()

	header := node.header()
	header.id = id
	header.parent = parent
	replacement := g.own(node)

	child := replacement.Clone()
	var displaced *owned.Handle[Node]
	if !owned.Do(group, func(group *Group) {
		if displaced = group.swapChild(old, child); displaced == nil {
			group.appendChild(child)
		}
	}) {
		child.Drop()
		replacement.Drop()
		header.id, header.parent = 0, 0
		return fmt.Errorf("scene: replace %d: %w", id, ErrNotFound)
	}
	displaced.Drop()

	retired := g.retireLocked(id)
	g.nodes[id] = replacement
	g.parents[id] = parent

	g.logger.Debug("scene node replaced",
		"id", id,
		"name", node.Name(),
		"kind", node.Kind(),
		"retired", retired,
	)
	return nil
}

// groupLocked returns a handle to id viewed as a *Group. The caller
// drops it.
func (g *Graph) groupLocked(id NodeID) (*owned.Handle[*Group], error) {
	handle, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	group := owned.Cast[*Group](handle)
	if !group.Active() {
		group.Drop()
		return nil, ErrNotGroup
	}
	return group, nil
}

// retireLocked resets and forgets id and every descendant. Returns the
// number of nodes retired.
func (g *Graph) retireLocked(id NodeID) int {
	subtree := []NodeID{id}
	for index := 0; index < len(subtree); index++ {
		for child, parent := range g.parents {
			if parent == subtree[index] {
				subtree = append(subtree, child)
			}
		}
	}
	for _, member := range subtree {
		handle := g.nodes[member]
		delete(g.nodes, member)
		delete(g.parents, member)
		handle.Reset()
		handle.Drop()
	}
	return len(subtree)
}

// Lookup returns a new handle to id viewed as a T, or an inert handle
// if id is unknown or not a T. The caller drops it.
func Lookup[T Node](g *Graph, id NodeID) *owned.Handle[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return owned.Cast[T](g.nodes[id])
}

// Update leases id as a T and calls fn with it. Returns false if the
// node is gone or is not a T.
func Update[T Node](g *Graph, id NodeID, fn func(T)) bool {
	handle := Lookup[T](g, id)
	defer handle.Drop()
	return owned.Do(handle, fn)
}

// WalkFunc is called for each node in depth-first pre-order. The node
// is leased for the duration of the call and of the walk of its
// children. Returning SkipChildren skips the node's children; any
// other error stops the walk.
type WalkFunc func(depth int, node Node) error

// Walk visits every node reachable from the root. Nodes detached
// before the walk reaches them are skipped; nodes detached while
// being visited stay valid until the walk leaves them.
func (g *Graph) Walk(fn WalkFunc) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	root := g.nodes[g.root].Clone()
	g.mu.Unlock()
	defer root.Drop()

	return walk(root, 0, fn)
}

func walk(handle *owned.Handle[Node], depth int, fn WalkFunc) error {
	lease := handle.Lease()
	defer lease.Release()

	node, ok := lease.Value()
	if !ok {
		return nil
	}
	if err := fn(depth, node); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	group, ok := node.(*Group)
	if !ok {
		return nil
	}
	children := group.cloneChildren()
	defer func() {
		for _, child := range children {
			child.Drop()
		}
	}()
	for _, child := range children {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Frame captures the graph as plain data at time now.
func (g *Graph) Frame(now time.Time) (Frame, error) {
	frame := Frame{Time: now}
	err := g.Walk(func(depth int, node Node) error {
		entry := FrameNode{
			ID:     node.ID(),
			Parent: node.header().parent,
			Depth:  depth,
			Kind:   node.Kind(),
			Name:   node.Name(),
		}
		node.fill(&entry)
		frame.Nodes = append(frame.Nodes, entry)
		return nil
	})
	if err != nil {
		return Frame{}, err
	}
	frame.Ownership = g.tracker.Stats()
	return frame, nil
}

// Stats describes the graph's size and the lifecycle counters of its
// nodes.
type Stats struct {
	Nodes     int
	Ownership owned.Stats
}

// Stats returns the current node count and ownership counters.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	nodes := len(g.nodes)
	g.mu.Unlock()
	return Stats{Nodes: nodes, Ownership: g.tracker.Stats()}
}

// Close retires every node. Leased nodes are destroyed when their
// leases are released. Close is idempotent.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		handle := g.nodes[id]
		handle.Reset()
		handle.Drop()
	}
	g.nodes = nil
	g.parents = nil
	return nil
}
