// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var frameTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// buildSample returns a graph shaped like the widget's host panel:
//
//	root
//	  host (group)
//	    cpu (gauge)
//	    memory (gauge)
//	  title (label)
func buildSample(t *testing.T) (*Graph, map[string]NodeID) {
	t.Helper()
	graph := New(nil)
	ids := map[string]NodeID{}

	add := func(name string, parent NodeID, node Node) {
		t.Helper()
		id, err := graph.Add(parent, node)
		if err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
		ids[name] = id
	}
	add("host", graph.Root(), NewGroup("host"))
	add("cpu", ids["host"], NewGauge("cpu", "%", 100))
	add("memory", ids["host"], NewGauge("memory", "B", 1024))
	add("title", graph.Root(), NewLabel("title", "telescene"))
	return graph, ids
}

func names(frame Frame) []string {
	var result []string
	for _, node := range frame.Nodes {
		result = append(result, fmt.Sprintf("%d:%s", node.Depth, node.Name))
	}
	return result
}

func TestAddAndFrame(t *testing.T) {
	graph, ids := buildSample(t)
	defer graph.Close()

	if !Update(graph, ids["cpu"], func(gauge *Gauge) { gauge.Set(42) }) {
		t.Fatal("Update(cpu) = false")
	}

	frame, err := graph.Frame(frameTime)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	want := []string{"0:root", "1:host", "2:cpu", "2:memory", "1:title"}
	if diff := cmp.Diff(want, names(frame)); diff != "" {
		t.Errorf("frame order mismatch (-want +got):\n%s", diff)
	}

	cpu, ok := frame.Find("cpu")
	if !ok {
		t.Fatal("cpu missing from frame")
	}
	wantCPU := FrameNode{ID: ids["cpu"], Parent: ids["host"], Depth: 2, Kind: KindGauge, Name: "cpu", Value: 42, Max: 100, Unit: "%"}
	if diff := cmp.Diff(wantCPU, cpu); diff != "" {
		t.Errorf("cpu node mismatch (-want +got):\n%s", diff)
	}
	if cpu.Fraction() != 0.42 {
		t.Errorf("Fraction() = %f, want 0.42", cpu.Fraction())
	}

	host, _ := frame.Find("host")
	if host.Children != 2 || len(frame.ChildrenOf(host.ID)) != 2 {
		t.Errorf("host children = %d / %d, want 2", host.Children, len(frame.ChildrenOf(host.ID)))
	}
	if frame.Ownership.Allocated != 5 || frame.Ownership.Destroyed != 0 {
		t.Errorf("ownership = %+v, want 5 allocated and none destroyed", frame.Ownership)
	}
}

func TestAddErrors(t *testing.T) {
	graph, ids := buildSample(t)

	if _, err := graph.Add(999, NewLabel("orphan", "")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Add under unknown parent: err = %v, want ErrNotFound", err)
	}
	if _, err := graph.Add(ids["cpu"], NewLabel("child", "")); !errors.Is(err, ErrNotGroup) {
		t.Errorf("Add under a gauge: err = %v, want ErrNotGroup", err)
	}
	label := NewLabel("twice", "")
	if _, err := graph.Add(graph.Root(), label); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := graph.Add(graph.Root(), label); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Add: err = %v, want ErrDuplicate", err)
	}
	if _, err := graph.Add(graph.Root(), nil); err == nil {
		t.Error("Add(nil) succeeded")
	}

	graph.Close()
	if _, err := graph.Add(graph.Root(), NewLabel("late", "")); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after Close: err = %v, want ErrClosed", err)
	}
	if err := graph.Walk(func(int, Node) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Walk after Close: err = %v, want ErrClosed", err)
	}
}

func TestDetachInvalidatesAliases(t *testing.T) {
	graph, ids := buildSample(t)
	defer graph.Close()

	host := Lookup[*Group](graph, ids["host"])
	defer host.Drop()
	cpu := Lookup[Node](graph, ids["cpu"])
	defer cpu.Drop()

	if err := graph.Detach(ids["host"]); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if host.Active() || cpu.Active() {
		t.Error("aliases of detached nodes still active")
	}
	if Update(graph, ids["memory"], func(*Gauge) {}) {
		t.Error("Update on a detached descendant succeeded")
	}
	if graph.Len() != 2 {
		t.Errorf("Len() = %d after detaching host, want 2", graph.Len())
	}

	frame, err := graph.Frame(frameTime)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if diff := cmp.Diff([]string{"0:root", "1:title"}, names(frame)); diff != "" {
		t.Errorf("frame after detach (-want +got):\n%s", diff)
	}
	if frame.Ownership.Destroyed != 3 {
		t.Errorf("destroyed = %d, want 3", frame.Ownership.Destroyed)
	}

	if err := graph.Detach(ids["host"]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Detach: err = %v, want ErrNotFound", err)
	}
	if err := graph.Detach(graph.Root()); !errors.Is(err, ErrRoot) {
		t.Errorf("Detach(root): err = %v, want ErrRoot", err)
	}
}

func TestDetachDuringWalkIsDeferred(t *testing.T) {
	graph, ids := buildSample(t)
	defer graph.Close()

	var destroyedDuringVisit int64 = -1
	err := graph.Walk(func(depth int, node Node) error {
		if node.ID() != ids["cpu"] {
			return nil
		}
		before := graph.Stats().Ownership
		if err := graph.Detach(node.ID()); err != nil {
			t.Fatalf("Detach during walk: %v", err)
		}
		after := graph.Stats().Ownership
		destroyedDuringVisit = after.Destroyed - before.Destroyed
		if after.Deferred != before.Deferred+1 {
			t.Errorf("deferred = %d, want %d", after.Deferred, before.Deferred+1)
		}

		// The visited node stays usable until the walk moves on.
		gauge := node.(*Gauge)
		gauge.Set(99)
		if value, _ := gauge.Reading(); value != 99 {
			t.Errorf("Reading() = %f after Set during deferred detach", value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if destroyedDuringVisit != 0 {
		t.Errorf("payload destroyed while the walk held it (%d destructions)", destroyedDuringVisit)
	}
	if got := graph.Stats().Ownership; got.Destroyed != 1 {
		t.Errorf("destroyed = %d after walk, want 1", got.Destroyed)
	}
}

func TestReplaceKeepsPosition(t *testing.T) {
	graph, ids := buildSample(t)
	defer graph.Close()

	old := Lookup[*Gauge](graph, ids["cpu"])
	defer old.Drop()

	if err := graph.Replace(ids["cpu"], NewLabel("cpu", "offline")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if old.Active() {
		t.Error("old node handle still active after Replace")
	}
	if Update(graph, ids["cpu"], func(*Gauge) {}) {
		t.Error("replaced node still a gauge")
	}
	var text string
	if !Update(graph, ids["cpu"], func(label *Label) { text = label.Text() }) || text != "offline" {
		t.Errorf("replacement label text = %q", text)
	}

	frame, err := graph.Frame(frameTime)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	want := []string{"0:root", "1:host", "2:cpu", "2:memory", "1:title"}
	if diff := cmp.Diff(want, names(frame)); diff != "" {
		t.Errorf("frame order after replace (-want +got):\n%s", diff)
	}
	cpu, _ := frame.Find("cpu")
	if cpu.Kind != KindLabel || cpu.ID != ids["cpu"] || cpu.Parent != ids["host"] {
		t.Errorf("replacement node = %+v", cpu)
	}

	if err := graph.Replace(graph.Root(), NewGroup("root")); !errors.Is(err, ErrRoot) {
		t.Errorf("Replace(root): err = %v, want ErrRoot", err)
	}
	if err := graph.Replace(999, NewGroup("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Replace(unknown): err = %v, want ErrNotFound", err)
	}
}

func TestReplaceGroupRetiresSubtree(t *testing.T) {
	graph, ids := buildSample(t)
	defer graph.Close()

	if err := graph.Replace(ids["host"], NewGroup("host")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if graph.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (root, new host, title)", graph.Len())
	}
	if _, err := graph.Add(ids["host"], NewGauge("cpu", "%", 100)); err != nil {
		t.Errorf("Add under replaced group: %v", err)
	}
}

func TestWalkSkipChildrenAndStop(t *testing.T) {
	graph, _ := buildSample(t)
	defer graph.Close()

	var visited []string
	err := graph.Walk(func(depth int, node Node) error {
		visited = append(visited, node.Name())
		if node.Name() == "host" {
			return SkipChildren
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if diff := cmp.Diff([]string{"root", "host", "title"}, visited); diff != "" {
		t.Errorf("visited (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	if err := graph.Walk(func(int, Node) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Walk error = %v, want stop", err)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	graph, ids := buildSample(t)
	alias := Lookup[*Gauge](graph, ids["memory"])

	if err := graph.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if alias.Active() {
		t.Error("alias active after Close")
	}
	alias.Drop()

	stats := graph.Stats()
	if stats.Nodes != 0 {
		t.Errorf("Nodes = %d after Close", stats.Nodes)
	}
	if stats.Ownership.Allocated != stats.Ownership.Released || stats.Ownership.Destroyed != stats.Ownership.Allocated {
		t.Errorf("ownership after Close = %+v, want everything destroyed and released", stats.Ownership)
	}
	if err := graph.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConcurrentReplaceAndWalk(t *testing.T) {
	graph, ids := buildSample(t)

	var group sync.WaitGroup
	for worker := range 4 {
		group.Add(1)
		go func() {
			defer group.Done()
			for range 200 {
				if _, err := graph.Frame(frameTime); err != nil {
					t.Errorf("walker %d: %v", worker, err)
					return
				}
			}
		}()
	}
	group.Add(1)
	go func() {
		defer group.Done()
		for iteration := range 200 {
			gauge := NewGauge("cpu", "%", 100)
			gauge.Set(float64(iteration))
			if err := graph.Replace(ids["cpu"], gauge); err != nil {
				t.Errorf("Replace: %v", err)
				return
			}
		}
	}()
	group.Wait()

	graph.Close()
	stats := graph.Stats().Ownership
	if stats.Allocated != stats.Released {
		t.Errorf("%d control blocks never released", stats.Allocated-stats.Released)
	}
}

func TestHistoryRing(t *testing.T) {
	history := NewHistory("net", "B/s", 3)
	if len(history.Samples()) != 0 {
		t.Fatal("new history not empty")
	}
	history.Push(1)
	history.Push(2)
	if diff := cmp.Diff([]float64{1, 2}, history.Samples()); diff != "" {
		t.Errorf("partial samples (-want +got):\n%s", diff)
	}
	history.Push(3)
	history.Push(4)
	history.Push(5)
	if diff := cmp.Diff([]float64{3, 4, 5}, history.Samples()); diff != "" {
		t.Errorf("wrapped samples (-want +got):\n%s", diff)
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{KindGroup: "group", KindGauge: "gauge", KindLabel: "label", KindHistory: "history", 0: "kind(0)"} {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
