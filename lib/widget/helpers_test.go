// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"strconv"
	"testing"
	"time"

	"github.com/bureau-foundation/telescene/lib/scene"
	"github.com/bureau-foundation/telescene/lib/telemetry"
)

var frameTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

// testRow is one process row of a test frame.
type testRow struct {
	pid     int
	command string
	cpu     float64
	rss     float64
}

// testFrame builds a frame laid out the way the telemetry sampler lays
// out its scene, with the given process rows.
func testFrame(t *testing.T, rows ...testRow) scene.Frame {
	t.Helper()
	graph := scene.New(nil)
	t.Cleanup(func() { graph.Close() })

	add := func(parent scene.NodeID, node scene.Node) scene.NodeID {
		t.Helper()
		id, err := graph.Add(parent, node)
		if err != nil {
			t.Fatalf("Add %q: %v", node.Name(), err)
		}
		return id
	}
	root := graph.Root()

	add(root, scene.NewLabel(telemetry.NameTitle, "testhost · 6.1.0 · Test CPU"))
	host := add(root, scene.NewGroup(telemetry.NameHost))
	cpu := scene.NewGauge(telemetry.NameCPU, "%", 100)
	cpu.Set(42)
	add(host, cpu)
	history := scene.NewHistory(telemetry.NameCPUHistory, "%", 8)
	for _, sample := range []float64{10, 50, 90} {
		history.Push(sample)
	}
	add(host, history)
	memory := scene.NewGauge(telemetry.NameMemory, "B", 8<<30)
	memory.Set(2 << 30)
	add(host, memory)
	add(host, scene.NewLabel(telemetry.NameLoad, "0.50 0.25 0.10"))
	add(host, scene.NewLabel(telemetry.NameUptime, "2h1m5s"))

	network := add(root, scene.NewGroup(telemetry.NameNetwork))
	link := add(network, scene.NewGroup("eth0"))
	receive := scene.NewHistory(telemetry.NameReceive, "B/s", 8)
	receive.Push(2048)
	add(link, receive)
	transmit := scene.NewHistory(telemetry.NameTransmit, "B/s", 8)
	transmit.Push(1024)
	add(link, transmit)

	processes := add(root, scene.NewGroup(telemetry.NameProcesses))
	for _, row := range rows {
		id := add(processes, scene.NewGroup(strconv.Itoa(row.pid)))
		add(id, scene.NewLabel(telemetry.NameCommand, row.command))
		add(id, scene.NewLabel(telemetry.NameState, "R"))
		share := scene.NewGauge(telemetry.NameCPUShare, "%", 100)
		share.Set(row.cpu)
		add(id, share)
		resident := scene.NewGauge(telemetry.NameResident, "B", 8<<30)
		resident.Set(row.rss)
		add(id, resident)
	}

	frame, err := graph.Frame(frameTime)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	return frame
}
