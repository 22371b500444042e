// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/telescene/lib/clock"
	"github.com/bureau-foundation/telescene/lib/hwinfo"
	"github.com/bureau-foundation/telescene/lib/owned"
	"github.com/bureau-foundation/telescene/lib/proctree"
	"github.com/bureau-foundation/telescene/lib/scene"
	"github.com/bureau-foundation/telescene/lib/snapshot"
)

// Node names of the scene built by a Sampler.
const (
	NameTitle      = "title"
	NameHost       = "host"
	NameCPU        = "cpu"
	NameCPUHistory = "cpu history"
	NameMemory     = "memory"
	NameSwap       = "swap"
	NameDisk       = "disk"
	NameLoad       = "load"
	NameUptime     = "uptime"
	NameNetwork    = "network"
	NameProcesses  = "processes"

	// Per-interface histories.
	NameReceive  = "receive"
	NameTransmit = "transmit"

	// Per-process nodes.
	NameCommand  = "command"
	NameState    = "state"
	NameCPUShare = "cpu share"
	NameResident = "resident"
)

var (
	// ErrNoSnapshots is returned by SaveSnapshot when the sampler has
	// no snapshot writer.
	ErrNoSnapshots = errors.New("telemetry: snapshots not configured")

	// ErrNoFrame is returned by SaveSnapshot before the first sample.
	ErrNoFrame = errors.New("telemetry: no frame sampled yet")
)

// Options configures a Sampler.
type Options struct {
	// Clock drives Run. Defaults to the wall clock.
	Clock clock.Clock

	// Interval is the time between samples.
	Interval time.Duration

	// ProcRoot is the procfs mount to read. Defaults to /proc.
	ProcRoot string

	// DiskPath is the filesystem whose usage is sampled. Empty skips
	// the disk gauge.
	DiskPath string

	// HistoryLength is the capacity of every history node.
	HistoryLength int

	// TopProcesses is the number of process rows, busiest first. Zero
	// shows every process.
	TopProcesses int

	// Snapshots, when set, receives frames: every SnapshotInterval
	// (if positive) and on SaveSnapshot.
	Snapshots        *snapshot.Writer
	SnapshotInterval time.Duration

	// Logger receives source failures and snapshot errors. Nil
	// discards output.
	Logger *slog.Logger
}

// Sampler owns the scene graph and the process registry and updates
// them from procfs. Sample and Run must not be called concurrently;
// the other methods are safe from any goroutine.
type Sampler struct {
	options Options
	clock   clock.Clock
	logger  *slog.Logger

	graph     *scene.Graph
	host      *hwinfo.Reader
	processes *proctree.Tree
	frames    chan scene.Frame

	ids        nodeIDs
	interfaces map[string]interfaceNodes
	failing    map[string]bool

	previousCPU         hwinfo.CPUReading
	hasCPU              bool
	memoryTotal         uint64
	previousNetwork     []hwinfo.InterfaceCounters
	previousNetworkTime time.Time
	lastSnapshot        time.Time

	mu       sync.Mutex
	last     scene.Frame
	hasFrame bool
}

type nodeIDs struct {
	title, host, cpu, cpuHistory, memory, swap, disk, load, uptime scene.NodeID
	network, processes                                             scene.NodeID
}

type interfaceNodes struct {
	group, receive, transmit scene.NodeID
}

// New builds the scene layout and returns a sampler. No readings are
// taken until Sample or Run.
func New(options Options) (*Sampler, error) {
	if options.Interval <= 0 {
		return nil, fmt.Errorf("telemetry: sampling interval must be positive, got %s", options.Interval)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	options.HistoryLength = max(options.HistoryLength, 2)

	s := &Sampler{
		options:    options,
		clock:      options.Clock,
		logger:     options.Logger,
		graph:      scene.New(options.Logger),
		host:       hwinfo.NewReader(options.ProcRoot),
		processes:  proctree.New(options.ProcRoot, options.Logger),
		frames:     make(chan scene.Frame, 1),
		interfaces: make(map[string]interfaceNodes),
		failing:    make(map[string]bool),
	}
	if err := s.build(); err != nil {
		s.Close()
		return nil, fmt.Errorf("telemetry: building scene: %w", err)
	}
	return s, nil
}

// builder adds nodes until the first error, which it keeps.
type builder struct {
	graph *scene.Graph
	err   error
}

func (b *builder) add(parent scene.NodeID, node scene.Node) scene.NodeID {
	if b.err != nil {
		return 0
	}
	id, err := b.graph.Add(parent, node)
	b.err = err
	return id
}

func (s *Sampler) build() error {
	b := &builder{graph: s.graph}
	root := s.graph.Root()
	history := s.options.HistoryLength

	s.ids.title = b.add(root, scene.NewLabel(NameTitle, s.title()))
	s.ids.host = b.add(root, scene.NewGroup(NameHost))
	s.ids.cpu = b.add(s.ids.host, scene.NewGauge(NameCPU, "%", 100))
	s.ids.cpuHistory = b.add(s.ids.host, scene.NewHistory(NameCPUHistory, "%", history))
	s.ids.memory = b.add(s.ids.host, scene.NewGauge(NameMemory, "B", 0))
	s.ids.swap = b.add(s.ids.host, scene.NewGauge(NameSwap, "B", 0))
	if s.options.DiskPath != "" {
		s.ids.disk = b.add(s.ids.host, scene.NewGauge(NameDisk, "B", 0))
	}
	s.ids.load = b.add(s.ids.host, scene.NewLabel(NameLoad, ""))
	s.ids.uptime = b.add(s.ids.host, scene.NewLabel(NameUptime, ""))
	s.ids.network = b.add(root, scene.NewGroup(NameNetwork))
	s.ids.processes = b.add(root, scene.NewGroup(NameProcesses))
	return b.err
}

func (s *Sampler) title() string {
	host := s.host.Probe()
	parts := []string{}
	for _, part := range []string{host.Hostname, host.Kernel, host.CPUModel} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if host.CPUCount > 0 {
		parts = append(parts, fmt.Sprintf("%d CPUs", host.CPUCount))
	}
	return strings.Join(parts, " · ")
}

// Graph returns the scene graph. It stays owned by the sampler.
func (s *Sampler) Graph() *scene.Graph {
	return s.graph
}

// Processes returns the process registry. It stays owned by the
// sampler.
func (s *Sampler) Processes() *proctree.Tree {
	return s.processes
}

// Frames delivers a frame after every sample taken by Run. The channel
// holds only the latest frame: a slow reader skips frames rather than
// delaying the loop. It is closed when Run returns.
func (s *Sampler) Frames() <-chan scene.Frame {
	return s.frames
}

// Run samples immediately and then every interval until ctx is done.
// Returns nil on cancellation. Run may be called once.
func (s *Sampler) Run(ctx context.Context) error {
	defer close(s.frames)

	ticker := s.clock.NewTicker(s.options.Interval)
	defer ticker.Stop()

	if err := s.tick(s.clock.Now()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := s.tick(now); err != nil {
				return err
			}
		}
	}
}

func (s *Sampler) tick(now time.Time) error {
	frame, err := s.Sample(now)
	if err != nil {
		return err
	}
	s.publish(frame)
	return nil
}

// publish replaces any unread frame with frame. Run is the only
// sender, so after draining there is room.
func (s *Sampler) publish(frame scene.Frame) {
	select {
	case s.frames <- frame:
		return
	default:
	}
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}

// Sample takes one reading of every source, updates the scene and
// returns its frame. Unreadable sources are logged and leave their
// nodes unchanged; only scene failures are returned.
func (s *Sampler) Sample(now time.Time) (scene.Frame, error) {
	s.sampleCPU()
	s.sampleMemory()
	s.sampleDisk()
	s.sampleLoad()
	s.sampleUptime()
	if err := s.sampleNetwork(now); err != nil {
		return scene.Frame{}, err
	}
	if err := s.sampleProcesses(); err != nil {
		return scene.Frame{}, err
	}

	frame, err := s.graph.Frame(now)
	if err != nil {
		return scene.Frame{}, fmt.Errorf("telemetry: capturing frame: %w", err)
	}

	s.mu.Lock()
	s.last, s.hasFrame = frame, true
	s.mu.Unlock()

	s.snapshot(now, frame)
	return frame, nil
}

// report logs the first failure of a source and its recovery, so a
// missing file does not log on every sample. Returns err != nil.
func (s *Sampler) report(source string, err error) bool {
	if err == nil {
		if s.failing[source] {
			s.logger.Info("telemetry source recovered", "source", source)
			delete(s.failing, source)
		}
		return false
	}
	if !s.failing[source] {
		s.logger.Warn("reading telemetry source failed", "source", source, "error", err)
		s.failing[source] = true
	}
	return true
}

func (s *Sampler) sampleCPU() {
	reading, err := s.host.CPU()
	if s.report("cpu", err) {
		return
	}
	if s.hasCPU {
		percent := hwinfo.CPUPercent(s.previousCPU, reading)
		scene.Update(s.graph, s.ids.cpu, func(gauge *scene.Gauge) { gauge.Set(percent) })
		scene.Update(s.graph, s.ids.cpuHistory, func(history *scene.History) { history.Push(percent) })
	}
	s.previousCPU, s.hasCPU = reading, true
}

func (s *Sampler) sampleMemory() {
	memory, err := s.host.Memory()
	if s.report("memory", err) {
		return
	}
	s.memoryTotal = memory.Total
	scene.Update(s.graph, s.ids.memory, func(gauge *scene.Gauge) {
		gauge.SetMax(float64(memory.Total))
		gauge.Set(float64(memory.Used()))
	})
	scene.Update(s.graph, s.ids.swap, func(gauge *scene.Gauge) {
		gauge.SetMax(float64(memory.SwapTotal))
		gauge.Set(float64(memory.SwapUsed()))
	})
}

func (s *Sampler) sampleDisk() {
	if s.options.DiskPath == "" {
		return
	}
	disk, err := hwinfo.DiskUsage(s.options.DiskPath)
	if s.report("disk", err) {
		return
	}
	scene.Update(s.graph, s.ids.disk, func(gauge *scene.Gauge) {
		gauge.SetMax(float64(disk.Used() + disk.Available))
		gauge.Set(float64(disk.Used()))
	})
}

func (s *Sampler) sampleLoad() {
	load, err := s.host.Load()
	if s.report("load", err) {
		return
	}
	text := fmt.Sprintf("%.2f %.2f %.2f", load.One, load.Five, load.Fifteen)
	scene.Update(s.graph, s.ids.load, func(label *scene.Label) { label.SetText(text) })
}

func (s *Sampler) sampleUptime() {
	uptime, err := s.host.Uptime()
	if s.report("uptime", err) {
		return
	}
	text := uptime.Truncate(time.Second).String()
	scene.Update(s.graph, s.ids.uptime, func(label *scene.Label) { label.SetText(text) })
}

// sampleNetwork pushes per-interface rates, adding nodes for new
// interfaces and detaching those that disappeared.
func (s *Sampler) sampleNetwork(now time.Time) error {
	counters, err := s.host.Network()
	if s.report("network", err) {
		return nil
	}

	present := make(map[string]bool, len(counters))
	for _, interfaceCounters := range counters {
		present[interfaceCounters.Name] = true
	}
	for name, nodes := range s.interfaces {
		if present[name] {
			continue
		}
		if err := s.graph.Detach(nodes.group); err != nil {
			return fmt.Errorf("telemetry: removing interface %s: %w", name, err)
		}
		delete(s.interfaces, name)
	}

	if !s.previousNetworkTime.IsZero() {
		for _, rate := range hwinfo.NetworkRates(s.previousNetwork, counters, now.Sub(s.previousNetworkTime)) {
			nodes, err := s.interfaceNodes(rate.Name)
			if err != nil {
				return err
			}
			scene.Update(s.graph, nodes.receive, func(history *scene.History) { history.Push(rate.Receive) })
			scene.Update(s.graph, nodes.transmit, func(history *scene.History) { history.Push(rate.Transmit) })
		}
	}
	s.previousNetwork, s.previousNetworkTime = counters, now
	return nil
}

func (s *Sampler) interfaceNodes(name string) (interfaceNodes, error) {
	if nodes, ok := s.interfaces[name]; ok {
		return nodes, nil
	}
	b := &builder{graph: s.graph}
	var nodes interfaceNodes
	nodes.group = b.add(s.ids.network, scene.NewGroup(name))
	nodes.receive = b.add(nodes.group, scene.NewHistory(NameReceive, "B/s", s.options.HistoryLength))
	nodes.transmit = b.add(nodes.group, scene.NewHistory(NameTransmit, "B/s", s.options.HistoryLength))
	if b.err != nil {
		return interfaceNodes{}, fmt.Errorf("telemetry: adding interface %s: %w", name, b.err)
	}
	s.interfaces[name] = nodes
	return nodes, nil
}

// sampleProcesses refreshes the registry and rebuilds the process
// rows under a fresh group.
func (s *Sampler) sampleProcesses() error {
	_, err := s.processes.Refresh()
	if s.report("processes", err) {
		return nil
	}

	if err := s.graph.Replace(s.ids.processes, scene.NewGroup(NameProcesses)); err != nil {
		return fmt.Errorf("telemetry: replacing process rows: %w", err)
	}
	b := &builder{graph: s.graph}
	for _, info := range s.processes.Top(s.options.TopProcesses) {
		row := b.add(s.ids.processes, scene.NewGroup(strconv.Itoa(info.PID)))
		b.add(row, scene.NewLabel(NameCommand, info.Command))
		b.add(row, scene.NewLabel(NameState, info.State))
		share := scene.NewGauge(NameCPUShare, "%", 100)
		share.Set(info.CPUPercent)
		b.add(row, share)
		resident := scene.NewGauge(NameResident, "B", float64(s.memoryTotal))
		resident.Set(float64(info.RSSBytes))
		b.add(row, resident)
	}
	if b.err != nil {
		return fmt.Errorf("telemetry: adding process rows: %w", b.err)
	}
	return nil
}

// snapshot writes frame when a periodic snapshot is due.
func (s *Sampler) snapshot(now time.Time, frame scene.Frame) {
	writer := s.options.Snapshots
	if writer == nil || s.options.SnapshotInterval <= 0 {
		return
	}
	if !s.lastSnapshot.IsZero() && now.Sub(s.lastSnapshot) < s.options.SnapshotInterval {
		return
	}
	s.lastSnapshot = now
	if _, err := writer.Write(frame); err != nil {
		s.logger.Warn("writing snapshot failed", "path", writer.Path(), "error", err)
	}
}

// SaveSnapshot writes the latest frame now and returns the file path.
func (s *Sampler) SaveSnapshot() (string, error) {
	writer := s.options.Snapshots
	if writer == nil {
		return "", ErrNoSnapshots
	}
	s.mu.Lock()
	frame, ok := s.last, s.hasFrame
	s.mu.Unlock()
	if !ok {
		return "", ErrNoFrame
	}
	if err := writer.Force(frame); err != nil {
		return "", err
	}
	s.logger.Info("snapshot saved", "path", writer.Path(), "nodes", len(frame.Nodes))
	return writer.Path(), nil
}

// Lookup returns a handle to the process with the given pid, or an
// inert handle. The caller drops it.
func (s *Sampler) Lookup(pid int) *owned.Handle[*proctree.Process] {
	return s.processes.Lookup(pid)
}

// ProcessStats returns the ownership counters of the process registry.
func (s *Sampler) ProcessStats() owned.Stats {
	return s.processes.Stats()
}

// Close retires the scene graph and the process registry.
func (s *Sampler) Close() error {
	return errors.Join(s.graph.Close(), s.processes.Close())
}
