// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/telescene/lib/scene"
	"github.com/bureau-foundation/telescene/lib/telemetry"
)

// RenderOptions controls Render.
type RenderOptions struct {
	Theme Theme

	// Width is the total width in cells. Values below 40 are raised
	// to 40; zero means 80.
	Width int

	// ShowOwnership appends the frame's ownership counters.
	ShowOwnership bool

	// Selected is the index of the highlighted process row, counted
	// after filtering, or -1.
	Selected int

	// Filter is a fuzzy pattern matched against each process row's pid
	// and command. Empty shows every row.
	Filter string
}

const (
	minWidth     = 40
	defaultWidth = 80

	// nameWidth is the width of the left-hand label column.
	nameWidth = 10
)

// Render draws frame as text, one section per top-level group.
func Render(frame scene.Frame, options RenderOptions) string {
	r := newRenderer(options)

	var sections []string
	for _, section := range []string{
		r.header(frame),
		r.host(frame),
		r.network(frame),
		r.processes(frame, options.Selected, options.Filter),
	} {
		if section != "" {
			sections = append(sections, section)
		}
	}
	if options.ShowOwnership {
		sections = append(sections, r.ownership(frame))
	}
	return strings.Join(sections, "\n\n")
}

type renderer struct {
	theme Theme
	width int

	title    lipgloss.Style
	normal   lipgloss.Style
	faint    lipgloss.Style
	selected lipgloss.Style
	history  lipgloss.Style
}

func newRenderer(options RenderOptions) *renderer {
	width := options.Width
	if width == 0 {
		width = defaultWidth
	}
	width = max(width, minWidth)
	theme := options.Theme
	return &renderer{
		theme:    theme,
		width:    width,
		title:    lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		normal:   lipgloss.NewStyle().Foreground(theme.NormalText),
		faint:    lipgloss.NewStyle().Foreground(theme.FaintText),
		selected: lipgloss.NewStyle().Foreground(theme.SelectedForeground).Background(theme.SelectedBackground).Width(width),
		history:  lipgloss.NewStyle().Foreground(theme.HistoryForeground),
	}
}

func (r *renderer) header(frame scene.Frame) string {
	title := ""
	if node, ok := frame.Find(telemetry.NameTitle); ok {
		title = node.Text
	}
	clock := ""
	if !frame.Time.IsZero() {
		clock = frame.Time.Format("15:04:05")
	}
	if title == "" && clock == "" {
		return ""
	}
	title = ansi.Truncate(title, r.width-len(clock)-1, "…")
	gap := max(r.width-ansi.StringWidth(title)-len(clock), 1)
	return r.title.Render(title) + strings.Repeat(" ", gap) + r.faint.Render(clock)
}

// host renders gauges and histories one per line, then the labels on
// a shared line.
func (r *renderer) host(frame scene.Frame) string {
	group, ok := frame.Find(telemetry.NameHost)
	if !ok {
		return ""
	}

	var lines, labels []string
	for _, node := range frame.ChildrenOf(group.ID) {
		switch node.Kind {
		case scene.KindGauge:
			lines = append(lines, r.gauge(node))
		case scene.KindHistory:
			lines = append(lines, r.historyLine(node))
		case scene.KindLabel:
			if node.Text != "" {
				labels = append(labels, r.faint.Render(node.Name)+" "+r.normal.Render(node.Text))
			}
		}
	}
	if len(labels) > 0 {
		lines = append(lines, ansi.Truncate(strings.Join(labels, "   "), r.width, "…"))
	}
	return strings.Join(lines, "\n")
}

// valueWidth is the width of the value column after a bar or a
// sparkline; "1023 MiB / 1023 MiB" fits.
const valueWidth = 19

func (r *renderer) gauge(node scene.FrameNode) string {
	barWidth := max(r.width-nameWidth-valueWidth-2, 8)
	fraction := node.Fraction()
	return r.name(node.Name) + " " + r.bar(fraction, barWidth) + " " +
		r.normal.Render(fmt.Sprintf("%*s", valueWidth, formatGauge(node)))
}

func (r *renderer) bar(fraction float64, width int) string {
	bar := progress.New(
		progress.WithoutPercentage(),
		progress.WithWidth(width),
		progress.WithColorProfile(r.theme.Profile),
		progress.WithSolidFill(r.theme.BarColor(fraction)),
	)
	bar.EmptyColor = r.theme.BarEmpty
	if r.theme.Profile == termenv.Ascii {
		bar.Full, bar.Empty = '#', '.'
	}
	return bar.ViewAs(fraction)
}

func (r *renderer) historyLine(node scene.FrameNode) string {
	sparkWidth := max(r.width-nameWidth-valueWidth-2, 8)
	latest := "-"
	if len(node.Samples) > 0 {
		latest = formatRate(node.Samples[len(node.Samples)-1], node.Unit)
	}
	return r.name(node.Name) + " " + r.history.Render(sparkline(node.Samples, sparkWidth, ceiling(node.Unit))) +
		" " + r.normal.Render(fmt.Sprintf("%*s", valueWidth, latest))
}

func (r *renderer) name(name string) string {
	return r.faint.Render(fmt.Sprintf("%-*s", nameWidth, ansi.Truncate(name, nameWidth, "…")))
}

// network renders one line per interface: receive then transmit.
func (r *renderer) network(frame scene.Frame) string {
	group, ok := frame.Find(telemetry.NameNetwork)
	if !ok {
		return ""
	}

	const rateWidth = 10
	sparkWidth := max((r.width-nameWidth-2*(rateWidth+5))/2, 0)

	var lines []string
	for _, link := range frame.ChildrenOf(group.ID) {
		line := r.name(link.Name)
		for _, history := range frame.ChildrenOf(link.ID) {
			direction := "rx"
			if history.Name == telemetry.NameTransmit {
				direction = "tx"
			}
			latest := "-"
			if len(history.Samples) > 0 {
				latest = formatRate(history.Samples[len(history.Samples)-1], history.Unit)
			}
			line += " " + r.faint.Render(direction) + " "
			if sparkWidth > 0 {
				line += r.history.Render(sparkline(history.Samples, sparkWidth, 0))
			}
			line += " " + r.normal.Render(fmt.Sprintf("%*s", rateWidth, latest))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// processRow is one row of the process table, read back from a frame.
type processRow struct {
	PID     int
	Command string
	State   string
	CPU     float64
	RSS     float64
}

// processRows extracts the process table from frame, in frame order.
func processRows(frame scene.Frame) []processRow {
	group, ok := frame.Find(telemetry.NameProcesses)
	if !ok {
		return nil
	}
	var rows []processRow
	for _, node := range frame.ChildrenOf(group.ID) {
		pid, err := strconv.Atoi(node.Name)
		if err != nil {
			continue
		}
		row := processRow{PID: pid}
		for _, field := range frame.ChildrenOf(node.ID) {
			switch field.Name {
			case telemetry.NameCommand:
				row.Command = field.Text
			case telemetry.NameState:
				row.State = field.Text
			case telemetry.NameCPUShare:
				row.CPU = field.Value
			case telemetry.NameResident:
				row.RSS = field.Value
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *renderer) processes(frame scene.Frame, selected int, filter string) string {
	all := processRows(frame)
	if len(all) == 0 {
		return ""
	}
	rows := filterRows(all, filter)
	if len(rows) == 0 {
		return r.faint.Render(ansi.Truncate(fmt.Sprintf("no process matches %q", filter), r.width, "…"))
	}

	lines := []string{r.faint.Render(ansi.Truncate(
		fmt.Sprintf("%7s %6s %10s %-5s %s", "PID", "CPU%", "RSS", "STATE", "COMMAND"), r.width, ""))}
	for index, row := range rows {
		line := ansi.Truncate(fmt.Sprintf("%7d %6.1f %10s %-5s %s",
			row.PID, row.CPU, humanize.IBytes(uint64(row.RSS)), row.State, row.Command), r.width, "…")
		if index == selected {
			lines = append(lines, r.selected.Render(line))
		} else {
			lines = append(lines, r.normal.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) ownership(frame scene.Frame) string {
	stats := frame.Ownership
	line := fmt.Sprintf("nodes: %d live · %d destroyed · %d deferred · %d pending",
		stats.Allocated-stats.Released, stats.Destroyed, stats.Deferred, stats.Pending())
	return r.faint.Render(ansi.Truncate(line, r.width, "…"))
}

func formatGauge(node scene.FrameNode) string {
	switch node.Unit {
	case "%":
		return fmt.Sprintf("%.1f%%", node.Value)
	case "B":
		return humanize.IBytes(uint64(max(node.Value, 0))) + " / " + humanize.IBytes(uint64(max(node.Max, 0)))
	default:
		return fmt.Sprintf("%.1f / %.1f %s", node.Value, node.Max, node.Unit)
	}
}

func formatRate(value float64, unit string) string {
	switch unit {
	case "%":
		return fmt.Sprintf("%.1f%%", value)
	case "B/s":
		return humanize.IBytes(uint64(max(value, 0))) + "/s"
	default:
		return fmt.Sprintf("%.1f %s", value, unit)
	}
}

// ceiling is the fixed top of the sparkline scale for unit, or 0 to
// scale to the largest sample.
func ceiling(unit string) float64 {
	if unit == "%" {
		return 100
	}
	return 0
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the last width samples, right-aligned. A top of zero
// scales to the largest sample shown.
func sparkline(samples []float64, width int, top float64) string {
	if width <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	if top <= 0 {
		for _, sample := range samples {
			top = max(top, sample)
		}
	}

	var builder strings.Builder
	builder.WriteString(strings.Repeat(" ", width-len(samples)))
	for _, sample := range samples {
		level := 0
		if top > 0 {
			level = int(sample/top*float64(len(sparkLevels)-1) + 0.5)
		}
		builder.WriteRune(sparkLevels[min(max(level, 0), len(sparkLevels)-1)])
	}
	return builder.String()
}
