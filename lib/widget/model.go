// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/telescene/lib/owned"
	"github.com/bureau-foundation/telescene/lib/proctree"
	"github.com/bureau-foundation/telescene/lib/scene"
)

// Source is what the widget reads from. *telemetry.Sampler implements
// it.
type Source interface {
	// Frames delivers sampled frames and is closed when sampling
	// stops.
	Frames() <-chan scene.Frame

	// SaveSnapshot writes the latest frame and returns the path.
	SaveSnapshot() (string, error)

	// Lookup returns a handle to a live process, or an inert handle.
	Lookup(pid int) *owned.Handle[*proctree.Process]
}

// frameMsg delivers one frame from the source.
type frameMsg struct {
	frame scene.Frame
}

// framesClosedMsg is sent once the source's frame channel closes.
type framesClosedMsg struct{}

// snapshotSavedMsg reports the outcome of a save request.
type snapshotSavedMsg struct {
	path string
	err  error
}

// noticeFadeMsg clears the status bar notice.
type noticeFadeMsg struct{}

// noticeFadeDelay is how long a status notice stays visible.
const noticeFadeDelay = 3 * time.Second

// Options configures a Model.
type Options struct {
	Theme         Theme
	Keys          KeyMap
	ShowOwnership bool
}

// Model is the bubbletea model of the widget.
type Model struct {
	source  Source
	keys    KeyMap
	theme   Theme
	options Options

	width  int
	height int

	frame    scene.Frame
	hasFrame bool
	paused   bool

	// cursor indexes the process rows of frame. selected is a handle
	// to the process under the cursor; it is replaced whenever the
	// cursor lands on a different pid.
	cursor      int
	selectedPID int
	selected    *owned.Handle[*proctree.Process]

	// filter narrows the process rows; filtering is set while the
	// user is typing it.
	filter    string
	filtering bool

	notice string
}

// NewModel returns a model reading from source. A zero Keys uses
// DefaultKeyMap.
func NewModel(source Source, options Options) Model {
	keys := options.Keys
	if len(keys.Quit.Keys()) == 0 {
		keys = DefaultKeyMap
	}
	return Model{
		source:  source,
		keys:    keys,
		theme:   options.Theme,
		options: options,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForFrames(model.source.Frames())
}

// listenForFrames blocks until the next frame arrives on channel.
func listenForFrames(channel <-chan scene.Frame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-channel
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg{frame: frame}
	}
}

func saveSnapshot(source Source) tea.Cmd {
	return func() tea.Msg {
		path, err := source.SaveSnapshot()
		return snapshotSavedMsg{path: path, err: err}
	}
}

func fadeNotice() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.filtering {
			return model.handleFilterKeys(message)
		}
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit

		case key.Matches(message, model.keys.Filter):
			model.filtering = true

		case key.Matches(message, model.keys.FilterClear):
			model.setFilter("")

		case key.Matches(message, model.keys.Pause):
			model.paused = !model.paused

		case key.Matches(message, model.keys.Save):
			return model, saveSnapshot(model.source)

		case key.Matches(message, model.keys.Up):
			if model.cursor > 0 {
				model.cursor--
				model.syncSelection()
			}

		case key.Matches(message, model.keys.Down):
			if model.cursor < len(model.rows())-1 {
				model.cursor++
				model.syncSelection()
			}
		}

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height

	case frameMsg:
		if !model.paused {
			model.adopt(message.frame)
		}
		return model, listenForFrames(model.source.Frames())

	case framesClosedMsg:
		return model, tea.Quit

	case snapshotSavedMsg:
		if message.err != nil {
			model.notice = "snapshot failed: " + message.err.Error()
		} else {
			model.notice = "snapshot saved to " + message.path
		}
		return model, fadeNotice()

	case noticeFadeMsg:
		model.notice = ""
	}
	return model, nil
}

// handleFilterKeys edits the filter while it is being typed. Ctrl+C
// still quits.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit
	case key.Matches(message, model.keys.FilterDone):
		model.filtering = false
	case key.Matches(message, model.keys.FilterClear):
		model.filtering = false
		model.setFilter("")
	case message.Type == tea.KeyBackspace:
		if runes := []rune(model.filter); len(runes) > 0 {
			model.setFilter(string(runes[:len(runes)-1]))
		}
	case message.Type == tea.KeySpace:
		model.setFilter(model.filter + " ")
	case message.Type == tea.KeyRunes:
		model.setFilter(model.filter + string(message.Runes))
	}
	return model, nil
}

// setFilter changes the filter and moves the cursor back to the
// selected process if it still matches, else to the first row.
func (model *Model) setFilter(filter string) {
	model.filter = filter
	model.cursor = 0
	for index, row := range model.rows() {
		if row.PID == model.selectedPID {
			model.cursor = index
			break
		}
	}
	model.syncSelection()
}

// rows returns the process rows of the displayed frame that pass the
// filter.
func (model Model) rows() []processRow {
	return filterRows(processRows(model.frame), model.filter)
}

// adopt makes frame the displayed frame, keeping the selected pid
// under the cursor when it is still listed.
func (model *Model) adopt(frame scene.Frame) {
	model.frame = frame
	model.hasFrame = true

	rows := model.rows()
	for index, row := range rows {
		if row.PID == model.selectedPID {
			model.cursor = index
			model.syncSelection()
			return
		}
	}
	model.cursor = min(model.cursor, max(len(rows)-1, 0))
	model.syncSelection()
}

// syncSelection points selected at the process under the cursor.
func (model *Model) syncSelection() {
	rows := model.rows()
	pid := 0
	if model.cursor < len(rows) {
		pid = rows[model.cursor].PID
	}
	if pid == model.selectedPID && model.selected != nil {
		return
	}
	model.selected.Drop()
	model.selected = nil
	model.selectedPID = pid
	if pid != 0 {
		model.selected = model.source.Lookup(pid)
	}
}

// Close drops the selection handle. Call it after the program exits.
func (model Model) Close() {
	model.selected.Drop()
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.hasFrame {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("waiting for the first sample…")
	}

	var builder strings.Builder
	builder.WriteString(Render(model.frame, RenderOptions{
		Theme:         model.theme,
		Width:         model.width,
		ShowOwnership: model.options.ShowOwnership,
		Selected:      model.cursor,
		Filter:        model.filter,
	}))
	if detail := model.renderDetail(); detail != "" {
		builder.WriteString("\n\n")
		builder.WriteString(detail)
	}
	builder.WriteString("\n\n")
	builder.WriteString(model.renderHelp())
	return builder.String()
}

// renderDetail describes the selected process as it is now, which may
// be newer than the displayed frame.
func (model Model) renderDetail() string {
	if model.selectedPID == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	detail := fmt.Sprintf("pid %d (exited)", model.selectedPID)
	owned.Do(model.selected, func(process *proctree.Process) {
		info := process.Info()
		detail = fmt.Sprintf("pid %d  ppid %d  %s  %.1f%% cpu  %s resident  %s",
			info.PID, info.PPID, info.State, info.CPUPercent, humanize.IBytes(info.RSSBytes), info.Command)
	})
	return style.Render(detail)
}

func (model Model) renderHelp() string {
	var parts []string
	for _, binding := range model.keys.ShortHelp() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	help := lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, "  "))

	var flags []string
	if model.filtering {
		flags = append(flags, "/"+model.filter+"▏")
	} else if model.filter != "" {
		flags = append(flags, "filter: "+model.filter)
	}
	if model.paused {
		flags = append(flags, "PAUSED")
	}
	if model.notice != "" {
		flags = append(flags, model.notice)
	}
	if len(flags) == 0 {
		return help
	}
	notice := lipgloss.NewStyle().Foreground(model.theme.NoticeText).Render(strings.Join(flags, "  "))
	return help + "  " + notice
}
