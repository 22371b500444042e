// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the widget.
type KeyMap struct {
	// Process table selection.
	Up   key.Binding
	Down key.Binding

	// Pause freezes the display on the current frame. Sampling
	// continues.
	Pause key.Binding

	// Save writes the latest frame to the snapshot file.
	Save key.Binding

	// Filter starts typing a fuzzy process filter. While typing,
	// FilterDone keeps the filter and FilterClear discards it.
	Filter      key.Binding
	FilterDone  key.Binding
	FilterClear key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save snapshot"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterDone: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "keep filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear filter"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp returns the bindings shown in the status line.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Filter, keys.Pause, keys.Save, keys.Quit}
}
