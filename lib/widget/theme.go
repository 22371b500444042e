// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette of the widget. Colors are lipgloss
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	Name string

	// Text colors.
	NormalText lipgloss.TerminalColor
	FaintText  lipgloss.TerminalColor

	// Selected process row.
	SelectedBackground lipgloss.TerminalColor
	SelectedForeground lipgloss.TerminalColor

	// UI chrome.
	HeaderForeground lipgloss.TerminalColor
	HelpText         lipgloss.TerminalColor
	NoticeText       lipgloss.TerminalColor

	// Gauge fill by utilization: below 60%, below 85%, above.
	BarNormal   string
	BarWarning  string
	BarCritical string
	BarEmpty    string

	// Sparkline color.
	HistoryForeground lipgloss.TerminalColor

	// Profile is the color profile of progress bars.
	Profile termenv.Profile
}

// BarColor returns the fill color for a gauge at fraction (0 to 1).
func (theme Theme) BarColor(fraction float64) string {
	switch {
	case fraction >= 0.85:
		return theme.BarCritical
	case fraction >= 0.6:
		return theme.BarWarning
	default:
		return theme.BarNormal
	}
}

// DarkTheme is the built-in color scheme for terminals with a dark
// background.
var DarkTheme = Theme{
	Name: "dark",

	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),
	NoticeText:       lipgloss.Color("220"), // amber

	BarNormal:   "114", // green
	BarWarning:  "220", // amber
	BarCritical: "196", // red
	BarEmpty:    "238",

	HistoryForeground: lipgloss.Color("75"), // blue

	Profile: termenv.ANSI256,
}

// LightTheme is the built-in color scheme for terminals with a light
// background.
var LightTheme = Theme{
	Name: "light",

	NormalText: lipgloss.Color("236"),
	FaintText:  lipgloss.Color("243"),

	SelectedBackground: lipgloss.Color("254"),
	SelectedForeground: lipgloss.Color("232"),

	HeaderForeground: lipgloss.Color("232"),
	HelpText:         lipgloss.Color("245"),
	NoticeText:       lipgloss.Color("130"), // dark orange

	BarNormal:   "28",  // dark green
	BarWarning:  "136", // dark amber
	BarCritical: "160", // dark red
	BarEmpty:    "252",

	HistoryForeground: lipgloss.Color("25"), // dark blue

	Profile: termenv.ANSI256,
}

// PlainTheme uses no color at all. It is used for non-terminal output.
var PlainTheme = Theme{
	Name: "plain",

	NormalText:         lipgloss.NoColor{},
	FaintText:          lipgloss.NoColor{},
	SelectedBackground: lipgloss.NoColor{},
	SelectedForeground: lipgloss.NoColor{},
	HeaderForeground:   lipgloss.NoColor{},
	HelpText:           lipgloss.NoColor{},
	NoticeText:         lipgloss.NoColor{},
	HistoryForeground:  lipgloss.NoColor{},

	Profile: termenv.Ascii,
}

// ThemeNamed returns the built-in theme called name.
func ThemeNamed(name string) (Theme, bool) {
	for _, theme := range []Theme{DarkTheme, LightTheme, PlainTheme} {
		if theme.Name == name {
			return theme, true
		}
	}
	return Theme{}, false
}
