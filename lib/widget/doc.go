// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package widget renders scene frames in the terminal. Built on
// bubbletea (Elm architecture): [Model] consumes frames from a
// [Source], and [Render] turns one frame into text, which is also what
// the one-shot (non-interactive) mode prints.
//
// Gauges render as progress bars, histories as sparklines, and the
// process rows as a table with one selected row. The selected process
// is held through an owned handle from the process registry, so when
// the process exits the detail line says so immediately, even while
// the display is paused on an old frame.
//
// Typing "/" starts a fuzzy filter over the process rows, matched with
// fzf's algorithm against each row's pid and command.
package widget
