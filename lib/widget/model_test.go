// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/telescene/lib/owned"
	"github.com/bureau-foundation/telescene/lib/proctree"
	"github.com/bureau-foundation/telescene/lib/scene"
)

// fakeSource serves frames from a channel and processes from a fixed
// set of handles.
type fakeSource struct {
	frames    chan scene.Frame
	processes map[int]*owned.Handle[*proctree.Process]
	savedPath string
	saveErr   error
}

func newFakeSource(t *testing.T, pids ...int) *fakeSource {
	source := &fakeSource{
		frames:    make(chan scene.Frame, 1),
		processes: make(map[int]*owned.Handle[*proctree.Process]),
		savedPath: "/state/latest.tsnp",
	}
	for _, pid := range pids {
		source.processes[pid] = owned.Make(&proctree.Process{PID: pid})
	}
	t.Cleanup(func() {
		for _, handle := range source.processes {
			handle.Drop()
		}
	})
	return source
}

func (s *fakeSource) Frames() <-chan scene.Frame { return s.frames }

func (s *fakeSource) SaveSnapshot() (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	return s.savedPath, nil
}

func (s *fakeSource) Lookup(pid int) *owned.Handle[*proctree.Process] {
	return s.processes[pid].Clone()
}

// uses returns the use count of the source's handle for pid.
func (s *fakeSource) uses(pid int) uint32 {
	uses, _ := s.processes[pid].Counts()
	return uses
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(message)
	result, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return result, cmd
}

func view(model Model) string {
	return ansi.Strip(model.View())
}

func twoRows(t *testing.T) scene.Frame {
	return testFrame(t,
		testRow{pid: 42, command: "compile job", cpu: 50},
		testRow{pid: 7, command: "logger", cpu: 10},
	)
}

func TestModelWaitsForFirstFrame(t *testing.T) {
	model := NewModel(newFakeSource(t), Options{Theme: PlainTheme})
	if output := view(model); !strings.Contains(output, "waiting for the first sample") {
		t.Errorf("View() before any frame = %q", output)
	}
}

func TestModelListensForFrames(t *testing.T) {
	source := newFakeSource(t, 42, 7)
	model := NewModel(source, Options{Theme: PlainTheme})

	frame := twoRows(t)
	source.frames <- frame
	message := model.Init()()
	if _, ok := message.(frameMsg); !ok {
		t.Fatalf("Init command produced %T, want frameMsg", message)
	}

	model, cmd := update(t, model, message)
	defer model.Close()
	if cmd == nil {
		t.Fatal("frame handling did not keep listening")
	}
	output := view(model)
	for _, want := range []string{"compile job", "logger", "pid 42  ppid 0", "q quit"} {
		if !strings.Contains(output, want) {
			t.Errorf("View() lacks %q:\n%s", want, output)
		}
	}

	close(source.frames)
	message = cmd()
	if _, ok := message.(framesClosedMsg); !ok {
		t.Fatalf("command after close produced %T, want framesClosedMsg", message)
	}
	_, cmd = update(t, model, message)
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed frame channel did not quit")
	}
}

func TestModelSelectionMoves(t *testing.T) {
	source := newFakeSource(t, 42, 7)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: twoRows(t)})

	if source.uses(42) != 2 {
		t.Fatalf("uses of pid 42 = %d, want 2 while selected", source.uses(42))
	}

	model, _ = update(t, model, runeKey('j'))
	if !strings.Contains(view(model), "pid 7  ppid 0") {
		t.Errorf("detail after moving down:\n%s", view(model))
	}
	if source.uses(42) != 1 || source.uses(7) != 2 {
		t.Errorf("uses after moving down: pid 42 = %d, pid 7 = %d", source.uses(42), source.uses(7))
	}

	model, _ = update(t, model, runeKey('j'))
	if model.cursor != 1 {
		t.Errorf("cursor moved past the last row: %d", model.cursor)
	}
	model, _ = update(t, model, runeKey('k'))
	model, _ = update(t, model, runeKey('k'))
	if model.cursor != 0 || model.selectedPID != 42 {
		t.Errorf("cursor = %d, selected = %d after moving up twice", model.cursor, model.selectedPID)
	}

	model.Close()
	if source.uses(42) != 1 {
		t.Errorf("uses of pid 42 after Close = %d, want 1", source.uses(42))
	}
}

func TestModelSelectionFollowsPID(t *testing.T) {
	source := newFakeSource(t, 42, 7)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: twoRows(t)})
	model, _ = update(t, model, runeKey('j'))

	reordered := testFrame(t,
		testRow{pid: 7, command: "logger", cpu: 80},
		testRow{pid: 42, command: "compile job", cpu: 5},
	)
	model, _ = update(t, model, frameMsg{frame: reordered})
	if model.cursor != 0 || model.selectedPID != 7 {
		t.Errorf("cursor = %d, selected = %d, want pid 7 at row 0", model.cursor, model.selectedPID)
	}

	model, _ = update(t, model, frameMsg{frame: testFrame(t, testRow{pid: 42, command: "compile job"})})
	defer model.Close()
	if model.selectedPID != 42 {
		t.Errorf("selected = %d after pid 7 left the table, want 42", model.selectedPID)
	}
	if source.uses(7) != 1 {
		t.Errorf("uses of pid 7 = %d, want 1 after it was deselected", source.uses(7))
	}
}

func TestModelDetailShowsExit(t *testing.T) {
	source := newFakeSource(t, 42, 7)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: twoRows(t)})
	defer model.Close()

	source.processes[42].Reset()
	if output := view(model); !strings.Contains(output, "pid 42 (exited)") {
		t.Errorf("detail after exit:\n%s", output)
	}
}

func TestModelPauseFreezesDisplay(t *testing.T) {
	source := newFakeSource(t, 42, 7)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: twoRows(t)})
	defer model.Close()

	model, _ = update(t, model, runeKey('p'))
	if !strings.Contains(view(model), "PAUSED") {
		t.Error("status line does not show PAUSED")
	}

	next := testFrame(t, testRow{pid: 7, command: "renamed", cpu: 10})
	model, cmd := update(t, model, frameMsg{frame: next})
	if cmd == nil {
		t.Error("paused model stopped listening for frames")
	}
	if strings.Contains(view(model), "renamed") {
		t.Error("paused model adopted a new frame")
	}

	model, _ = update(t, model, runeKey('p'))
	model, _ = update(t, model, frameMsg{frame: next})
	output := view(model)
	if !strings.Contains(output, "renamed") || strings.Contains(output, "PAUSED") {
		t.Errorf("resumed model:\n%s", output)
	}
}

func TestModelSaveSnapshot(t *testing.T) {
	source := newFakeSource(t)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: testFrame(t)})

	model, cmd := update(t, model, runeKey('s'))
	if cmd == nil {
		t.Fatal("save key produced no command")
	}
	model, fade := update(t, model, cmd())
	if !strings.Contains(view(model), "snapshot saved to /state/latest.tsnp") {
		t.Errorf("status after save:\n%s", view(model))
	}
	if fade == nil {
		t.Error("notice has no fade")
	}
	model, _ = update(t, model, noticeFadeMsg{})
	if strings.Contains(view(model), "snapshot saved") {
		t.Error("notice still shown after fade")
	}

	source.saveErr = errors.New("disk full")
	model, cmd = update(t, model, runeKey('s'))
	model, _ = update(t, model, cmd())
	if !strings.Contains(view(model), "snapshot failed: disk full") {
		t.Errorf("status after failed save:\n%s", view(model))
	}
}

func TestModelQuit(t *testing.T) {
	model := NewModel(newFakeSource(t), Options{Theme: PlainTheme})
	for _, message := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyCtrlC}} {
		_, cmd := update(t, model, message)
		if cmd == nil {
			t.Fatalf("%s produced no command", message)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not quit", message)
		}
	}
}

func TestModelFilter(t *testing.T) {
	source := newFakeSource(t, 42, 7, 9)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: testFrame(t,
		testRow{pid: 42, command: "compile job", cpu: 50},
		testRow{pid: 7, command: "logger", cpu: 10},
		testRow{pid: 9, command: "cargo build", cpu: 5},
	)})
	defer model.Close()

	model, _ = update(t, model, runeKey('/'))
	for _, r := range "lgr" {
		model, _ = update(t, model, runeKey(r))
	}
	output := view(model)
	if !strings.Contains(output, "/lgr") {
		t.Errorf("status line does not show the filter being typed:\n%s", output)
	}
	if strings.Contains(output, "compile job") || !strings.Contains(output, "logger") {
		t.Errorf("filtered table:\n%s", output)
	}
	if model.selectedPID != 7 {
		t.Errorf("selected = %d, want the only match, 7", model.selectedPID)
	}

	// q is filter text while typing.
	model, cmd := update(t, model, runeKey('q'))
	if cmd != nil {
		t.Error("q quit while typing a filter")
	}
	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyBackspace})
	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.filtering || model.filter != "lgr" {
		t.Errorf("after enter: filtering = %t, filter = %q", model.filtering, model.filter)
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if model.filter != "" {
		t.Errorf("filter = %q after esc", model.filter)
	}
	if output := view(model); !strings.Contains(output, "compile job") || !strings.Contains(output, "cargo build") {
		t.Errorf("table after clearing the filter:\n%s", output)
	}
	if model.selectedPID != 7 || model.cursor != 1 {
		t.Errorf("selection moved when the filter cleared: pid %d at %d", model.selectedPID, model.cursor)
	}
}

func TestModelFilterWithoutMatches(t *testing.T) {
	source := newFakeSource(t, 42)
	model := NewModel(source, Options{Theme: PlainTheme})
	model, _ = update(t, model, frameMsg{frame: testFrame(t, testRow{pid: 42, command: "compile job"})})
	defer model.Close()

	model, _ = update(t, model, runeKey('/'))
	model, _ = update(t, model, runeKey('z'))
	if output := view(model); !strings.Contains(output, `no process matches "z"`) {
		t.Errorf("View() with no matches:\n%s", output)
	}
	if model.selectedPID != 0 || source.uses(42) != 1 {
		t.Errorf("selection kept with no matching rows: pid %d, uses %d", model.selectedPID, source.uses(42))
	}
}
