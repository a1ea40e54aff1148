// ABOUTME: Event handling and state updates for the TUI
// ABOUTME: Implements the Bubble Tea Update() function and message handlers

package tui

import (
	"fmt"
	"path/filepath"
	"runtime/debug"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"vtracer-batch/batch"
)

// Update handles messages and updates the model
//
//nolint:ireturn // Bubble Tea framework requires returning tea.Model interface
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("[PANIC] Update panic: %v", r)
			m.log.Errorf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ensureCursorVisible()
		m.updateViewportContent()

		// The picker sizes itself from the same message
		return m.updatePicker(msg)

	case progressMsg:
		// Ignore events from an earlier batch or after the summary arrived
		if msg.epoch != m.batchEpoch || m.phase != phaseRunning {
			return m, nil
		}

		r := msg.event.Result
		if r.Index >= 0 && r.Index < len(m.results) {
			m.results[r.Index] = r
		}

		if r.State == batch.StateRunning {
			m.resultCursor = r.Index
			m.ensureCursorVisible()
		}

		m.updateViewportContent()

		return m, waitForEvent(m.active.events)

	case batchDoneMsg:
		if msg.epoch != m.batchEpoch {
			return m, nil
		}

		return m.handleBatchDone(msg.summary), nil

	case spinner.TickMsg:
		// Stop ticking once nothing is running
		if m.phase != phaseRunning {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewportContent()

		return m, cmd

	case dirChangedMsg:
		if m.watcher == nil {
			return m, nil
		}

		cmds := []tea.Cmd{m.watcher.Wait()}
		if msg.dir == filepath.Clean(m.picker.CurrentDirectory) {
			if msg.removed {
				m.resetPicker()
			}

			cmds = append(cmds, m.picker.Init())
		}

		return m, tea.Batch(cmds...)

	case watchErrMsg:
		m.log.WithError(msg.err).Warn("directory watcher error")

		return m, m.watcher.Wait()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Directory listings and other picker internals
	return m.updatePicker(msg)
}

// handleBatchDone replaces the live results with the final summary
func (m model) handleBatchDone(summary batch.Summary) model {
	m.phase = phaseDone
	m.active = nil
	m.results = summary.Results
	m.summary = &summary

	m.log.WithFields(logrus.Fields{
		"run":       summary.RunID.String(),
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("batch finished in TUI")

	switch {
	case summary.ToolMissing:
		m.setStatusMsg("vtracer was not found: no file was converted")
	case summary.Interrupted:
		m.setStatusMsg(fmt.Sprintf("Batch cancelled: %d succeeded, %d failed", summary.Succeeded, summary.Failed))
	default:
		m.setStatusMsg(fmt.Sprintf("Batch finished: %d succeeded, %d failed", summary.Succeeded, summary.Failed))
	}

	m.ensureCursorVisible()
	m.updateViewportContent()

	return m
}

// resetPicker replaces the picker with a fresh one on the same directory.
// A shorter listing would otherwise leave the picker's cursor past its last entry.
func (m *model) resetPicker() {
	old := m.picker

	m.picker = newPicker(old.CurrentDirectory)
	m.picker.AutoHeight = old.AutoHeight
	m.picker.SetHeight(old.Height) //nolint:staticcheck // Height has no getter

	m.log.WithField("dir", old.CurrentDirectory).Debug("entry removed, picker reset")
}

// updatePicker forwards msg to the file picker and picks up selections
func (m model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.addToSelection(path)
	}

	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.setStatusMsg(fmt.Sprintf("%s is not a supported image", filepath.Base(path)))
	}

	if m.watcher != nil {
		if err := m.watcher.Follow(m.picker.CurrentDirectory); err != nil {
			m.log.WithError(err).Debug("cannot follow picker directory")
		}
	}

	return m, cmd
}

// handleKey routes key presses by phase and focused panel
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m.handleQuitKey()
	}

	switch m.phase {
	case phaseRunning:
		switch {
		case key.Matches(msg, keys.Cancel):
			m.cancelBatch()
		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Down):
			m.moveCursor(1)
		}

		return m, nil

	case phaseDone:
		switch {
		case key.Matches(msg, keys.Back):
			m.backToSelection()
		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, keys.PageUp):
			m.moveCursor(-pageJumpSize)
		case key.Matches(msg, keys.PageDown):
			m.moveCursor(pageJumpSize)
		}

		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Tab):
		m.handleTabKey()
		return m, nil

	case key.Matches(msg, keys.Start):
		return m, m.startBatch()
	}

	switch m.focusedPanel {
	case panelFiles:
		return m.updatePicker(msg)
	case panelSelection:
		m.handleSelectionKey(msg)
	case panelOptions:
		m.handleOptionsKey(msg)
	}

	return m, nil
}

// handleQuitKey stops any running batch and exits
func (m model) handleQuitKey() (tea.Model, tea.Cmd) {
	m.quitting = true

	if m.active != nil {
		// Run waits for the killed child after the program exits
		m.active.cancel()
		m.log.WithField("run", m.runID.String()).Info("quitting with batch in flight")
	}

	return m, tea.Quit
}

// handleTabKey cycles focus through the three panels
func (m *model) handleTabKey() {
	switch m.focusedPanel {
	case panelFiles:
		m.focusedPanel = panelSelection
	case panelSelection:
		m.focusedPanel = panelOptions
	default:
		m.focusedPanel = panelFiles
	}

	m.updateViewportContent()
}

// handleSelectionKey edits and navigates the selection list
func (m *model) handleSelectionKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.PageUp):
		m.moveCursor(-pageJumpSize)
	case key.Matches(msg, keys.PageDown):
		m.moveCursor(pageJumpSize)
	case key.Matches(msg, keys.Home):
		m.moveCursor(-len(m.selection))
	case key.Matches(msg, keys.End):
		m.moveCursor(len(m.selection))
	case key.Matches(msg, keys.Delete):
		m.removeSelected()
	case key.Matches(msg, keys.Undo):
		m.undo()
	case key.Matches(msg, keys.Redo):
		m.redo()
	}
}

// handleOptionsKey navigates and adjusts the option rows
func (m *model) handleOptionsKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Up):
		m.paramMgr.SelectPrevious()
	case key.Matches(msg, keys.Down):
		m.paramMgr.SelectNext()
	case key.Matches(msg, keys.Home):
		m.paramMgr.SetSelected(0)
	case key.Matches(msg, keys.End):
		m.paramMgr.SetSelected(m.paramMgr.Len() - 1)
	case key.Matches(msg, keys.Left):
		m.adjustSelectedParam(-1)
	case key.Matches(msg, keys.Right):
		m.adjustSelectedParam(1)
	case key.Matches(msg, keys.Reset):
		m.resetToDefaults()
	}
}
