// ABOUTME: Rendering and display functions for the TUI
// ABOUTME: Implements the Bubble Tea View() function and all render helpers

package tui

import (
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vtracer-batch/batch"
)

// View renders the TUI
func (m model) View() string {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("[PANIC] View panic: %v", r)
			m.log.Errorf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	if m.quitting {
		if m.active != nil {
			return "Stopping vectorizer and exiting...\n"
		}

		return ""
	}

	if m.phase != phaseSelect {
		return m.renderBatch() + "\n" + m.renderStatus() + "\n" + m.renderHelp()
	}

	panelHeight := m.height - (statusBarHeight + helpHeight + spacingHeight)

	panel := func(width int) lipgloss.Style {
		return lipgloss.NewStyle().
			Width(width).
			Height(panelHeight).
			Padding(0, 1)
	}

	selectionWidth := max(m.width-filesPanelWidth-optionsPanelWidth-2*panelPadding, minViewportWidth)

	combined := lipgloss.JoinHorizontal(
		lipgloss.Top,
		panel(filesPanelWidth).Render(m.renderFiles()),
		panel(selectionWidth).Render(m.renderSelection()),
		panel(optionsPanelWidth).Render(m.renderOptions()),
	)

	return combined + "\n" + m.renderStatus() + "\n" + m.renderHelp()
}

// panelTitle marks the focused panel
func (m model) panelTitle(title, panel string) string {
	if m.focusedPanel == panel {
		title = "► " + title
	}

	return titleStyle.Render(title) + "\n\n"
}

// renderFiles renders the file picker panel
func (m model) renderFiles() string {
	dir := truncate(m.picker.CurrentDirectory, filesPanelWidth-4)

	return m.panelTitle("Images", panelFiles) + helpStyle.Render(dir) + "\n" + m.picker.View()
}

// renderSelection renders the ordered selection with viewport scrolling
func (m model) renderSelection() string {
	title := fmt.Sprintf("Selected (%d)", len(m.selection))

	return m.panelTitle(title, panelSelection) + m.viewport.View()
}

// renderOptions renders the option form
func (m model) renderOptions() string {
	var s strings.Builder

	s.WriteString(m.panelTitle("Options", panelOptions))

	for i, param := range m.paramMgr.All() {
		prefix := "  "
		if i == m.paramMgr.Selected() {
			prefix = "► "
		}

		// Fixed width formatting to prevent column misalignment
		line := fmt.Sprintf("%s%-18s %9s", prefix, param.Name, param.Display())

		if i == m.paramMgr.Selected() {
			s.WriteString(selectedParamStyle.Render(line) + "\n")
		} else {
			s.WriteString(paramStyle.Render(line) + "\n")
		}
	}

	if len(m.opts.Extra) > 0 {
		s.WriteString("\n" + helpStyle.Render("extra: "+strings.Join(m.opts.Extra, " ")) + "\n")
	}

	return s.String()
}

// updateViewportContent builds and sets the viewport content for the current phase
func (m *model) updateViewportContent() {
	var content strings.Builder

	if m.phase == phaseSelect {
		for i, path := range m.selection {
			line := fmt.Sprintf("%-3d %s", i+1, truncate(path, max(m.viewport.Width-5, 10)))
			if i == m.cursorPos && m.focusedPanel == panelSelection {
				line = cursorStyle.Render(line)
			}

			content.WriteString(line + "\n")
		}

		if len(m.selection) == 0 {
			content.WriteString(helpStyle.Render("Nothing selected yet. Press enter on an image to add it.") + "\n")
		}

		m.viewport.SetContent(content.String())

		return
	}

	for i, r := range m.results {
		line := m.renderResult(r)
		if i == m.resultCursor && m.phase == phaseDone {
			line = cursorStyle.Render(line)
		}

		content.WriteString(line + "\n")
	}

	m.viewport.SetContent(content.String())
}

// renderResult formats one file line of the running view
func (m model) renderResult(r batch.Result) string {
	name := fmt.Sprintf("%s → %s", filepath.Base(r.Input), filepath.Base(r.Output))

	switch r.State {
	case batch.StateRunning:
		return m.spinner.View() + " " + name
	case batch.StateSucceeded:
		return okStyle.Render("✓") + " " + name + pendingStyle.Render(" "+r.Duration.Round(time.Millisecond).String())
	case batch.StateFailed:
		reason := ""
		if r.Err != nil {
			reason = truncate(firstLine(r.Err.Error()), max(m.viewport.Width-len(name)-6, 10))
		}

		return failStyle.Render("✗") + " " + name + " " + failStyle.Render(reason)
	default:
		return pendingStyle.Render("· " + name)
	}
}

// renderBatch renders the running and finished views
func (m model) renderBatch() string {
	var s strings.Builder

	title := fmt.Sprintf("Vectorizing %d files", len(m.results))
	if m.phase == phaseDone {
		title = fmt.Sprintf("Finished %d files", len(m.results))
	}

	s.WriteString(titleStyle.Render(title) + helpStyle.Render("  run "+m.runID.String()[:8]) + "\n\n")

	finished := 0

	for _, r := range m.results {
		if r.State.Done() {
			finished++
		}
	}

	pct := 0.0
	if len(m.results) > 0 {
		pct = float64(finished) / float64(len(m.results))
	}

	s.WriteString(m.progress.ViewAs(pct) + "\n\n")
	s.WriteString(m.viewport.View() + "\n")

	if m.phase == phaseDone && m.summary != nil {
		s.WriteString(fmt.Sprintf("%s %d succeeded  %s %d failed\n",
			okStyle.Render("✓"), m.summary.Succeeded, failStyle.Render("✗"), m.summary.Failed))

		if m.summary.ToolMissing {
			s.WriteString("\n" + failStyle.Render(batch.InstallHint) + "\n")
		}
	}

	return s.String()
}

// renderStatus renders the status bar
func (m model) renderStatus() string {
	// Show status message if recent
	if m.statusMsg != "" && time.Since(m.statusMsgAge) < statusMessageDuration {
		return statusStyle.Width(m.width).Render(m.statusMsg)
	}

	var status string

	switch m.phase {
	case phaseSelect:
		status = fmt.Sprintf("%d selected | File %d/%d | U:%d R:%d | Output: %s",
			len(m.selection),
			min(m.cursorPos+1, len(m.selection)),
			len(m.selection),
			m.undoMgr.UndoSize(),
			m.undoMgr.RedoSize(),
			m.outputLocation(),
		)
	default:
		status = fmt.Sprintf("%d files | Output: %s | Tool: %s", len(m.results), m.outputLocation(), m.tool.Binary)
	}

	return statusStyle.Width(m.width).Render(status)
}

// outputLocation describes where SVGs are written
func (m model) outputLocation() string {
	if m.outputDir == "" {
		return "next to each image"
	}

	return m.outputDir
}

// renderHelp renders the help text
func (m model) renderHelp() string {
	switch m.phase {
	case phaseRunning:
		return helpStyle.Render(" ↑/↓: scroll | c: cancel batch | q: quit")
	case phaseDone:
		return helpStyle.Render(" ↑/↓: scroll | b: back to selection | q: quit")
	}

	return helpStyle.Render(" Tab: switch panel | enter: add image | d: remove | u: undo | ctrl+r: redo | ←/→: adjust option | r: reset options | s: start | q: quit")
}

// firstLine returns s up to its first newline
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
