// ABOUTME: Terminal UI model and core state management
// ABOUTME: Bubble Tea model for picking images, editing options and running a batch

// Package tui provides an interactive terminal front end for selecting images,
// tuning vectorizer options and watching a batch run.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vtracer-batch/batch"
	"vtracer-batch/options"
)

// Panel identifiers
const (
	panelFiles     = "files"
	panelSelection = "selection"
	panelOptions   = "options"
)

// phase is the screen the model is showing
type phase int

const (
	phaseSelect  phase = iota // Picking files and options
	phaseRunning              // Batch in flight
	phaseDone                 // Batch finished, summary shown
)

// Layout constants for UI dimensions
const (
	filesPanelWidth   = 40
	optionsPanelWidth = 36
	panelPadding      = 2

	titleHeight     = 2 // Panel title bars
	progressHeight  = 2 // Progress bar plus blank line (running view)
	summaryHeight   = 2 // Totals line plus blank line (running view)
	statusBarHeight = 1
	helpHeight      = 1
	spacingHeight   = 1
	totalUIChrome   = titleHeight + statusBarHeight + helpHeight + spacingHeight

	minViewportWidth  = 20
	minViewportHeight = 5
)

// Navigation and interaction constants
const (
	pageJumpSize          = 10
	statusMessageDuration = 5 * time.Second
	maxUndoStackSize      = 50
	eventBufferSize       = 64 // Runner events queued while the UI is busy
	shutdownGrace         = 10 * time.Second
)

// imageExtensions are the files the picker lets the user select
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".gif", ".webp"}

// batchHandle tracks an in-flight batch
type batchHandle struct {
	cancel context.CancelFunc
	events chan tea.Msg
	done   chan batch.Summary // Receives the summary once the last child was reaped
}

// model holds the TUI state
type model struct {
	// Dependencies
	runner    BatchRunner
	log       logrus.FieldLogger
	tool      batch.Tool
	outputDir string

	// Options form (params write through to opts)
	opts     *options.Options
	paramMgr *ParamManager

	// File picking
	picker  filepicker.Model
	watcher *dirWatcher // nil when the platform refused a watch

	// Selection editing
	selection []string
	cursorPos int
	viewport  viewport.Model
	undoMgr   *UndoManager

	// Batch state
	phase        phase
	active       *batchHandle
	batchEpoch   int // Increments each start so stale messages can be ignored
	runID        uuid.UUID
	results      []batch.Result
	resultCursor int
	summary      *batch.Summary // Last finished batch
	spinner      spinner.Model
	progress     progress.Model

	// UI state
	width        int
	height       int
	quitting     bool
	statusMsg    string
	statusMsgAge time.Time
	focusedPanel string
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Tab      key.Binding
	Quit     key.Binding
	// Selection editing
	Delete key.Binding
	Undo   key.Binding
	Redo   key.Binding
	// Options
	Reset key.Binding
	// Batch control
	Start  key.Binding
	Cancel key.Binding
	Back   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "navigate"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "navigate"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "decrease option"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "increase option"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home/g", "first item"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end/G", "last item"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "remove file"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "redo"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset options"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start batch"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel batch"),
	),
	Back: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "back"),
	),
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	paramStyle = lipgloss.NewStyle().
			Padding(0, 1)

	selectedParamStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("240")).
				Foreground(lipgloss.Color("15")).
				Bold(true).
				Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Run starts the TUI and blocks until the user quits.
// It returns the summary of the last batch, or nil when none was started.
// Quitting mid-batch kills the running child and waits for it before returning.
func Run(opts Options, deps Dependencies) (*batch.Summary, error) {
	m := initModel(opts, deps)

	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()

	if m.watcher != nil {
		if cerr := m.watcher.Close(); cerr != nil {
			m.log.WithError(cerr).Warn("directory watcher close failed")
		}
	}

	fm, ok := finalModel.(model)
	if ok && fm.active != nil {
		fm.active.cancel()

		// The batch command may never have been scheduled if quit raced the start
		select {
		case summary := <-fm.active.done:
			fm.summary = &summary
		case <-time.After(shutdownGrace):
			fm.log.Warn("batch did not stop within the shutdown grace period")
		}
	}

	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("TUI error: unexpected model %T", finalModel)
	}

	return fm.summary, nil
}

// newPicker returns a file picker listing dir, limited to supported images
func newPicker(dir string) filepicker.Model {
	picker := filepicker.New()
	picker.CurrentDirectory = dir
	picker.AllowedTypes = imageExtensions

	return picker
}

// initModel creates the initial model with injected dependencies
func initModel(opts Options, deps Dependencies) model {
	log := deps.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	startDir := opts.StartDir
	if startDir == "" {
		startDir, _ = os.Getwd()
	}

	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}

	picker := newPicker(startDir)

	// Allocate on the heap so the form closures stay bound
	current := opts.Initial.Clone()
	if current.ColorMode == "" {
		current = options.DefaultOptions()
	}

	m := model{
		runner:    deps.Runner,
		log:       log.WithField("component", "tui"),
		tool:      opts.Tool,
		outputDir: opts.OutputDir,

		opts: &current,

		picker: picker,

		viewport: viewport.New(0, 0), // Width and height set on first WindowSizeMsg
		undoMgr:  NewUndoManager(maxUndoStackSize),

		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient()),

		focusedPanel: panelFiles,
	}

	m.paramMgr = NewParamManager(m.opts)

	watcher, err := newDirWatcher()
	if err != nil {
		m.log.WithError(err).Warn("live directory refresh disabled")
	} else {
		m.watcher = watcher
		if err := m.watcher.Follow(startDir); err != nil {
			m.log.WithError(err).Warn("cannot watch start directory")
		}
	}

	return m
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.picker.Init()}

	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Wait())
	}

	return tea.Batch(cmds...)
}

// ========== Helpers ==========

// truncate shortens s to maxLen terminal cells, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return ansi.Truncate(s, maxLen, "")
	}

	return ansi.Truncate(s, maxLen, "...")
}

// setStatusMsg sets a transient status message with current timestamp
func (m *model) setStatusMsg(msg string) {
	m.statusMsg = msg
	m.statusMsgAge = time.Now()
}

// ========== Selection ==========

// currentSelection snapshots the selection for the undo stack
func (m *model) currentSelection() SelectionState {
	return SelectionState{Paths: m.selection, CursorPos: m.cursorPos}
}

// addToSelection appends path unless it is already selected
func (m *model) addToSelection(path string) {
	if slices.Contains(m.selection, path) {
		m.setStatusMsg(fmt.Sprintf("%s is already selected", filepath.Base(path)))
		return
	}

	m.undoMgr.Push(m.currentSelection())

	m.selection = append(slices.Clip(m.selection), path)
	m.cursorPos = len(m.selection) - 1

	m.log.WithField("path", path).Debug("added to selection")
	m.setStatusMsg(fmt.Sprintf("Added %s (%d selected)", filepath.Base(path), len(m.selection)))

	m.ensureCursorVisible()
	m.updateViewportContent()
}

// removeSelected drops the file under the cursor
func (m *model) removeSelected() {
	if len(m.selection) == 0 {
		return
	}

	m.undoMgr.Push(m.currentSelection())

	removed := m.selection[m.cursorPos]
	m.selection = slices.Delete(slices.Clone(m.selection), m.cursorPos, m.cursorPos+1)
	m.cursorPos = clampCursor(m.cursorPos, len(m.selection))

	m.log.WithField("path", removed).Debug("removed from selection")
	m.setStatusMsg(fmt.Sprintf("Removed %s (Undo: %d, Redo: %d)", filepath.Base(removed), m.undoMgr.UndoSize(), m.undoMgr.RedoSize()))

	m.ensureCursorVisible()
	m.updateViewportContent()
}

// undo restores previous selection from undo stack using UndoManager
func (m *model) undo() {
	state, ok := m.undoMgr.Undo(m.currentSelection())
	if !ok {
		m.setStatusMsg("Nothing to undo")
		return
	}

	m.restoreSelection(state)
	m.setStatusMsg(fmt.Sprintf("Undo (Undo: %d, Redo: %d)", m.undoMgr.UndoSize(), m.undoMgr.RedoSize()))
}

// redo restores next selection from redo stack using UndoManager
func (m *model) redo() {
	state, ok := m.undoMgr.Redo(m.currentSelection())
	if !ok {
		m.setStatusMsg("Nothing to redo")
		return
	}

	m.restoreSelection(state)
	m.setStatusMsg(fmt.Sprintf("Redo (Undo: %d, Redo: %d)", m.undoMgr.UndoSize(), m.undoMgr.RedoSize()))
}

func (m *model) restoreSelection(state SelectionState) {
	m.selection = state.Paths
	m.cursorPos = clampCursor(state.CursorPos, len(m.selection))
	m.ensureCursorVisible()
	m.updateViewportContent()
}

// ensureCursorVisible keeps the active list's cursor row on screen
func (m *model) ensureCursorVisible() {
	var vm *ViewportManager
	if m.phase == phaseSelect {
		vm = NewViewportManager(m.viewport.Height, m.cursorPos, len(m.selection))
	} else {
		vm = NewViewportManager(m.viewport.Height, m.resultCursor, len(m.results))
	}

	m.viewport.SetYOffset(vm.CalculateOffset())
}

// moveCursor shifts the active list's cursor by delta, clamped to the list
func (m *model) moveCursor(delta int) {
	if m.phase == phaseSelect {
		m.cursorPos = clampCursor(m.cursorPos+delta, len(m.selection))
	} else {
		m.resultCursor = clampCursor(m.resultCursor+delta, len(m.results))
	}

	m.ensureCursorVisible()
	m.updateViewportContent()
}

// ========== Options ==========

// resetToDefaults restores every option row to its default value
func (m *model) resetToDefaults() {
	m.paramMgr.ResetToDefaults(options.DefaultOptions())
	m.log.Debug("options reset to defaults")
	m.setStatusMsg("Options reset to defaults")
}

// adjustSelectedParam steps the selected option in dir (+1/-1)
func (m *model) adjustSelectedParam(dir int) {
	var changed bool
	if dir > 0 {
		changed = m.paramMgr.Increase()
	} else {
		changed = m.paramMgr.Decrease()
	}

	if !changed {
		return
	}

	if p := m.paramMgr.GetSelected(); p != nil {
		m.log.WithFields(logrus.Fields{"option": p.Name, "value": p.Display()}).Debug("option changed")
	}
}

// ========== Batch lifecycle ==========

// startBatch freezes the selection and options and launches the runner
func (m *model) startBatch() tea.Cmd {
	rc, err := batch.NewRunContext(m.selection, *m.opts, m.tool, m.outputDir)
	if err != nil {
		if errors.Is(err, batch.ErrNoInput) {
			m.setStatusMsg("No files selected: pick at least one image before starting")
		} else {
			m.setStatusMsg(fmt.Sprintf("Cannot start: %v", err))
		}

		m.log.WithError(err).Info("batch not started")

		return nil
	}

	m.batchEpoch++

	ctx, cancel := context.WithCancel(context.Background())
	h := &batchHandle{
		cancel: cancel,
		events: make(chan tea.Msg, eventBufferSize),
		done:   make(chan batch.Summary, 1),
	}

	plan := rc.Plan()
	m.results = make([]batch.Result, len(plan))

	for i, inv := range plan {
		m.results[i] = batch.Result{Index: i, Input: inv.Input, Output: inv.Output, State: batch.StatePending}
	}

	m.active = h
	m.runID = rc.ID
	m.phase = phaseRunning
	m.resultCursor = 0
	m.statusMsg = ""
	m.resize()

	m.log.WithFields(logrus.Fields{"run": rc.ID.String(), "files": len(rc.Inputs)}).Info("batch started from TUI")

	return tea.Batch(
		m.runBatch(ctx, rc, h, m.batchEpoch),
		waitForEvent(h.events),
		m.spinner.Tick,
	)
}

// runBatch runs the whole batch inside a command goroutine
func (m *model) runBatch(ctx context.Context, rc *batch.RunContext, h *batchHandle, epoch int) tea.Cmd {
	runner := m.runner
	log := m.log

	return func() tea.Msg {
		defer close(h.events)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("[PANIC] runBatch panic: %v", r)
				log.Errorf("[PANIC] Stack trace: %s", string(debug.Stack()))
				panic(r) // Re-panic after logging
			}
		}()

		summary := runner.Run(ctx, rc, func(e batch.Event) {
			select {
			case h.events <- progressMsg{event: e, epoch: epoch}:
			case <-ctx.Done():
			}
		})

		h.done <- summary

		return batchDoneMsg{summary: summary, epoch: epoch}
	}
}

// waitForEvent waits for runner events and returns them as messages
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			// Batch finished
			return nil
		}

		return msg
	}
}

// cancelBatch kills the running child; remaining files are reported as interrupted
func (m *model) cancelBatch() {
	if m.active == nil {
		return
	}

	m.active.cancel()
	m.log.WithField("run", m.runID.String()).Info("batch cancelled by user")
	m.setStatusMsg("Cancelling batch...")
}

// backToSelection leaves the summary screen; selection and options are kept
func (m *model) backToSelection() {
	m.phase = phaseSelect
	m.results = nil
	m.resultCursor = 0
	m.resize()
	m.ensureCursorVisible()
	m.updateViewportContent()
}

// resize recomputes the viewport for the current phase
func (m *model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	var width, height int

	if m.phase == phaseSelect {
		width = m.width - filesPanelWidth - optionsPanelWidth - 2*panelPadding
		height = m.height - totalUIChrome
	} else {
		width = m.width - panelPadding
		height = m.height - totalUIChrome - progressHeight - summaryHeight
	}

	m.viewport.Width = max(width, minViewportWidth)
	m.viewport.Height = max(height, minViewportHeight)
	m.progress.Width = max(m.width-panelPadding*2, minViewportWidth)
}
