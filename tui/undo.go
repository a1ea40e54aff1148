// ABOUTME: Undo/redo stack manager for selection editing
// ABOUTME: Manages snapshot history of the selected paths with maximum stack size limit

package tui

// SelectionState captures a snapshot of the selection for undo/redo
type SelectionState struct {
	Paths     []string
	CursorPos int
}

// clone deep-copies the paths so later edits cannot alter history
func (s SelectionState) clone() SelectionState {
	return SelectionState{
		Paths:     append([]string{}, s.Paths...),
		CursorPos: s.CursorPos,
	}
}

// UndoManager manages undo/redo stacks with maximum size limit
type UndoManager struct {
	undoStack []SelectionState
	redoStack []SelectionState
	maxSize   int
}

// NewUndoManager creates a new undo manager with the specified max stack size
func NewUndoManager(maxSize int) *UndoManager {
	return &UndoManager{
		undoStack: []SelectionState{},
		redoStack: []SelectionState{},
		maxSize:   maxSize,
	}
}

// Push records the state before an edit.
// Clears the redo stack (you can't redo after a new action)
func (um *UndoManager) Push(state SelectionState) {
	um.undoStack = um.bounded(append(um.undoStack, state.clone()))
	um.redoStack = []SelectionState{}
}

// Undo restores the previous state
// Returns the state and true if undo was successful, or zero value and false if nothing to undo
func (um *UndoManager) Undo(current SelectionState) (SelectionState, bool) {
	if len(um.undoStack) == 0 {
		return SelectionState{}, false
	}

	um.redoStack = um.bounded(append(um.redoStack, current.clone()))

	state := um.undoStack[len(um.undoStack)-1]
	um.undoStack = um.undoStack[:len(um.undoStack)-1]

	return state, true
}

// Redo re-applies the last undone edit
// Returns the state and true if redo was successful, or zero value and false if nothing to redo
func (um *UndoManager) Redo(current SelectionState) (SelectionState, bool) {
	if len(um.redoStack) == 0 {
		return SelectionState{}, false
	}

	um.undoStack = um.bounded(append(um.undoStack, current.clone()))

	state := um.redoStack[len(um.redoStack)-1]
	um.redoStack = um.redoStack[:len(um.redoStack)-1]

	return state, true
}

// bounded drops the oldest entries beyond maxSize
func (um *UndoManager) bounded(stack []SelectionState) []SelectionState {
	if len(stack) > um.maxSize {
		return stack[len(stack)-um.maxSize:]
	}

	return stack
}

// UndoSize returns the number of items in the undo stack
func (um *UndoManager) UndoSize() int {
	return len(um.undoStack)
}

// RedoSize returns the number of items in the redo stack
func (um *UndoManager) RedoSize() int {
	return len(um.redoStack)
}
