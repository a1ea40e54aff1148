// ABOUTME: Scroll offset calculation for the selection and progress lists
// ABOUTME: Keeps the cursor row visible, centring it once the list is longer than the view

package tui

// ViewportManager computes the first visible row for a list with a cursor.
// The cursor moves freely near either end and stays centred in between.
type ViewportManager struct {
	height     int // Visible rows
	cursorPos  int
	totalItems int
}

// NewViewportManager creates a new viewport manager
func NewViewportManager(height, cursorPos, totalItems int) *ViewportManager {
	return &ViewportManager{
		height:     height,
		cursorPos:  cursorPos,
		totalItems: totalItems,
	}
}

// ScrollPhase describes where the cursor sits relative to the scrolled window
type ScrollPhase int

// Scroll phases: near the top, centred, near the bottom
const (
	TopPhase ScrollPhase = iota
	MiddlePhase
	BottomPhase
)

// Phase reports which region the cursor is in
func (vm *ViewportManager) Phase() ScrollPhase {
	if vm.totalItems == 0 || vm.height < 1 {
		return TopPhase
	}

	middle := vm.height / 2
	if vm.cursorPos < middle {
		return TopPhase
	}

	if vm.cursorPos < vm.totalItems-vm.height+middle {
		return MiddlePhase
	}

	return BottomPhase
}

// CalculateOffset returns the Y offset that keeps the cursor visible
func (vm *ViewportManager) CalculateOffset() int {
	switch vm.Phase() {
	case MiddlePhase:
		return vm.cursorPos - vm.height/2
	case BottomPhase:
		return max(vm.totalItems-vm.height, 0)
	default:
		return 0
	}
}

// clampCursor keeps pos inside [0, total)
func clampCursor(pos, total int) int {
	if total == 0 || pos < 0 {
		return 0
	}

	if pos >= total {
		return total - 1
	}

	return pos
}
