// ABOUTME: Tests for ViewportManager scrolling logic
// ABOUTME: Verifies cursor-centring offsets across list sizes and the cursor clamp

package tui

import "testing"

func TestViewportManager_Offsets(t *testing.T) {
	tests := []struct {
		name       string
		height     int
		cursorPos  int
		total      int
		wantOffset int
		wantPhase  ScrollPhase
	}{
		{"top: cursor at 0", 10, 0, 50, 0, TopPhase},
		{"top: just before middle", 10, 4, 50, 0, TopPhase},
		{"middle: at middle", 10, 5, 50, 0, MiddlePhase},
		{"middle: scrolled", 10, 20, 50, 15, MiddlePhase},
		{"middle: last centred row", 10, 44, 50, 39, MiddlePhase},
		{"bottom: threshold", 10, 45, 50, 40, BottomPhase},
		{"bottom: last item", 10, 49, 50, 40, BottomPhase},
		{"short list never scrolls", 10, 7, 8, 0, BottomPhase},
		{"empty list", 10, 0, 0, 0, TopPhase},
		{"zero height", 0, 3, 50, 0, TopPhase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := NewViewportManager(tt.height, tt.cursorPos, tt.total)

			if got := vm.CalculateOffset(); got != tt.wantOffset {
				t.Errorf("CalculateOffset() = %d, want %d", got, tt.wantOffset)
			}

			if got := vm.Phase(); got != tt.wantPhase {
				t.Errorf("Phase() = %v, want %v", got, tt.wantPhase)
			}
		})
	}
}

func TestViewportManager_CursorAlwaysVisible(t *testing.T) {
	const height, total = 7, 30

	for cursor := range total {
		offset := NewViewportManager(height, cursor, total).CalculateOffset()

		if cursor < offset || cursor >= offset+height {
			t.Errorf("Cursor %d not visible in window [%d, %d)", cursor, offset, offset+height)
		}
	}
}

func TestClampCursor(t *testing.T) {
	tests := []struct {
		pos, total, want int
	}{
		{0, 0, 0},
		{-3, 5, 0},
		{2, 5, 2},
		{5, 5, 4},
		{99, 5, 4},
	}

	for _, tt := range tests {
		if got := clampCursor(tt.pos, tt.total); got != tt.want {
			t.Errorf("clampCursor(%d, %d) = %d, want %d", tt.pos, tt.total, got, tt.want)
		}
	}
}
