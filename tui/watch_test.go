// ABOUTME: Tests for the picker directory watcher
// ABOUTME: Verifies create events are reported for the followed directory only

package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestWatcher(t *testing.T) *dirWatcher {
	t.Helper()

	dw, err := newDirWatcher()
	if err != nil {
		t.Skipf("directory watching unavailable: %v", err)
	}

	t.Cleanup(func() { _ = dw.Close() })

	return dw
}

// waitMsg runs cmd with a deadline
func waitMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for watcher event")
		return nil
	}
}

func TestDirWatcher_ReportsNewFile(t *testing.T) {
	dw := newTestWatcher(t)
	dir := t.TempDir()

	if err := dw.Follow(dir); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	cmd := dw.Wait()

	if err := os.WriteFile(filepath.Join(dir, "a_0.svg"), []byte("<svg/>"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	msg, ok := waitMsg(t, cmd).(dirChangedMsg)
	if !ok {
		t.Fatalf("Expected dirChangedMsg, got %T", msg)
	}

	if msg.dir != filepath.Clean(dir) {
		t.Errorf("Expected change in %s, got %s", dir, msg.dir)
	}

	if msg.removed {
		t.Error("Expected a create event not to be marked as removal")
	}
}

func TestDirWatcher_ReportsRemovedFile(t *testing.T) {
	dw := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")

	if err := os.WriteFile(path, []byte("img"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := dw.Follow(dir); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	cmd := dw.Wait()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	msg, ok := waitMsg(t, cmd).(dirChangedMsg)
	if !ok {
		t.Fatalf("Expected dirChangedMsg, got %T", msg)
	}

	if !msg.removed {
		t.Error("Expected removal to be flagged")
	}
}

func TestDirWatcher_FollowSwitchesDirectory(t *testing.T) {
	dw := newTestWatcher(t)
	first := t.TempDir()
	second := t.TempDir()

	if err := dw.Follow(first); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	if err := dw.Follow(second); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	if dw.dir != filepath.Clean(second) {
		t.Errorf("Expected watched dir %s, got %s", second, dw.dir)
	}

	cmd := dw.Wait()

	// A change in the old directory must not be reported before the new one
	if err := os.WriteFile(filepath.Join(first, "ignored.png"), nil, 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := os.WriteFile(filepath.Join(second, "seen.png"), nil, 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	msg, ok := waitMsg(t, cmd).(dirChangedMsg)
	if !ok || msg.dir != filepath.Clean(second) {
		t.Errorf("Expected change in %s, got %+v", second, msg)
	}
}

func TestDirWatcher_FollowMissingDirectory(t *testing.T) {
	dw := newTestWatcher(t)

	if err := dw.Follow(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Error("Expected error following a missing directory")
	}

	if dw.dir != "" {
		t.Errorf("Expected no watched dir after failure, got %s", dw.dir)
	}
}

func TestDirWatcher_CloseEndsWait(t *testing.T) {
	dw, err := newDirWatcher()
	if err != nil {
		t.Skipf("directory watching unavailable: %v", err)
	}

	cmd := dw.Wait()

	if err := dw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if msg := waitMsg(t, cmd); msg != nil {
		t.Errorf("Expected nil after close, got %T", msg)
	}
}
