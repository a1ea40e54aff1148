// ABOUTME: Directory watcher keeping the file picker in sync with the filesystem
// ABOUTME: Follows the picker's current directory and reports entry changes as messages

package tui

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// dirChangedMsg reports that an entry appeared, vanished or was renamed in dir
type dirChangedMsg struct {
	dir     string
	removed bool // An entry left the listing
}

// watchErrMsg carries a non-fatal watcher error
type watchErrMsg struct {
	err error
}

// dirWatcher watches a single directory at a time
type dirWatcher struct {
	w   *fsnotify.Watcher
	dir string // Only touched from the Update goroutine
}

func newDirWatcher() (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create directory watcher: %w", err)
	}

	return &dirWatcher{w: w}, nil
}

// Follow switches the watch to dir. Following the current directory is a no-op.
func (dw *dirWatcher) Follow(dir string) error {
	dir = filepath.Clean(dir)
	if dir == dw.dir {
		return nil
	}

	if dw.dir != "" {
		// The old directory may already be gone
		_ = dw.w.Remove(dw.dir)
	}

	dw.dir = ""

	if err := dw.w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	dw.dir = dir

	return nil
}

// Wait returns a command that blocks until the next relevant change
func (dw *dirWatcher) Wait() tea.Cmd {
	events := dw.w.Events
	errs := dw.w.Errors

	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}

				// Content writes don't change the listing
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}

				return dirChangedMsg{
					dir:     filepath.Dir(ev.Name),
					removed: ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename),
				}
			case err, ok := <-errs:
				if !ok {
					return nil
				}

				return watchErrMsg{err: err}
			}
		}
	}
}

// Close stops the watcher; pending Wait commands return nil
func (dw *dirWatcher) Close() error {
	if err := dw.w.Close(); err != nil {
		return fmt.Errorf("failed to close directory watcher: %w", err)
	}

	return nil
}
