// ABOUTME: Error taxonomy for batch runs
// ABOUTME: Input, tool-missing, interruption and per-file conversion failures

package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInput means the selection was empty; nothing is processed
	ErrNoInput = errors.New("no input files selected")

	// ErrToolNotFound means the vectorizer binary could not be located
	ErrToolNotFound = errors.New("vectorizer not found")

	// ErrInterrupted marks files stopped or skipped because the host ended the batch
	ErrInterrupted = errors.New("batch interrupted")
)

// ConversionError reports a non-zero exit of the tool for one input
type ConversionError struct {
	Input    string
	ExitCode int
	Stderr   string
}

func (e *ConversionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("vectorizer exited with status %d", e.ExitCode)
	}

	return fmt.Sprintf("vectorizer exited with status %d: %s", e.ExitCode, e.Stderr)
}

// InstallHint is shown once when the tool is missing
const InstallHint = `vtracer is not installed or not found in PATH.
To install vtracer:
  1. Install Rust: https://rustup.rs/
  2. Install vtracer: cargo install vtracer
  3. Or download prebuilt binaries from: https://github.com/visioncortex/vtracer
Use --tool to point at a binary outside PATH.`
