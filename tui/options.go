// ABOUTME: TUI mode configuration and injected dependencies
// ABOUTME: Defines the starting directory, initial option values and the batch runner

package tui

import (
	"github.com/sirupsen/logrus"

	"vtracer-batch/batch"
	"vtracer-batch/options"
)

// Options contains configuration for running the TUI
type Options struct {
	StartDir  string          // Directory the file picker opens in
	Tool      batch.Tool      // How the vectorizer is invoked
	OutputDir string          // Empty writes outputs next to their inputs
	Initial   options.Options // Starting option values (defaults, preset and flags applied)
}

// Dependencies holds all external dependencies for the TUI
type Dependencies struct {
	Runner BatchRunner
	Log    logrus.FieldLogger
}
