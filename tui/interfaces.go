// ABOUTME: Interfaces and messages connecting the TUI to the batch runner
// ABOUTME: Allows clean separation and easy testing with a fake runner

package tui

import (
	"context"

	"vtracer-batch/batch"
)

// BatchRunner executes one batch, reporting each state transition to observe
type BatchRunner interface {
	Run(ctx context.Context, rc *batch.RunContext, observe batch.Observer) batch.Summary
}

// progressMsg forwards a runner event into the Update loop
type progressMsg struct {
	event batch.Event
	epoch int
}

// batchDoneMsg carries the final summary; it is authoritative over earlier events
type batchDoneMsg struct {
	summary batch.Summary
	epoch   int
}
