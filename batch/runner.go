// ABOUTME: Sequential batch runner driving one external process per selected file
// ABOUTME: Owns the run context, per-file state machine and the final summary

// Package batch turns a selection of images into vtracer invocations and runs them
// strictly one at a time, recording a result for every file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vtracer-batch/options"
)

// State is the lifecycle position of one file in a batch
type State int

// File states. A file only moves forward: pending, running, then succeeded or failed.
const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Done reports whether the state is terminal
func (s State) Done() bool {
	return s == StateSucceeded || s == StateFailed
}

// Result is the outcome for one input
type Result struct {
	Index    int
	Input    string
	Output   string
	State    State
	Err      error
	Duration time.Duration
}

// RunContext is the ephemeral state of one batch
type RunContext struct {
	ID        uuid.UUID
	Inputs    []string
	Options   options.Options
	Tool      Tool
	OutputDir string // Empty keeps outputs next to their inputs
}

// NewRunContext freezes a selection and option record for one batch.
// It fails with ErrNoInput when nothing was selected.
func NewRunContext(inputs []string, opts options.Options, tool Tool, outputDir string) (*RunContext, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	for i, in := range inputs {
		if in == "" {
			return nil, fmt.Errorf("%w: empty path at position %d", ErrNoInput, i+1)
		}
	}

	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if tool.Binary == "" {
		tool.Binary = DefaultBinary
	}

	if tool.OutputFlag == "" {
		tool.OutputFlag = DefaultTool().OutputFlag
	}

	return &RunContext{
		ID:        uuid.New(),
		Inputs:    append([]string(nil), inputs...),
		Options:   opts.Clone(),
		Tool:      tool,
		OutputDir: outputDir,
	}, nil
}

// Plan returns the invocations in selection order without running anything
func (rc *RunContext) Plan() []Invocation {
	plan := make([]Invocation, len(rc.Inputs))
	for i, in := range rc.Inputs {
		plan[i] = rc.Tool.Command(in, OutputPath(in, i, rc.OutputDir), rc.Options)
	}

	return plan
}

// Summary is the report for a finished batch
type Summary struct {
	RunID       uuid.UUID
	Results     []Result
	Succeeded   int
	Failed      int
	ToolMissing bool // The binary could not be located; no file was converted
	Interrupted bool // The host ended the batch before every file ran
}

// Total returns the number of files in the batch
func (s Summary) Total() int {
	return len(s.Results)
}

// Failures returns the failed results in selection order
func (s Summary) Failures() []Result {
	var failed []Result

	for _, r := range s.Results {
		if r.State == StateFailed {
			failed = append(failed, r)
		}
	}

	return failed
}

// Runner executes batches through an Executor.
// Batches sharing a Runner never overlap: at most one child process runs at a time.
type Runner struct {
	exec Executor
	log  logrus.FieldLogger

	runMu sync.Mutex // Held for the whole batch
}

// NewRunner creates a runner. A nil logger discards log output.
func NewRunner(exec Executor, log logrus.FieldLogger) *Runner {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Runner{exec: exec, log: log}
}

// Run processes every input in order and blocks until the batch is finished.
// A failed file never stops the batch. Cancelling ctx kills the running child
// and marks the remaining files as interrupted. A concurrent call waits for the
// running batch to finish first.
func (r *Runner) Run(ctx context.Context, rc *RunContext, observe Observer) Summary {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	plan := rc.Plan()
	tracker := newProgressTracker(rc.ID, plan, observe)
	log := r.log.WithFields(logrus.Fields{"run": rc.ID.String(), "files": len(plan)})

	log.WithField("tool", rc.Tool.Binary).Debug("batch started")

	if _, err := r.exec.LookPath(rc.Tool.Binary); err != nil {
		log.WithError(err).Warn("vectorizer unavailable, failing every file")
		tracker.failAll(0, err)
		tracker.summary.ToolMissing = true

		return tracker.finish()
	}

	if rc.OutputDir != "" {
		if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
			err = fmt.Errorf("failed to create output directory: %w", err)
			log.WithError(err).Warn("cannot prepare output directory")
			tracker.failAll(0, err)

			return tracker.finish()
		}
	}

	for i, inv := range plan {
		if ctx.Err() != nil {
			log.WithField("remaining", len(plan)-i).Warn("batch interrupted")
			tracker.failAll(i, fmt.Errorf("%w: not started", ErrInterrupted))
			tracker.summary.Interrupted = true

			break
		}

		fileLog := log.WithFields(logrus.Fields{"index": i, "input": inv.Input, "output": inv.Output})
		fileLog.WithField("args", inv.Args).Debug("invoking vectorizer")

		tracker.start(i)
		started := time.Now()
		err := r.exec.Execute(ctx, inv)
		tracker.complete(i, err, time.Since(started))

		switch {
		case err == nil:
			fileLog.Debug("converted")
		case errors.Is(err, ErrToolNotFound):
			tracker.summary.ToolMissing = true
			fileLog.WithError(err).Warn("vectorizer disappeared")
		case errors.Is(err, ErrInterrupted):
			tracker.summary.Interrupted = true
			fileLog.WithError(err).Warn("conversion interrupted")
		default:
			fileLog.WithError(err).Info("conversion failed")
		}
	}

	summary := tracker.finish()
	log.WithFields(logrus.Fields{"succeeded": summary.Succeeded, "failed": summary.Failed}).Debug("batch finished")

	return summary
}
