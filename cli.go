// ABOUTME: CLI mode implementation for non-interactive batch conversion
// ABOUTME: Prints a status line per file and a summary; Ctrl+C kills the running conversion

package main

import (
	"context"
	"errors"
	"fmt"

	"vtracer-batch/batch"
)

// RunCLI converts every path in order and prints the outcome.
// Per-file failures are reported but do not produce an error; a missing tool,
// an empty selection and an interrupted batch do.
func RunCLI(ctx context.Context, opts RunOptions) (batch.Summary, error) {
	paths, err := absPaths(opts.Paths)
	if err != nil {
		return batch.Summary{}, err
	}

	rc, err := batch.NewRunContext(paths, opts.Options, opts.Tool, opts.OutputDir)
	if err != nil {
		return batch.Summary{}, err
	}

	out := opts.Out

	if opts.DryRun {
		fmt.Fprintf(out, "%s %d files\n\n", bold("Planned invocations for"), len(paths))

		for _, inv := range rc.Plan() {
			fmt.Fprintln(out, inv.String())
		}

		fmt.Fprintln(out, "\n--dry-run mode: no files converted")

		return batch.Summary{RunID: rc.ID}, nil
	}

	exe := opts.Executor
	if exe == nil {
		exe = batch.NewExecTool()
	}

	fmt.Fprintf(out, "%s %d files with %s %s\n",
		bold("Vectorizing"), len(paths), rc.Tool.Binary, subtle("(press Ctrl+C to stop)"))
	printSettings(out, rc.Options)
	fmt.Fprintln(out)

	runner := batch.NewRunner(exe, opts.Log)

	summary := runner.Run(ctx, rc, func(ev batch.Event) {
		if !ev.Result.State.Done() {
			return
		}

		// Reported once by the summary
		if errors.Is(ev.Result.Err, batch.ErrToolNotFound) {
			return
		}

		printResult(out, ev.Result, ev.Total)
	})

	printSummary(out, summary)

	switch {
	case summary.ToolMissing:
		return summary, fmt.Errorf("%w: %s", batch.ErrToolNotFound, rc.Tool.Binary)
	case summary.Interrupted:
		return summary, batch.ErrInterrupted
	}

	return summary, nil
}
