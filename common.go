// ABOUTME: Shared initialization code for all modes (CLI, TUI, MCP)
// ABOUTME: Provides run options, debug log setup, console styles and the summary printer

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"vtracer-batch/batch"
	"vtracer-batch/options"
)

const debugLogFile = "vtracer-batch-debug.log"

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	subtle = color.New(color.Faint).SprintFunc()
)

// RunOptions contains command-line options for headless mode
type RunOptions struct {
	Paths     []string
	Options   options.Options
	Tool      batch.Tool
	OutputDir string
	DryRun    bool
	Out       io.Writer
	Log       logrus.FieldLogger
	Executor  batch.Executor // nil runs the real tool
}

// SetupDebugLog returns a logger writing to filename, and a func closing it
func SetupDebugLog(filename string) (*logrus.Logger, func(), error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create debug log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
		DisableColors:   true,
	})

	if isTTY(os.Stderr) {
		fmt.Fprintf(os.Stderr, "Debug logging enabled: %s\n", filename)
	}

	closeLog := func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close debug log: %v\n", err)
		}
	}

	return log, closeLog, nil
}

// newLogger returns the debug logger when enabled, otherwise a discarding one
func newLogger(debug bool) (*logrus.Logger, func(), error) {
	if debug {
		return SetupDebugLog(debugLogFile)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return log, func() {}, nil
}

// isTTY checks if the given file is a terminal
func isTTY(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// absPaths resolves every argument against the working directory, keeping order
func absPaths(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))

	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			continue
		}

		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", a, err)
		}

		paths = append(paths, abs)
	}

	return paths, nil
}

// printResult writes the status line for one finished file
func printResult(w io.Writer, r batch.Result, total int) {
	counter := subtle(fmt.Sprintf("[%d/%d]", r.Index+1, total))

	if r.State == batch.StateSucceeded {
		fmt.Fprintf(w, "%s %s %s -> %s %s\n", counter, green("✓"), r.Input, r.Output, subtle(r.Duration.Round(time.Millisecond)))
		return
	}

	fmt.Fprintf(w, "%s %s %s: %v\n", counter, red("✗"), r.Input, r.Err)
}

// printSettings writes the effective option values once before a batch
func printSettings(w io.Writer, o options.Options) {
	fmt.Fprintf(w, "%s Color Mode: %s, Hierarchical: %s, Mode: %s, Filter Speckle: %d, Color Precision: %d, "+
		"Gradient Step: %d, Corner Threshold: %d, Segment Length: %s, Splice Threshold: %d\n",
		bold("Settings:"), o.ColorMode, o.Hierarchical, o.Mode, o.FilterSpeckle, o.ColorPrecision,
		o.GradientStep, o.CornerThreshold, strconv.FormatFloat(o.SegmentLength, 'f', -1, 64), o.SpliceThreshold)

	if len(o.Extra) > 0 {
		fmt.Fprintf(w, "%s %s\n", bold("Extra arguments:"), strings.Join(o.Extra, " "))
	}
}

// printSummary writes the closing report. The install hint appears at most once.
func printSummary(w io.Writer, s batch.Summary) {
	fmt.Fprintln(w)

	if s.ToolMissing {
		fmt.Fprintf(w, "%s no file was converted (%d failed)\n\n", red("Error:"), s.Failed)
		fmt.Fprintln(w, yellow(batch.InstallHint))

		return
	}

	failed := fmt.Sprintf("%d failed", s.Failed)
	if s.Failed > 0 {
		failed = red(failed)
	}

	fmt.Fprintf(w, "%s %s, %s\n", bold("Done:"), green(fmt.Sprintf("%d succeeded", s.Succeeded)), failed)

	if failures := s.Failures(); len(failures) > 0 {
		fmt.Fprintln(w, "Failed files:")

		for _, r := range failures {
			fmt.Fprintf(w, "  %s\n", r.Input)
		}
	}

	if s.Interrupted {
		var skipped int

		for _, r := range s.Results {
			if errors.Is(r.Err, batch.ErrInterrupted) {
				skipped++
			}
		}

		fmt.Fprintf(w, "%s batch interrupted, %d files not converted\n", yellow("Warning:"), skipped)
	}
}
