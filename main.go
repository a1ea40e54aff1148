// ABOUTME: Entry point for vtracer-batch
// ABOUTME: Handles command-line parsing and routing to CLI, TUI or MCP modes

// Package main provides the entry point for vtracer-batch, a batch front end for the vtracer image vectorizer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vtracer-batch/batch"
	"vtracer-batch/options"
	"vtracer-batch/server"
	"vtracer-batch/tui"
)

const appName = "vtracer-batch"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// cliFlags holds the raw flag values before they are layered into options
type cliFlags struct {
	gui       bool
	mcp       bool
	dryRun    bool
	debug     bool
	preset    string
	toolBin   string
	outputDir string
	extra     string

	colorMode       string
	hierarchical    string
	mode            string
	filterSpeckle   int
	colorPrecision  int
	gradientStep    int
	cornerThreshold int
	segmentLength   float64
	spliceThreshold int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		// The tool-missing report was already printed with its install hint
		if !errors.Is(err, batch.ErrToolNotFound) {
			fmt.Fprintf(stderr, "%s %v\n", red("Error:"), err)
		}

		return 1
	}

	return 0
}

// newRootCommand builds the cobra command tree
func newRootCommand(stdout io.Writer) *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:   appName + " [flags] <image>...",
		Short: "Convert raster images to SVG with vtracer",
		Long: "Runs vtracer once per image, in the given order, writing <name>_<index>.svg next to\n" +
			"each input. A failed file is reported and the batch continues.\n\n" +
			"Use --gui to pick files and tune options interactively.",
		Example: "  " + appName + " logo.png photo.jpg --colormode bw --mode polygon\n" +
			"  " + appName + " --gui ~/Pictures",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd, f)
			if err != nil {
				return err
			}

			return execute(cmd.Context(), f, opts, args, stdout)
		},
	}

	bindFlags(cmd, f)

	cmd.MarkFlagsMutuallyExclusive("gui", "mcp")
	cmd.MarkFlagsMutuallyExclusive("gui", "dry-run")
	cmd.MarkFlagsMutuallyExclusive("mcp", "dry-run")

	return cmd
}

// bindFlags registers every flag of the root command onto f
func bindFlags(cmd *cobra.Command, f *cliFlags) {
	defaults := options.DefaultOptions()

	fl := cmd.Flags()
	fl.BoolVar(&f.gui, "gui", false, "run the interactive terminal UI")
	fl.BoolVar(&f.mcp, "mcp", false, "serve the vectorize_images tool over MCP on stdio")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print the planned invocations without running them")
	fl.BoolVar(&f.debug, "debug", false, "enable debug logging to "+debugLogFile)
	fl.StringVar(&f.preset, "preset", "", "read option values from a TOML `file`")
	fl.StringVar(&f.toolBin, "tool", batch.DefaultBinary, "vectorizer `binary` name or path")
	fl.StringVar(&f.outputDir, "output-dir", "", "write SVGs to `dir` instead of next to each image")
	fl.StringVar(&f.extra, "extra", "", "additional raw vtracer arguments, shell quoted")

	fl.StringVar(&f.colorMode, "colormode", string(defaults.ColorMode), "color mode: color or bw")
	fl.StringVar(&f.hierarchical, "hierarchical", string(defaults.Hierarchical), "clustering: stacked or cutout")
	fl.StringVar(&f.mode, "mode", string(defaults.Mode), "curve fitting: spline, polygon, pixel or default")
	fl.IntVar(&f.filterSpeckle, "filter-speckle", defaults.FilterSpeckle, "discard patches smaller than N px")
	fl.IntVar(&f.colorPrecision, "color-precision", defaults.ColorPrecision, "significant bits per RGB channel")
	fl.IntVar(&f.gradientStep, "gradient-step", defaults.GradientStep, "color difference between gradient layers")
	fl.IntVar(&f.cornerThreshold, "corner-threshold", defaults.CornerThreshold, "minimum angle in degrees to be a corner")
	fl.Float64Var(&f.segmentLength, "segment-length", defaults.SegmentLength, "maximum segment length before subdivision")
	fl.IntVar(&f.spliceThreshold, "splice-threshold", defaults.SpliceThreshold, "minimum angle displacement to splice a spline")
}

// buildOptions layers defaults, then the preset, then explicitly set flags
func buildOptions(cmd *cobra.Command, f *cliFlags) (options.Options, error) {
	opts := options.DefaultOptions()

	if f.preset != "" {
		loaded, err := options.LoadPreset(f.preset, opts)
		if err != nil {
			return opts, err
		}

		opts = loaded
	}

	changed := cmd.Flags().Changed

	if changed("colormode") {
		v, err := options.ParseColorMode(f.colorMode)
		if err != nil {
			return opts, err
		}

		opts.ColorMode = v
	}

	if changed("hierarchical") {
		v, err := options.ParseHierarchy(f.hierarchical)
		if err != nil {
			return opts, err
		}

		opts.Hierarchical = v
	}

	if changed("mode") {
		v, err := options.ParseMode(f.mode)
		if err != nil {
			return opts, err
		}

		opts.Mode = v
	}

	ints := []struct {
		flag string
		src  int
		dst  *int
	}{
		{"filter-speckle", f.filterSpeckle, &opts.FilterSpeckle},
		{"color-precision", f.colorPrecision, &opts.ColorPrecision},
		{"gradient-step", f.gradientStep, &opts.GradientStep},
		{"corner-threshold", f.cornerThreshold, &opts.CornerThreshold},
		{"splice-threshold", f.spliceThreshold, &opts.SpliceThreshold},
	}

	for _, v := range ints {
		if changed(v.flag) {
			*v.dst = v.src
		}
	}

	if changed("segment-length") {
		opts.SegmentLength = f.segmentLength
	}

	if changed("extra") {
		extra, err := options.SplitExtra(f.extra)
		if err != nil {
			return opts, err
		}

		opts.Extra = extra
	}

	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return opts, err
	}

	return opts, nil
}

// execute routes to the selected mode once options are settled
func execute(ctx context.Context, f *cliFlags, opts options.Options, args []string, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := newLogger(f.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	tool := batch.DefaultTool()
	tool.Binary = f.toolBin

	log.WithFields(logrus.Fields{"gui": f.gui, "mcp": f.mcp, "args": len(args)}).Debug("starting")

	switch {
	case f.mcp:
		srv := server.New(batch.NewRunner(batch.NewExecTool(), log), tool, opts, version, log)
		srv.RegisterHandlers()

		return srv.RunStdio(ctx)

	case f.gui:
		return runGUI(opts, tool, f.outputDir, args, stdout, log)
	}

	if len(args) == 0 {
		return fmt.Errorf("%w: pass at least one image path, or use --gui", batch.ErrNoInput)
	}

	_, err = RunCLI(ctx, RunOptions{
		Paths:     args,
		Options:   opts,
		Tool:      tool,
		OutputDir: f.outputDir,
		DryRun:    f.dryRun,
		Out:       stdout,
		Log:       log,
	})

	return err
}

// runGUI starts the terminal UI in the directory given as the only argument, if any
func runGUI(opts options.Options, tool batch.Tool, outputDir string, args []string, stdout io.Writer, log logrus.FieldLogger) error {
	if len(args) > 1 {
		return errors.New("--gui accepts at most one directory argument")
	}

	var startDir string

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("failed to open start directory: %w", err)
		}

		if !info.IsDir() {
			return fmt.Errorf("--gui expects a directory, got file %s", args[0])
		}

		startDir = args[0]
	}

	summary, err := tui.Run(tui.Options{
		StartDir:  startDir,
		Tool:      tool,
		OutputDir: outputDir,
		Initial:   opts,
	}, tui.Dependencies{
		Runner: batch.NewRunner(batch.NewExecTool(), log),
		Log:    log,
	})
	if err != nil {
		return err
	}

	// Leave the final report on the normal screen
	if summary == nil {
		return nil
	}

	for _, r := range summary.Results {
		if !errors.Is(r.Err, batch.ErrToolNotFound) {
			printResult(stdout, r, summary.Total())
		}
	}

	printSummary(stdout, *summary)

	if summary.ToolMissing {
		return fmt.Errorf("%w: %s", batch.ErrToolNotFound, tool.Binary)
	}

	return nil
}
