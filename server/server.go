// ABOUTME: Model Context Protocol surface exposing batch vectorization as a tool
// ABOUTME: Serves vectorize_images over stdio, running the same sequential batch runner

// Package server lets an MCP client request a batch conversion. It adds no batch
// semantics of its own: requests are turned into a run context and handed to the runner.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"vtracer-batch/batch"
	"vtracer-batch/options"
)

// ToolName is the MCP tool registered by RegisterHandlers
const ToolName = "vectorize_images"

// Runner executes one batch
type Runner interface {
	Run(ctx context.Context, rc *batch.RunContext, observe batch.Observer) batch.Summary
}

// VectorizeInput is the argument object of vectorize_images. Omitted options keep
// the server's configured values.
type VectorizeInput struct {
	Paths           []string `json:"paths" jsonschema:"image files to convert, processed in the given order"`
	ColorMode       string   `json:"colormode,omitempty" jsonschema:"color or bw"`
	Hierarchical    string   `json:"hierarchical,omitempty" jsonschema:"stacked or cutout"`
	Mode            string   `json:"mode,omitempty" jsonschema:"spline, polygon, pixel or default"`
	FilterSpeckle   *int     `json:"filter_speckle,omitempty" jsonschema:"discard patches smaller than N px (0-128)"`
	ColorPrecision  *int     `json:"color_precision,omitempty" jsonschema:"significant bits per RGB channel (1-8)"`
	GradientStep    *int     `json:"gradient_step,omitempty" jsonschema:"color difference between gradient layers (0-255)"`
	CornerThreshold *int     `json:"corner_threshold,omitempty" jsonschema:"minimum angle in degrees to be a corner (0-180)"`
	SegmentLength   *float64 `json:"segment_length,omitempty" jsonschema:"maximum segment length before subdivision (3.5-10)"`
	SpliceThreshold *int     `json:"splice_threshold,omitempty" jsonschema:"minimum angle displacement in degrees to splice a spline (0-180)"`
	Extra           string   `json:"extra,omitempty" jsonschema:"additional raw vtracer arguments, shell quoted"`
	OutputDir       string   `json:"output_dir,omitempty" jsonschema:"write SVGs here instead of next to each image"`
}

// FileResult reports one converted (or failed) file
type FileResult struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// VectorizeOutput is the structured result of vectorize_images
type VectorizeOutput struct {
	RunID       string       `json:"run_id"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	ToolMissing bool         `json:"tool_missing,omitempty"`
	Interrupted bool         `json:"interrupted,omitempty"`
	Files       []FileResult `json:"files"`
}

// Server wraps the MCP server and the batch collaborators
type Server struct {
	mcpServer *mcp.Server
	runner    Runner
	tool      batch.Tool
	base      options.Options
	log       logrus.FieldLogger
}

// New creates a server whose requests start from base options and the given tool
func New(runner Runner, tool batch.Tool, base options.Options, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "vtracer-batch",
			Version: version,
		}, nil),
		runner: runner,
		tool:   tool,
		base:   base.Clone(),
		log:    log.WithField("component", "mcp"),
	}
}

// RegisterHandlers adds the vectorize_images tool
func (s *Server) RegisterHandlers() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolName,
		Description: "Convert raster images (PNG, JPEG, BMP, ...) to SVG with vtracer. " +
			"Files are processed one at a time in the given order; each output is written as " +
			"<name>_<index>.svg next to its input (or in output_dir). A failing file does not stop the batch.",
	}, s.vectorizeHandler)
}

// RunStdio serves requests on stdin/stdout until the client disconnects or ctx ends
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("starting stdio server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve MCP over stdio: %w", err)
	}

	return nil
}

func (s *Server) vectorizeHandler(ctx context.Context, _ *mcp.CallToolRequest, in VectorizeInput) (*mcp.CallToolResult, VectorizeOutput, error) {
	opts, err := in.apply(s.base)
	if err != nil {
		return nil, VectorizeOutput{}, err
	}

	paths := make([]string, 0, len(in.Paths))

	for _, p := range in.Paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, VectorizeOutput{}, fmt.Errorf("failed to resolve %s: %w", p, err)
		}

		paths = append(paths, abs)
	}

	outputDir := s.outputDir(in.OutputDir)

	rc, err := batch.NewRunContext(paths, opts, s.tool, outputDir)
	if err != nil {
		return nil, VectorizeOutput{}, err
	}

	log := s.log.WithFields(logrus.Fields{"run": rc.ID.String(), "files": len(paths)})
	log.Info("vectorize request")

	summary := s.runner.Run(ctx, rc, nil)
	out := reportFrom(summary)

	log.WithFields(logrus.Fields{"succeeded": out.Succeeded, "failed": out.Failed}).Info("vectorize request finished")

	return &mcp.CallToolResult{
		IsError: summary.ToolMissing,
		Content: []mcp.Content{&mcp.TextContent{Text: describe(summary)}},
	}, out, nil
}

func (s *Server) outputDir(requested string) string {
	if requested == "" {
		return ""
	}

	if abs, err := filepath.Abs(requested); err == nil {
		return abs
	}

	return requested
}

// apply layers the request's overrides over base and validates the result
func (in VectorizeInput) apply(base options.Options) (options.Options, error) {
	opts := base.Clone()

	if in.ColorMode != "" {
		v, err := options.ParseColorMode(in.ColorMode)
		if err != nil {
			return base, err
		}

		opts.ColorMode = v
	}

	if in.Hierarchical != "" {
		v, err := options.ParseHierarchy(in.Hierarchical)
		if err != nil {
			return base, err
		}

		opts.Hierarchical = v
	}

	if in.Mode != "" {
		v, err := options.ParseMode(in.Mode)
		if err != nil {
			return base, err
		}

		opts.Mode = v
	}

	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	setInt(&opts.FilterSpeckle, in.FilterSpeckle)
	setInt(&opts.ColorPrecision, in.ColorPrecision)
	setInt(&opts.GradientStep, in.GradientStep)
	setInt(&opts.CornerThreshold, in.CornerThreshold)
	setInt(&opts.SpliceThreshold, in.SpliceThreshold)

	if in.SegmentLength != nil {
		opts.SegmentLength = *in.SegmentLength
	}

	if in.Extra != "" {
		extra, err := options.SplitExtra(in.Extra)
		if err != nil {
			return base, err
		}

		opts.Extra = extra
	}

	if err := opts.Validate(); err != nil {
		return base, err
	}

	return opts, nil
}

// reportFrom converts a summary into the tool's structured output
func reportFrom(summary batch.Summary) VectorizeOutput {
	out := VectorizeOutput{
		RunID:       summary.RunID.String(),
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		ToolMissing: summary.ToolMissing,
		Interrupted: summary.Interrupted,
		Files:       make([]FileResult, 0, len(summary.Results)),
	}

	for _, r := range summary.Results {
		fr := FileResult{
			Input:      r.Input,
			Output:     r.Output,
			Status:     r.State.String(),
			DurationMS: r.Duration.Milliseconds(),
		}

		if r.Err != nil {
			fr.Error = r.Err.Error()
		}

		out.Files = append(out.Files, fr)
	}

	return out
}

// describe renders a short human-readable report
func describe(summary batch.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Converted %d of %d files (%d failed).\n", summary.Succeeded, summary.Total(), summary.Failed)

	for _, r := range summary.Results {
		if r.State == batch.StateSucceeded {
			fmt.Fprintf(&b, "ok   %s -> %s\n", r.Input, r.Output)
		} else {
			fmt.Fprintf(&b, "fail %s: %v\n", r.Input, r.Err)
		}
	}

	if summary.ToolMissing {
		b.WriteString("\n" + batch.InstallHint + "\n")
	}

	return b.String()
}
