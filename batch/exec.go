// ABOUTME: External tool invocation: command construction and synchronous execution
// ABOUTME: Classifies failures into tool-missing and per-file conversion errors

package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"vtracer-batch/options"
)

// DefaultBinary is the tool looked up on PATH when no explicit binary is given
const DefaultBinary = "vtracer"

const (
	// maxStderr caps how much tool stderr is kept in a ConversionError
	maxStderr = 2048

	// waitDelay bounds how long Run waits for output pipes after the child was killed
	waitDelay = 5 * time.Second
)

// Tool describes how the external vectorizer is called
type Tool struct {
	Binary     string // Name resolved through PATH, or an explicit path
	InputFlag  string // Flag preceding the input path; empty passes the input positionally
	OutputFlag string // Flag preceding the output path
}

// DefaultTool returns the vtracer calling convention
func DefaultTool() Tool {
	return Tool{
		Binary:     DefaultBinary,
		InputFlag:  "--input",
		OutputFlag: "--output",
	}
}

// Invocation is one fully built command line
type Invocation struct {
	Binary string
	Args   []string
	Input  string
	Output string
}

// Command builds the invocation for one input/output pair
func (t Tool) Command(input, output string, opts options.Options) Invocation {
	args := make([]string, 0, 4+len(opts.Extra)+18)

	if t.InputFlag != "" {
		args = append(args, t.InputFlag)
	}

	args = append(args, input, t.OutputFlag, output)
	args = append(args, opts.Args()...)

	return Invocation{
		Binary: t.Binary,
		Args:   args,
		Input:  input,
		Output: output,
	}
}

// String renders the invocation as a copy-pasteable shell line
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, quoteArg(inv.Binary))

	for _, a := range inv.Args {
		parts = append(parts, quoteArg(a))
	}

	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Executor starts external processes
type Executor interface {
	// LookPath resolves the tool binary, returning ErrToolNotFound when absent
	LookPath(binary string) (string, error)
	// Execute runs one invocation to completion
	Execute(ctx context.Context, inv Invocation) error
}

// ExecTool runs invocations as child processes of this program
type ExecTool struct{}

// NewExecTool returns an Executor backed by os/exec
func NewExecTool() *ExecTool {
	return &ExecTool{}
}

// LookPath resolves binary through PATH
func (e *ExecTool) LookPath(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, binary, err)
	}

	return path, nil
}

// Execute runs the invocation and blocks until the child exits.
// Cancelling ctx kills the child; Run still waits for it before returning.
func (e *ExecTool) Execute(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrToolNotFound, inv.Binary)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}

		return &ConversionError{
			Input:    inv.Input,
			ExitCode: exitErr.ExitCode(),
			Stderr:   clip(msg, maxStderr),
		}
	}

	return fmt.Errorf("failed to start %s: %w", inv.Binary, err)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
