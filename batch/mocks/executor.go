// ABOUTME: Test doubles for the batch executor
// ABOUTME: Func-field mock plus a shell-script stand-in for the real vectorizer

// Package mocks provides executor fakes shared by the batch, tui, server and main tests.
package mocks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vtracer-batch/batch"
)

// MockExecutor implements batch.Executor for testing
type MockExecutor struct {
	LookPathFunc func(binary string) (string, error)
	ExecuteFunc  func(ctx context.Context, inv batch.Invocation) error

	mu    sync.Mutex
	calls []batch.Invocation
}

// LookPath calls the mock function if set, otherwise echoes the binary back
func (m *MockExecutor) LookPath(binary string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(binary)
	}

	return binary, nil
}

// Execute records the invocation and calls the mock function if set
func (m *MockExecutor) Execute(ctx context.Context, inv batch.Invocation) error {
	m.mu.Lock()
	m.calls = append(m.calls, inv)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, inv)
	}

	return nil
}

// Calls returns the invocations seen so far, in order
func (m *MockExecutor) Calls() []batch.Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]batch.Invocation(nil), m.calls...)
}

// OverlapCounter records how many Execute calls ran at the same time
type OverlapCounter struct {
	mu      sync.Mutex
	current int
	peak    int
}

// Hold returns an ExecuteFunc that occupies a slot for d
func (o *OverlapCounter) Hold(d time.Duration) func(context.Context, batch.Invocation) error {
	return func(ctx context.Context, _ batch.Invocation) error {
		o.mu.Lock()
		o.current++
		o.peak = max(o.peak, o.current)
		o.mu.Unlock()

		defer func() {
			o.mu.Lock()
			o.current--
			o.mu.Unlock()
		}()

		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return batch.ErrInterrupted
		}
	}
}

// Peak returns the highest overlap seen
func (o *OverlapCounter) Peak() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.peak
}

// fakeToolScript writes an SVG to the --output path. Inputs containing "fail"
// exit 2 with a message on stderr; inputs containing "slow" sleep until killed.
const fakeToolScript = `#!/bin/sh
echo "$*" >> '%LOG%'
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i|--input) in="$2"; shift 2 ;;
    -o|--output) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
case "$in" in
  *fail*) echo "cannot decode $in" >&2; exit 2 ;;
  *slow*) exec sleep 30 ;;
esac
printf '<svg xmlns="http://www.w3.org/2000/svg"/>\n' > "$out"
`

// FakeTool is an executable script standing in for vtracer
type FakeTool struct {
	Binary string
	Log    string
}

// WriteFakeTool installs a fake vectorizer in a fresh temp directory
func WriteFakeTool(t testing.TB) FakeTool {
	t.Helper()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "invocations.log")
	bin := filepath.Join(dir, "vtracer")

	script := strings.ReplaceAll(fakeToolScript, "%LOG%", logPath)
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake tool: %v", err)
	}

	return FakeTool{Binary: bin, Log: logPath}
}

// Invocations returns one line of space-joined arguments per call
func (f FakeTool) Invocations(t testing.TB) []string {
	t.Helper()

	data, err := os.ReadFile(f.Log)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		t.Fatalf("Failed to read invocation log: %v", err)
	}

	lines := strings.TrimRight(string(data), "\n")
	if lines == "" {
		return nil
	}

	return strings.Split(lines, "\n")
}
