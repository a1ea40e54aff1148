// ABOUTME: Tests for the sequential batch runner
// ABOUTME: Covers ordering, naming, failure isolation, tool-missing and interruption behavior

package batch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vtracer-batch/batch"
	"vtracer-batch/batch/mocks"
	"vtracer-batch/options"
)

func newRunContext(t *testing.T, inputs []string, opts options.Options) *batch.RunContext {
	t.Helper()

	rc, err := batch.NewRunContext(inputs, opts, batch.DefaultTool(), "")
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	return rc
}

func TestNewRunContextEmptySelection(t *testing.T) {
	_, err := batch.NewRunContext(nil, options.DefaultOptions(), batch.DefaultTool(), "")
	if !errors.Is(err, batch.ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", err)
	}

	_, err = batch.NewRunContext([]string{"a.png", ""}, options.DefaultOptions(), batch.DefaultTool(), "")
	if !errors.Is(err, batch.ErrNoInput) {
		t.Errorf("Expected ErrNoInput for blank path, got %v", err)
	}
}

func TestNewRunContextInvalidOptions(t *testing.T) {
	opts := options.DefaultOptions()
	opts.ColorMode = "sepia"

	_, err := batch.NewRunContext([]string{"a.png"}, opts, batch.DefaultTool(), "")
	if !errors.Is(err, options.ErrInvalidOption) {
		t.Errorf("Expected ErrInvalidOption, got %v", err)
	}
}

func TestNewRunContextCopiesSelection(t *testing.T) {
	inputs := []string{"a.png", "b.png"}
	rc := newRunContext(t, inputs, options.DefaultOptions())

	inputs[0] = "changed.png"
	if rc.Inputs[0] != "a.png" {
		t.Errorf("Run context shares the selection slice: %v", rc.Inputs)
	}
}

func TestRunInvokesOncePerFileInOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d files", n), func(t *testing.T) {
			inputs := make([]string, n)
			for i := range inputs {
				inputs[i] = fmt.Sprintf("/imgs/img%d.png", i)
			}

			exe := &mocks.MockExecutor{}
			summary := batch.NewRunner(exe, nil).Run(context.Background(), newRunContext(t, inputs, options.DefaultOptions()), nil)

			calls := exe.Calls()
			if len(calls) != n {
				t.Fatalf("Expected %d invocations, got %d", n, len(calls))
			}

			seen := map[string]bool{}
			for i, call := range calls {
				want := fmt.Sprintf("/imgs/img%d_%d.svg", i, i)
				if call.Output != filepath.FromSlash(want) {
					t.Errorf("Call %d output = %s, want %s", i, call.Output, want)
				}

				if call.Input != inputs[i] {
					t.Errorf("Call %d input = %s, want %s", i, call.Input, inputs[i])
				}

				if seen[call.Output] {
					t.Errorf("Duplicate output path %s", call.Output)
				}

				seen[call.Output] = true
			}

			if summary.Succeeded != n || summary.Failed != 0 {
				t.Errorf("Expected %d succeeded / 0 failed, got %d / %d", n, summary.Succeeded, summary.Failed)
			}
		})
	}
}

func TestRunExampleSelection(t *testing.T) {
	opts := options.DefaultOptions()
	opts.ColorMode = options.ColorModeColor
	opts.Mode = options.ModeSpline

	exe := &mocks.MockExecutor{}
	batch.NewRunner(exe, nil).Run(context.Background(), newRunContext(t, []string{"a.jpg", "b.png"}, opts), nil)

	calls := exe.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 invocations, got %d", len(calls))
	}

	wantOutputs := []string{"a_0.svg", "b_1.svg"}
	for i, call := range calls {
		if call.Output != wantOutputs[i] {
			t.Errorf("Call %d output = %s, want %s", i, call.Output, wantOutputs[i])
		}

		if !strings.Contains(strings.Join(call.Args, " "), "--colormode color --mode spline") {
			t.Errorf("Call %d missing options: %v", i, call.Args)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	exe := &mocks.MockExecutor{
		ExecuteFunc: func(_ context.Context, inv batch.Invocation) error {
			if strings.Contains(inv.Input, "bad") {
				return &batch.ConversionError{Input: inv.Input, ExitCode: 1}
			}

			return nil
		},
	}

	inputs := []string{"one.png", "bad.png", "three.png", "four.png"}
	summary := batch.NewRunner(exe, nil).Run(context.Background(), newRunContext(t, inputs, options.DefaultOptions()), nil)

	if len(exe.Calls()) != len(inputs) {
		t.Errorf("Expected %d invocations, got %d", len(inputs), len(exe.Calls()))
	}

	if summary.Failed != 1 || summary.Succeeded != 3 {
		t.Errorf("Expected 3 succeeded / 1 failed, got %d / %d", summary.Succeeded, summary.Failed)
	}

	failures := summary.Failures()
	if len(failures) != 1 || failures[0].Index != 1 {
		t.Fatalf("Expected failure at index 1, got %+v", failures)
	}

	var convErr *batch.ConversionError
	if !errors.As(failures[0].Err, &convErr) {
		t.Errorf("Expected ConversionError, got %v", failures[0].Err)
	}

	if summary.ToolMissing || summary.Interrupted {
		t.Errorf("Unexpected flags: ToolMissing=%v Interrupted=%v", summary.ToolMissing, summary.Interrupted)
	}
}

func TestRunToolMissing(t *testing.T) {
	exe := &mocks.MockExecutor{
		LookPathFunc: func(binary string) (string, error) {
			return "", fmt.Errorf("%w: %s", batch.ErrToolNotFound, binary)
		},
	}

	var events []batch.Event

	inputs := []string{"a.png", "b.png", "c.png"}
	summary := batch.NewRunner(exe, nil).Run(context.Background(), newRunContext(t, inputs, options.DefaultOptions()),
		func(e batch.Event) { events = append(events, e) })

	if len(exe.Calls()) != 0 {
		t.Errorf("Expected no invocations, got %d", len(exe.Calls()))
	}

	if !summary.ToolMissing {
		t.Error("Expected ToolMissing to be set")
	}

	if summary.Failed != 3 || summary.Succeeded != 0 {
		t.Errorf("Expected 3 failed, got %d failed / %d succeeded", summary.Failed, summary.Succeeded)
	}

	for _, r := range summary.Results {
		if !errors.Is(r.Err, batch.ErrToolNotFound) {
			t.Errorf("Result %d: expected ErrToolNotFound, got %v", r.Index, r.Err)
		}
	}

	if len(events) != 3 {
		t.Errorf("Expected one failed event per file, got %d", len(events))
	}
}

func TestRunEventsFollowStateMachine(t *testing.T) {
	exe := &mocks.MockExecutor{}

	var events []batch.Event

	rc := newRunContext(t, []string{"a.png", "b.png"}, options.DefaultOptions())
	batch.NewRunner(exe, nil).Run(context.Background(), rc, func(e batch.Event) { events = append(events, e) })

	want := []struct {
		index int
		state batch.State
	}{
		{0, batch.StateRunning},
		{0, batch.StateSucceeded},
		{1, batch.StateRunning},
		{1, batch.StateSucceeded},
	}

	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}

	for i, w := range want {
		if events[i].Result.Index != w.index || events[i].Result.State != w.state {
			t.Errorf("Event %d = (%d, %s), want (%d, %s)", i, events[i].Result.Index, events[i].Result.State, w.index, w.state)
		}

		if events[i].RunID != rc.ID || events[i].Total != 2 {
			t.Errorf("Event %d carries wrong run metadata: %+v", i, events[i])
		}
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exe := &mocks.MockExecutor{
		ExecuteFunc: func(_ context.Context, inv batch.Invocation) error {
			if strings.Contains(inv.Input, "b.png") {
				cancel()
				return fmt.Errorf("%w: killed", batch.ErrInterrupted)
			}

			return nil
		},
	}

	summary := batch.NewRunner(exe, nil).Run(ctx, newRunContext(t, []string{"a.png", "b.png", "c.png", "d.png"}, options.DefaultOptions()), nil)

	if len(exe.Calls()) != 2 {
		t.Errorf("Expected 2 invocations before interruption, got %d", len(exe.Calls()))
	}

	if !summary.Interrupted {
		t.Error("Expected Interrupted to be set")
	}

	if summary.Succeeded != 1 || summary.Failed != 3 {
		t.Errorf("Expected 1 succeeded / 3 failed, got %d / %d", summary.Succeeded, summary.Failed)
	}

	for _, r := range summary.Results[1:] {
		if !errors.Is(r.Err, batch.ErrInterrupted) {
			t.Errorf("Result %d: expected ErrInterrupted, got %v", r.Index, r.Err)
		}
	}
}

func TestRunWithFakeTool(t *testing.T) {
	fake := mocks.WriteFakeTool(t)
	dir := t.TempDir()

	inputs := []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "fail.png"),
		filepath.Join(dir, "c.png"),
	}

	tool := batch.DefaultTool()
	tool.Binary = fake.Binary

	rc, err := batch.NewRunContext(inputs, options.DefaultOptions(), tool, "")
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	runner := batch.NewRunner(batch.NewExecTool(), nil)
	summary := runner.Run(context.Background(), rc, nil)

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("Expected 2 succeeded / 1 failed, got %d / %d", summary.Succeeded, summary.Failed)
	}

	for _, name := range []string{"a_0.svg", "c_2.svg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to be created: %v", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "fail_1.svg")); !os.IsNotExist(err) {
		t.Errorf("Expected no output for failed file, got err=%v", err)
	}

	// Running again reuses the same names and overwrites
	stale := filepath.Join(dir, "a_0.svg")
	if err := os.WriteFile(stale, []byte("stale"), 0o600); err != nil {
		t.Fatalf("Failed to seed stale output: %v", err)
	}

	rc2, err := batch.NewRunContext(inputs, options.DefaultOptions(), tool, "")
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	runner.Run(context.Background(), rc2, nil)

	data, err := os.ReadFile(stale)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	if string(data) == "stale" {
		t.Error("Expected re-run to overwrite a_0.svg")
	}

	if calls := fake.Invocations(t); len(calls) != 6 {
		t.Errorf("Expected 6 invocations over two runs, got %d", len(calls))
	}
}

func TestRunToolMissingCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}

	tool := batch.DefaultTool()
	tool.Binary = filepath.Join(dir, "missing-vtracer")

	rc, err := batch.NewRunContext(inputs, options.DefaultOptions(), tool, "")
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	summary := batch.NewRunner(batch.NewExecTool(), nil).Run(context.Background(), rc, nil)
	if !summary.ToolMissing || summary.Failed != 2 {
		t.Errorf("Expected tool missing with 2 failures, got %+v", summary)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.svg"))
	if len(matches) != 0 {
		t.Errorf("Expected no outputs, found %v", matches)
	}
}

func TestRunOutputDir(t *testing.T) {
	fake := mocks.WriteFakeTool(t)
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "nested", "svg")

	tool := batch.DefaultTool()
	tool.Binary = fake.Binary

	rc, err := batch.NewRunContext([]string{filepath.Join(src, "a.png")}, options.DefaultOptions(), tool, out)
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	summary := batch.NewRunner(batch.NewExecTool(), nil).Run(context.Background(), rc, nil)
	if summary.Succeeded != 1 {
		t.Fatalf("Expected success, got %+v", summary.Results)
	}

	if _, err := os.Stat(filepath.Join(out, "a_0.svg")); err != nil {
		t.Errorf("Expected output in override directory: %v", err)
	}
}

func TestRunSerializesConcurrentBatches(t *testing.T) {
	overlap := &mocks.OverlapCounter{}
	exe := &mocks.MockExecutor{ExecuteFunc: overlap.Hold(50 * time.Millisecond)}
	runner := batch.NewRunner(exe, nil)

	var wg sync.WaitGroup

	summaries := make([]batch.Summary, 3)

	for i := range summaries {
		rc := newRunContext(t, []string{fmt.Sprintf("/imgs/%d-a.png", i), fmt.Sprintf("/imgs/%d-b.png", i)}, options.DefaultOptions())

		wg.Add(1)

		go func() {
			defer wg.Done()

			summaries[i] = runner.Run(context.Background(), rc, nil)
		}()
	}

	wg.Wait()

	if got := overlap.Peak(); got != 1 {
		t.Errorf("Expected one child at a time, got %d overlapping", got)
	}

	for i, s := range summaries {
		if s.Succeeded != 2 {
			t.Errorf("Batch %d: expected 2 succeeded, got %d", i, s.Succeeded)
		}
	}

	if n := len(exe.Calls()); n != 6 {
		t.Errorf("Expected 6 invocations, got %d", n)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state batch.State
		want  string
		done  bool
	}{
		{batch.StatePending, "pending", false},
		{batch.StateRunning, "running", false},
		{batch.StateSucceeded, "succeeded", true},
		{batch.StateFailed, "failed", true},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}

		if got := tt.state.Done(); got != tt.done {
			t.Errorf("%s.Done() = %v, want %v", tt.want, got, tt.done)
		}
	}
}
