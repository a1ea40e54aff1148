// ABOUTME: Tests for preset loading and passthrough splitting
// ABOUTME: Validates TOML layering over defaults and rejection of unknown keys

package options

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preset.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}

	return path
}

func TestLoadPreset(t *testing.T) {
	path := writePreset(t, `
colormode = "binary"
mode = "polygon"
filter_speckle = 8
extra = ["--path_precision", "2"]
`)

	opts, err := LoadPreset(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadPreset failed: %v", err)
	}

	if opts.ColorMode != ColorModeBW {
		t.Errorf("Expected colormode bw, got %s", opts.ColorMode)
	}

	if opts.Mode != ModePolygon {
		t.Errorf("Expected mode polygon, got %s", opts.Mode)
	}

	if opts.FilterSpeckle != 8 {
		t.Errorf("Expected filter_speckle 8, got %d", opts.FilterSpeckle)
	}

	// Untouched keys keep their defaults
	if opts.CornerThreshold != DefaultOptions().CornerThreshold {
		t.Errorf("Expected default corner_threshold, got %d", opts.CornerThreshold)
	}

	if !slices.Equal(opts.Extra, []string{"--path_precision", "2"}) {
		t.Errorf("Expected extra args from preset, got %v", opts.Extra)
	}
}

func TestLoadPresetUnknownKey(t *testing.T) {
	path := writePreset(t, `
colormode = "color"
speckle = 3
`)

	_, err := LoadPreset(path, DefaultOptions())
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Expected ErrInvalidOption for unknown key, got %v", err)
	}
}

func TestLoadPresetInvalidValue(t *testing.T) {
	path := writePreset(t, `color_precision = 42`)

	base := DefaultOptions()

	got, err := LoadPreset(path, base)
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Expected ErrInvalidOption, got %v", err)
	}

	if got.ColorPrecision != base.ColorPrecision {
		t.Errorf("Expected base options on error, got color_precision %d", got.ColorPrecision)
	}
}

func TestLoadPresetMissing(t *testing.T) {
	if _, err := LoadPreset("/nonexistent/preset.toml", DefaultOptions()); err == nil {
		t.Error("Expected error for missing preset")
	}
}

func TestLoadPresetMalformed(t *testing.T) {
	path := writePreset(t, `colormode = `)

	if _, err := LoadPreset(path, DefaultOptions()); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSplitExtra(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "   ", nil, false},
		{"simple", "--path_precision 3", []string{"--path_precision", "3"}, false},
		{"quoted", `--preset "photo"`, []string{"--preset", "photo"}, false},
		{"unterminated", `--preset "photo`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitExtra(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got none")
				}

				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if !slices.Equal(got, tt.want) {
				t.Errorf("SplitExtra(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
