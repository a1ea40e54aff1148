// ABOUTME: Typed option record forwarded to the external vectorizer
// ABOUTME: Defines enums, defaults, range validation and the flag mapping for one invocation

// Package options holds the tracing parameters passed to vtracer on every invocation.
// The set is fixed and validated before any process is started.
package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidOption is wrapped by every validation and parse failure
var ErrInvalidOption = errors.New("invalid option")

// ColorMode selects true color or binary tracing
type ColorMode string

// Color modes understood by the tool
const (
	ColorModeColor ColorMode = "color"
	ColorModeBW    ColorMode = "bw"
)

// Hierarchy selects how color layers are clustered
type Hierarchy string

// Hierarchy values understood by the tool
const (
	HierarchyStacked Hierarchy = "stacked"
	HierarchyCutout  Hierarchy = "cutout"
)

// Mode selects the curve fitting mode
type Mode string

// Curve fitting modes. ModeDefault leaves the choice to the tool.
const (
	ModeDefault Mode = "default"
	ModeSpline  Mode = "spline"
	ModePolygon Mode = "polygon"
	ModePixel   Mode = "pixel"
)

// Range bounds a numeric option. Step is the increment used by the interactive form.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Contains reports whether v lies inside the range (inclusive)
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Numeric option bounds, matching what the tool accepts
var (
	FilterSpeckleRange   = Range{Min: 0, Max: 128, Step: 1}
	ColorPrecisionRange  = Range{Min: 1, Max: 8, Step: 1}
	GradientStepRange    = Range{Min: 0, Max: 255, Step: 1}
	CornerThresholdRange = Range{Min: 0, Max: 180, Step: 1}
	SegmentLengthRange   = Range{Min: 3.5, Max: 10, Step: 0.5}
	SpliceThresholdRange = Range{Min: 0, Max: 180, Step: 1}
)

// Options is the flat option record shared read-only across one batch
type Options struct {
	ColorMode       ColorMode `toml:"colormode" json:"colormode"`
	Hierarchical    Hierarchy `toml:"hierarchical" json:"hierarchical"`
	Mode            Mode      `toml:"mode" json:"mode"`
	FilterSpeckle   int       `toml:"filter_speckle" json:"filter_speckle"`
	ColorPrecision  int       `toml:"color_precision" json:"color_precision"`
	GradientStep    int       `toml:"gradient_step" json:"gradient_step"`
	CornerThreshold int       `toml:"corner_threshold" json:"corner_threshold"`
	SegmentLength   float64   `toml:"segment_length" json:"segment_length"`
	SpliceThreshold int       `toml:"splice_threshold" json:"splice_threshold"`

	// Extra is appended verbatim after the typed flags
	Extra []string `toml:"extra" json:"extra,omitempty"`
}

// DefaultOptions returns the tuned defaults used when nothing else is specified
func DefaultOptions() Options {
	return Options{
		ColorMode:       ColorModeColor,
		Hierarchical:    HierarchyStacked,
		Mode:            ModeSpline,
		FilterSpeckle:   4,
		ColorPrecision:  6,
		GradientStep:    55,
		CornerThreshold: 105,
		SegmentLength:   7.5,
		SpliceThreshold: 0,
	}
}

// ColorModes lists the accepted color modes in display order
func ColorModes() []string {
	return []string{string(ColorModeColor), string(ColorModeBW)}
}

// Hierarchies lists the accepted hierarchy values in display order
func Hierarchies() []string {
	return []string{string(HierarchyStacked), string(HierarchyCutout)}
}

// Modes lists the accepted curve fitting modes in display order
func Modes() []string {
	return []string{string(ModeSpline), string(ModePolygon), string(ModePixel), string(ModeDefault)}
}

// ParseColorMode converts user input into a ColorMode. "binary" is accepted for bw.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color", "colour":
		return ColorModeColor, nil
	case "bw", "binary":
		return ColorModeBW, nil
	}

	return "", fmt.Errorf("%w: colormode %q (want one of %s)", ErrInvalidOption, s, strings.Join(ColorModes(), ", "))
}

// ParseHierarchy converts user input into a Hierarchy
func ParseHierarchy(s string) (Hierarchy, error) {
	switch h := Hierarchy(strings.ToLower(strings.TrimSpace(s))); h {
	case HierarchyStacked, HierarchyCutout:
		return h, nil
	}

	return "", fmt.Errorf("%w: hierarchical %q (want one of %s)", ErrInvalidOption, s, strings.Join(Hierarchies(), ", "))
}

// ParseMode converts user input into a Mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDefault, ModeSpline, ModePolygon, ModePixel:
		return m, nil
	}

	return "", fmt.Errorf("%w: mode %q (want one of %s)", ErrInvalidOption, s, strings.Join(Modes(), ", "))
}

// Validate checks enums and numeric bounds. Extra arguments are not inspected.
func (o Options) Validate() error {
	if _, err := ParseColorMode(string(o.ColorMode)); err != nil {
		return err
	}

	if _, err := ParseHierarchy(string(o.Hierarchical)); err != nil {
		return err
	}

	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}

	ints := []struct {
		name  string
		value int
		r     Range
	}{
		{"filter_speckle", o.FilterSpeckle, FilterSpeckleRange},
		{"color_precision", o.ColorPrecision, ColorPrecisionRange},
		{"gradient_step", o.GradientStep, GradientStepRange},
		{"corner_threshold", o.CornerThreshold, CornerThresholdRange},
		{"splice_threshold", o.SpliceThreshold, SpliceThresholdRange},
	}

	for _, f := range ints {
		if !f.r.Contains(float64(f.value)) {
			return fmt.Errorf("%w: %s %d out of range [%g, %g]", ErrInvalidOption, f.name, f.value, f.r.Min, f.r.Max)
		}
	}

	if !SegmentLengthRange.Contains(o.SegmentLength) {
		return fmt.Errorf("%w: segment_length %g out of range [%g, %g]",
			ErrInvalidOption, o.SegmentLength, SegmentLengthRange.Min, SegmentLengthRange.Max)
	}

	return nil
}

// Normalize maps accepted aliases onto their canonical values
func (o Options) Normalize() Options {
	if cm, err := ParseColorMode(string(o.ColorMode)); err == nil {
		o.ColorMode = cm
	}

	if h, err := ParseHierarchy(string(o.Hierarchical)); err == nil {
		o.Hierarchical = h
	}

	if m, err := ParseMode(string(o.Mode)); err == nil {
		o.Mode = m
	}

	return o
}

// Args maps the record onto the tool's flags.
// The order is stable: colormode and mode come first, extras come last.
func (o Options) Args() []string {
	args := []string{"--colormode", string(o.ColorMode)}

	if o.Mode != ModeDefault && o.Mode != "" {
		args = append(args, "--mode", string(o.Mode))
	}

	args = append(args,
		"--hierarchical", string(o.Hierarchical),
		"--filter_speckle", strconv.Itoa(o.FilterSpeckle),
		"--color_precision", strconv.Itoa(o.ColorPrecision),
		"--gradient_step", strconv.Itoa(o.GradientStep),
		"--corner_threshold", strconv.Itoa(o.CornerThreshold),
		"--segment_length", strconv.FormatFloat(o.SegmentLength, 'f', -1, 64),
		"--splice_threshold", strconv.Itoa(o.SpliceThreshold),
	)

	return append(args, o.Extra...)
}

// Clone returns a copy that shares no slices with o
func (o Options) Clone() Options {
	o.Extra = append([]string(nil), o.Extra...)
	return o
}
