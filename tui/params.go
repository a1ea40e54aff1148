// ABOUTME: Option form rows for the interactive selector
// ABOUTME: Steps numeric options within range and cycles enum options, bound to one option record

package tui

import (
	"math"
	"strconv"

	"vtracer-batch/options"
)

// ParamKind distinguishes how a form row is adjusted and displayed
type ParamKind int

// Row kinds
const (
	ParamInt ParamKind = iota
	ParamFloat
	ParamChoice
)

// Parameter is one editable row of the options panel.
// Numeric rows use Get/Set with Range; choice rows use GetChoice/SetChoice with Choices.
type Parameter struct {
	Name    string
	Kind    ParamKind
	Range   options.Range
	Choices []string

	Get       func() float64
	Set       func(float64)
	GetChoice func() string
	SetChoice func(string)
}

// Display formats the current value for the form
func (p Parameter) Display() string {
	switch p.Kind {
	case ParamInt:
		return strconv.Itoa(int(p.Get()))
	case ParamFloat:
		return strconv.FormatFloat(p.Get(), 'f', 1, 64)
	case ParamChoice:
		return p.GetChoice()
	}

	return "N/A"
}

// ParamManager manages the option rows and the selected row
type ParamManager struct {
	opts          *options.Options
	params        []Parameter
	selectedIndex int
}

// NewParamManager binds the form to opts; every edit is written straight into it
func NewParamManager(opts *options.Options) *ParamManager {
	return &ParamManager{
		opts:   opts,
		params: optionParams(opts),
	}
}

// optionParams builds the rows in display order
func optionParams(o *options.Options) []Parameter {
	intParam := func(name string, r options.Range, field *int) Parameter {
		return Parameter{
			Name:  name,
			Kind:  ParamInt,
			Range: r,
			Get:   func() float64 { return float64(*field) },
			Set:   func(v float64) { *field = int(math.Round(v)) },
		}
	}

	return []Parameter{
		{
			Name:      "Color mode",
			Kind:      ParamChoice,
			Choices:   options.ColorModes(),
			GetChoice: func() string { return string(o.ColorMode) },
			SetChoice: func(s string) { o.ColorMode = options.ColorMode(s) },
		},
		{
			Name:      "Hierarchical",
			Kind:      ParamChoice,
			Choices:   options.Hierarchies(),
			GetChoice: func() string { return string(o.Hierarchical) },
			SetChoice: func(s string) { o.Hierarchical = options.Hierarchy(s) },
		},
		{
			Name:      "Curve mode",
			Kind:      ParamChoice,
			Choices:   options.Modes(),
			GetChoice: func() string { return string(o.Mode) },
			SetChoice: func(s string) { o.Mode = options.Mode(s) },
		},
		intParam("Filter speckle", options.FilterSpeckleRange, &o.FilterSpeckle),
		intParam("Color precision", options.ColorPrecisionRange, &o.ColorPrecision),
		intParam("Gradient step", options.GradientStepRange, &o.GradientStep),
		intParam("Corner threshold", options.CornerThresholdRange, &o.CornerThreshold),
		{
			Name:  "Segment length",
			Kind:  ParamFloat,
			Range: options.SegmentLengthRange,
			Get:   func() float64 { return o.SegmentLength },
			Set:   func(v float64) { o.SegmentLength = v },
		},
		intParam("Splice threshold", options.SpliceThresholdRange, &o.SpliceThreshold),
	}
}

// Selected returns the index of the currently selected parameter
func (pm *ParamManager) Selected() int {
	return pm.selectedIndex
}

// SetSelected sets the selected parameter index
func (pm *ParamManager) SetSelected(index int) {
	if index >= 0 && index < len(pm.params) {
		pm.selectedIndex = index
	}
}

// SelectNext moves selection to the next parameter
func (pm *ParamManager) SelectNext() {
	if pm.selectedIndex < len(pm.params)-1 {
		pm.selectedIndex++
	}
}

// SelectPrevious moves selection to the previous parameter
func (pm *ParamManager) SelectPrevious() {
	if pm.selectedIndex > 0 {
		pm.selectedIndex--
	}
}

// Increase steps the selected value up, or advances a choice.
// Returns true if the value was changed.
func (pm *ParamManager) Increase() bool {
	return pm.step(1)
}

// Decrease steps the selected value down, or moves a choice back.
// Returns true if the value was changed.
func (pm *ParamManager) Decrease() bool {
	return pm.step(-1)
}

func (pm *ParamManager) step(dir int) bool {
	param := pm.GetSelected()
	if param == nil {
		return false
	}

	if param.Kind == ParamChoice {
		return cycleChoice(param, dir)
	}

	newVal := param.Get() + float64(dir)*param.Range.Step

	// Snap to bounds when within rounding noise of them
	const epsilon = 0.0001
	if math.Abs(newVal-param.Range.Min) < epsilon {
		newVal = param.Range.Min
	}

	if math.Abs(newVal-param.Range.Max) < epsilon {
		newVal = param.Range.Max
	}

	if !param.Range.Contains(newVal) {
		return false
	}

	param.Set(newVal)

	return true
}

// cycleChoice moves to the neighbouring choice, wrapping around
func cycleChoice(param *Parameter, dir int) bool {
	n := len(param.Choices)
	if n < 2 {
		return false
	}

	current := param.GetChoice()
	idx := 0

	for i, c := range param.Choices {
		if c == current {
			idx = i
			break
		}
	}

	param.SetChoice(param.Choices[(idx+dir+n)%n])

	return true
}

// ResetToDefaults overwrites the bound record. Passthrough arguments are kept.
func (pm *ParamManager) ResetToDefaults(defaults options.Options) {
	extra := pm.opts.Extra
	*pm.opts = defaults.Clone()
	pm.opts.Extra = extra
}

// Get returns the parameter at the given index
func (pm *ParamManager) Get(index int) *Parameter {
	if index >= 0 && index < len(pm.params) {
		return &pm.params[index]
	}

	return nil
}

// GetSelected returns the currently selected parameter
func (pm *ParamManager) GetSelected() *Parameter {
	return pm.Get(pm.selectedIndex)
}

// Len returns the number of parameters
func (pm *ParamManager) Len() int {
	return len(pm.params)
}

// All returns all parameters (for rendering)
func (pm *ParamManager) All() []Parameter {
	return pm.params
}
