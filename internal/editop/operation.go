// Package editop defines the declarative edit operation model. An edit is
// described as an ordered list of operations applied by an executor in list
// order. The set of operations is closed: executors handle every kind with an
// exhaustive switch rather than an open-ended options bag.
package editop

import (
	"errors"
	"fmt"
)

// Kind identifies the concrete type of an Operation.
type Kind string

const (
	KindTrim      Kind = "trim"
	KindResize    Kind = "resize"
	KindCrop      Kind = "crop"
	KindRotate    Kind = "rotate"
	KindFlip      Kind = "flip"
	KindAdjust    Kind = "adjust"
	KindBlur      Kind = "blur"
	KindFilter    Kind = "filter"
	KindWatermark Kind = "watermark"
	KindSpeed     Kind = "speed"
)

// Speed rate bounds. Rates outside this window produce degenerate export
// requests and are rejected before dispatch.
const (
	MinSpeedRate = 0.25
	MaxSpeedRate = 4.0
)

// Static errors for operation validation.
var (
	// ErrInvalidTrimRange is returned when a trim range is negative or inverted.
	ErrInvalidTrimRange = errors.New("editop: trim requires 0 <= start <= end")
	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("editop: width and height must be positive")
	// ErrInvalidCropOrigin is returned when a crop origin is negative.
	ErrInvalidCropOrigin = errors.New("editop: crop origin must be non-negative")
	// ErrInvalidFlipAxis is returned for an unknown flip axis.
	ErrInvalidFlipAxis = errors.New("editop: flip axis must be horizontal or vertical")
	// ErrInvalidBlurRadius is returned when the blur radius is negative.
	ErrInvalidBlurRadius = errors.New("editop: blur radius must be non-negative")
	// ErrUnknownFilter is returned for a filter name outside the fixed set.
	ErrUnknownFilter = errors.New("editop: unknown filter name")
	// ErrInvalidIntensity is returned when a filter intensity is outside [0, 1].
	ErrInvalidIntensity = errors.New("editop: filter intensity must be within [0, 1]")
	// ErrInvalidWatermark is returned when watermark parameters are out of range.
	ErrInvalidWatermark = errors.New("editop: invalid watermark parameters")
	// ErrSpeedOutOfRange is returned when the speed rate is outside the allowed window.
	ErrSpeedOutOfRange = fmt.Errorf("editop: speed rate must be within [%.2f, %.2f]", MinSpeedRate, MaxSpeedRate)
)

// Operation is one declarative transformation step. Implementations are
// value types; the full set is enumerated by the Kind constants above.
type Operation interface {
	// Kind returns the discriminant used on the wire.
	Kind() Kind
	// Validate checks the operation's own invariants.
	Validate() error
}

// Trim keeps only the sub-range [StartSeconds, EndSeconds] of a video.
// Video-only.
type Trim struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

func (Trim) Kind() Kind { return KindTrim }

func (t Trim) Validate() error {
	if t.StartSeconds < 0 || t.EndSeconds < t.StartSeconds {
		return fmt.Errorf("%w: got [%.3f, %.3f]", ErrInvalidTrimRange, t.StartSeconds, t.EndSeconds)
	}
	return nil
}

// Resize scales the output to exactly Width x Height pixels.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (Resize) Kind() Kind { return KindResize }

func (r Resize) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	return nil
}

// Crop extracts the rectangle of size Width x Height anchored at (X, Y).
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (Crop) Kind() Kind { return KindCrop }

func (c Crop) Validate() error {
	if c.X < 0 || c.Y < 0 {
		return fmt.Errorf("%w: got (%d, %d)", ErrInvalidCropOrigin, c.X, c.Y)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, c.Width, c.Height)
	}
	return nil
}

// Rotate turns the output clockwise by Degrees.
type Rotate struct {
	Degrees int `json:"degrees"`
}

func (Rotate) Kind() Kind { return KindRotate }

func (Rotate) Validate() error { return nil }

// Axis identifies a mirror axis for Flip.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// Flip mirrors the output across the given axis.
type Flip struct {
	Axis Axis `json:"axis"`
}

func (Flip) Kind() Kind { return KindFlip }

func (f Flip) Validate() error {
	if f.Axis != AxisHorizontal && f.Axis != AxisVertical {
		return fmt.Errorf("%w: got %q", ErrInvalidFlipAxis, f.Axis)
	}
	return nil
}

// Adjust tweaks color parameters. Nil fields are left untouched by the
// executor. Values are offsets in [-1, 1] around the neutral setting.
type Adjust struct {
	Brightness  *float64 `json:"brightness,omitempty"`
	Contrast    *float64 `json:"contrast,omitempty"`
	Saturation  *float64 `json:"saturation,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Exposure    *float64 `json:"exposure,omitempty"`
}

func (Adjust) Kind() Kind { return KindAdjust }

func (Adjust) Validate() error { return nil }

// IsZero reports whether no adjustment value is set.
func (a Adjust) IsZero() bool {
	return a.Brightness == nil && a.Contrast == nil && a.Saturation == nil &&
		a.Temperature == nil && a.Exposure == nil
}

// Blur applies a gaussian blur with the given radius in pixels.
type Blur struct {
	Radius float64 `json:"radius"`
}

func (Blur) Kind() Kind { return KindBlur }

func (b Blur) Validate() error {
	if b.Radius < 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidBlurRadius, b.Radius)
	}
	return nil
}

// FilterName identifies one of the fixed preset looks.
type FilterName string

const (
	FilterNone      FilterName = "none"
	FilterGrayscale FilterName = "grayscale"
	FilterSepia     FilterName = "sepia"
	FilterVivid     FilterName = "vivid"
	FilterMono      FilterName = "mono"
	FilterWarm      FilterName = "warm"
	FilterCool      FilterName = "cool"
)

// IsValid returns true if the filter name is one of the fixed presets.
func (n FilterName) IsValid() bool {
	switch n {
	case FilterNone, FilterGrayscale, FilterSepia, FilterVivid, FilterMono, FilterWarm, FilterCool:
		return true
	}
	return false
}

// Filter applies a preset look. Intensity is optional; nil means full
// strength.
type Filter struct {
	Name      FilterName `json:"name"`
	Intensity *float64   `json:"intensity,omitempty"`
}

func (Filter) Kind() Kind { return KindFilter }

func (f Filter) Validate() error {
	if !f.Name.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, f.Name)
	}
	if f.Intensity != nil && (*f.Intensity < 0 || *f.Intensity > 1) {
		return fmt.Errorf("%w: got %.2f", ErrInvalidIntensity, *f.Intensity)
	}
	return nil
}

// Watermark composites an overlay image at (X, Y). Scale and Opacity are
// optional fractions in (0, 1].
type Watermark struct {
	URI     string   `json:"uri"`
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Scale   *float64 `json:"scale,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

func (Watermark) Kind() Kind { return KindWatermark }

func (w Watermark) Validate() error {
	if w.URI == "" {
		return fmt.Errorf("%w: uri is required", ErrInvalidWatermark)
	}
	if w.X < 0 || w.Y < 0 {
		return fmt.Errorf("%w: position (%d, %d)", ErrInvalidWatermark, w.X, w.Y)
	}
	if w.Scale != nil && (*w.Scale <= 0 || *w.Scale > 1) {
		return fmt.Errorf("%w: scale %.2f", ErrInvalidWatermark, *w.Scale)
	}
	if w.Opacity != nil && (*w.Opacity <= 0 || *w.Opacity > 1) {
		return fmt.Errorf("%w: opacity %.2f", ErrInvalidWatermark, *w.Opacity)
	}
	return nil
}

// Speed changes the playback rate. Video-only.
type Speed struct {
	Rate float64 `json:"rate"`
}

func (Speed) Kind() Kind { return KindSpeed }

func (s Speed) Validate() error {
	if s.Rate < MinSpeedRate || s.Rate > MaxSpeedRate {
		return fmt.Errorf("%w: got %.2f", ErrSpeedOutOfRange, s.Rate)
	}
	return nil
}
