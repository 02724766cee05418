// Package timeline implements the trim range selector: a pixel-space
// timeline with two draggable boundary handles mapped onto a time range in
// seconds. The package is pure - no UI framework types - so the mapping and
// drag behavior are independently testable.
package timeline

// Range is the sub-interval of a video's duration selected for export.
// Invariant: 0 <= StartSeconds <= EndSeconds.
type Range struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// IsZero reports whether the range is the degenerate {0, 0} value produced
// when no duration or layout is known.
func (r Range) IsZero() bool {
	return r.StartSeconds == 0 && r.EndSeconds == 0
}

// CoversFull reports whether the range spans the entire duration. A
// full-range trim is a no-op and is elided from export requests.
func (r Range) CoversFull(durationSeconds float64) bool {
	return durationSeconds > 0 && r.StartSeconds <= 0 && r.EndSeconds >= durationSeconds
}

// Mapper converts between handle pixel positions on a rendered timeline of
// Width pixels and seconds within [0, DurationSeconds].
type Mapper struct {
	// Width is the rendered pixel width of the timeline.
	Width float64
	// DurationSeconds is the source duration.
	DurationSeconds float64
}

// Seconds maps a pixel offset to seconds, clamped to [0, DurationSeconds].
// When the width or duration is zero the mapping always yields 0, guarding
// the division.
func (m Mapper) Seconds(px float64) float64 {
	if m.Width <= 0 || m.DurationSeconds <= 0 {
		return 0
	}
	return clamp(px/m.Width*m.DurationSeconds, 0, m.DurationSeconds)
}

// Pixels is the inverse mapping, used to re-derive handle positions after a
// relayout. Yields 0 when the width or duration is zero.
func (m Mapper) Pixels(sec float64) float64 {
	if m.Width <= 0 || m.DurationSeconds <= 0 {
		return 0
	}
	return clamp(sec/m.DurationSeconds*m.Width, 0, m.Width)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
