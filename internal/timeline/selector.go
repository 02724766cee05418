package timeline

// Handle identifies one of the two trim boundary handles.
type Handle int

const (
	HandleLeft Handle = iota
	HandleRight
)

// Selector models the drag interaction over a pixel-space timeline. Handle
// positions are tracked in pixels while a drag is in flight; the time-domain
// range is committed only on drag end so intermediate updates are coalesced.
//
// Handles cannot cross: the left handle is clamped to
// [0, rightPx - minHandleWidth] and the right handle to
// [leftPx + minHandleWidth, width], where minHandleWidth is the handle's own
// rendered width.
type Selector struct {
	mapper         Mapper
	minHandleWidth float64

	leftPx  float64
	rightPx float64

	committed Range

	dragging   bool
	dragHandle Handle
}

// NewSelector creates a selector for a source of the given duration. A zero
// duration is allowed: the selector stays draggable but always reports
// {0, 0}, which callers treat as "no trim". Layout must be called with the
// rendered width before handle positions are meaningful.
func NewSelector(durationSeconds, minHandleWidth float64) *Selector {
	if minHandleWidth < 0 {
		minHandleWidth = 0
	}
	return &Selector{
		mapper:         Mapper{DurationSeconds: durationSeconds},
		minHandleWidth: minHandleWidth,
	}
}

// Layout records the rendered timeline width. On the first call the handles
// initialize to the full range (left at 0, right at width). On subsequent
// calls the handle pixels are re-derived from the last committed time range
// so the visual selection stays consistent with the logical range.
func (s *Selector) Layout(width float64) {
	first := s.mapper.Width <= 0
	s.mapper.Width = width
	if width <= 0 {
		s.leftPx, s.rightPx = 0, 0
		return
	}

	if first || s.committed.IsZero() {
		s.leftPx = 0
		s.rightPx = width
		if s.mapper.DurationSeconds > 0 {
			s.committed = Range{StartSeconds: 0, EndSeconds: s.mapper.DurationSeconds}
		}
		return
	}

	s.leftPx = s.mapper.Pixels(s.committed.StartSeconds)
	s.rightPx = s.mapper.Pixels(s.committed.EndSeconds)
	if s.rightPx-s.leftPx < s.minHandleWidth {
		s.rightPx = clamp(s.leftPx+s.minHandleWidth, 0, width)
		s.leftPx = clamp(s.rightPx-s.minHandleWidth, 0, width)
	}
}

// BeginDrag starts a drag gesture on the given handle. A drag already in
// flight is superseded.
func (s *Selector) BeginDrag(h Handle) {
	s.dragging = true
	s.dragHandle = h
}

// Drag moves the active handle by delta pixels, applying the crossing and
// bounds clamps. No range is emitted; updates are coalesced until EndDrag.
func (s *Selector) Drag(delta float64) {
	if !s.dragging || s.mapper.Width <= 0 {
		return
	}
	switch s.dragHandle {
	case HandleLeft:
		s.leftPx = clamp(s.leftPx+delta, 0, s.rightPx-s.minHandleWidth)
	case HandleRight:
		s.rightPx = clamp(s.rightPx+delta, s.leftPx+s.minHandleWidth, s.mapper.Width)
	}
}

// EndDrag completes the gesture and commits the selection, returning the
// time-domain range. Start and end are taken from the ordered handle
// positions, so start <= end always holds.
func (s *Selector) EndDrag() Range {
	s.dragging = false

	lo, hi := s.leftPx, s.rightPx
	if lo > hi {
		lo, hi = hi, lo
	}
	r := Range{
		StartSeconds: s.mapper.Seconds(lo),
		EndSeconds:   s.mapper.Seconds(hi),
	}
	s.committed = r
	return r
}

// Range returns the last committed selection.
func (s *Selector) Range() Range {
	return s.committed
}

// HandlePositions returns the current handle pixel positions (left, right).
func (s *Selector) HandlePositions() (float64, float64) {
	return s.leftPx, s.rightPx
}
