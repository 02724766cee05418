// Package session provides the editing session aggregate: the state carried
// from source selection through trimming and filter selection to a single
// asynchronous export. It includes the session state machine and repository
// interfaces for persistence.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/media"
	"github.com/petframe/mediaedit-api/internal/session/id"
	"github.com/petframe/mediaedit-api/internal/timeline"
)

// State represents the current phase of an editing session.
type State string

const (
	// StateIdle indicates no source has been selected yet.
	StateIdle State = "IDLE"
	// StateSourceSelected indicates a source was picked but not yet edited.
	StateSourceSelected State = "SOURCE_SELECTED"
	// StateEditing indicates the user is adjusting trim/filter selections.
	StateEditing State = "EDITING"
	// StateExporting indicates a single export request is in flight.
	StateExporting State = "EXPORTING"
	// StateDone indicates the export succeeded. Terminal for this session;
	// replacing the source starts a fresh cycle.
	StateDone State = "DONE"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed. Every state
// may fall back to IDLE: replacing the source is a hard reset.
var validTransitions = map[State][]State{
	StateIdle:           {StateSourceSelected},
	StateSourceSelected: {StateEditing, StateIdle},
	StateEditing:        {StateExporting, StateIdle},
	StateExporting:      {StateDone, StateEditing, StateIdle},
	StateDone:           {StateIdle},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Session is the editing session aggregate. It owns the selected source and
// its lease, the committed trim range, and the filter/adjust/speed
// selections that become the export's operation list.
type Session struct {
	mu sync.RWMutex

	// ID is the unique identifier for this session.
	ID string
	// State is the current session state.
	State State
	// Source is the selected media, nil while IDLE.
	Source *media.Reference
	// Trim is the committed trim range. Zero means no sub-range selected.
	Trim timeline.Range
	// Filter is the selected preset look, FilterNone by default.
	Filter editop.FilterName
	// FilterIntensity is the optional preset strength in [0, 1].
	FilterIntensity *float64
	// Adjust holds the configured color adjustments.
	Adjust editop.Adjust
	// SpeedRate is the requested playback rate, 0 when unchanged.
	SpeedRate float64
	// ExportOptions holds the output options of the current export.
	ExportOptions editop.Options
	// Result is the artifact of a successful export.
	Result *editop.Result
	// ResultURL is the uploaded artifact URL when S3 delivery is configured.
	ResultURL string
	// Error contains the last export or probe error message.
	Error string
	// CreatedAt is when the session was created.
	CreatedAt time.Time
	// UpdatedAt is when the session was last updated.
	UpdatedAt time.Time

	// epoch counts source generations. Async results carrying a stale epoch
	// are discarded: the session has moved on.
	epoch int64

	// lease owns the temp file behind Source. Shared across clones so the
	// release-exactly-once guarantee holds.
	lease *media.Lease
}

// New creates a new Session with a generated ID in IDLE state.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        id.Generate(),
		State:     StateIdle,
		Filter:    editop.FilterNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Session with the specified ID in IDLE state.
// Useful for testing or when the ID is externally generated.
func NewWithID(sessionID string) *Session {
	now := time.Now()
	return &Session{
		ID:        sessionID,
		State:     StateIdle,
		Filter:    editop.FilterNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the session state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (s *Session) TransitionTo(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(state)
}

func (s *Session) transitionLocked(state State) error {
	if !canTransition(s.State, state) {
		return ErrInvalidTransition
	}
	s.State = state
	s.UpdatedAt = time.Now()
	return nil
}

// AttachSource installs a freshly acquired source, releasing any previous
// lease exactly once and discarding all accumulated selections. The session
// moves to SOURCE_SELECTED and the epoch advances so results of in-flight
// work for the old source are discarded on arrival.
func (s *Session) AttachSource(src *media.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateIdle {
		if err := s.transitionLocked(StateIdle); err != nil {
			return err
		}
	}

	if s.lease != nil {
		_ = s.lease.Release()
	}

	s.Source = src.Reference
	s.lease = src.Lease
	s.Trim = timeline.Range{}
	s.Filter = editop.FilterNone
	s.FilterIntensity = nil
	s.Adjust = editop.Adjust{}
	s.SpeedRate = 0
	s.Result = nil
	s.ResultURL = ""
	s.Error = ""
	s.epoch++

	return s.transitionLocked(StateSourceSelected)
}

// BeginEditing moves from SOURCE_SELECTED to EDITING. Called on the first
// edit interaction; a no-op when already editing.
func (s *Session) BeginEditing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateEditing {
		return nil
	}
	return s.transitionLocked(StateEditing)
}

// StartExport gates the export call: it fails with ErrInvalidTransition
// unless the session is EDITING, so a second export while one is in flight
// is rejected. Returns the epoch the export is bound to.
func (s *Session) StartExport(opts editop.Options) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateExporting); err != nil {
		return 0, err
	}
	s.ExportOptions = opts
	s.Error = ""
	return s.epoch, nil
}

// CompleteExport records a successful export result. Results bound to a
// stale epoch are discarded: the session was reset while the call was in
// flight and the transition is skipped entirely. The returned bool reports
// whether the result was applied.
func (s *Session) CompleteExport(epoch int64, result editop.Result, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false, nil
	}
	if err := s.transitionLocked(StateDone); err != nil {
		return false, err
	}
	s.Result = &result
	s.ResultURL = url
	return true, nil
}

// FailExport returns the session to EDITING with the error recorded, so the
// user can retry with selections intact. Stale-epoch failures are discarded;
// the returned bool reports whether the failure was applied.
func (s *Session) FailExport(epoch int64, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false, nil
	}
	if err := s.transitionLocked(StateEditing); err != nil {
		return false, err
	}
	s.Error = errMsg
	return true, nil
}

// Epoch returns the current source generation (thread-safe).
func (s *Session) Epoch() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// GetState returns the current session state (thread-safe).
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// SetTrim records a committed trim range.
func (s *Session) SetTrim(r timeline.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trim = r
	s.UpdatedAt = time.Now()
}

// SetFilter records the selected preset look.
func (s *Session) SetFilter(name editop.FilterName, intensity *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Filter = name
	s.FilterIntensity = intensity
	s.UpdatedAt = time.Now()
}

// SetAdjust records the configured color adjustments.
func (s *Session) SetAdjust(a editop.Adjust) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Adjust = a
	s.UpdatedAt = time.Now()
}

// SetSpeed records the requested playback rate.
func (s *Session) SetSpeed(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeedRate = rate
	s.UpdatedAt = time.Now()
}

// Release frees the lease over the source's backing file. Idempotent.
func (s *Session) Release() error {
	s.mu.RLock()
	lease := s.lease
	s.mu.RUnlock()
	return lease.Release()
}

// BuildOperations assembles the ordered operation list for an export from
// the current selections:
//
//   - trim comes first, and only when a real sub-range was committed -
//     the degenerate {0, 0} range and a range covering the full duration
//     are both elided (exporting the full source needs no trim);
//   - filter and adjustments follow in that order;
//   - a speed change follows for video when a rate was set;
//   - a canonical resize is appended for video to normalize output
//     dimensions, and omitted for images.
func (s *Session) BuildOperations(canonicalWidth, canonicalHeight int) editop.Operations {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ops editop.Operations

	isVideo := s.Source != nil && s.Source.Kind == media.KindVideo

	if isVideo && s.Trim.EndSeconds > s.Trim.StartSeconds && !s.Trim.CoversFull(s.Source.DurationSeconds) {
		ops = append(ops, editop.Trim{
			StartSeconds: s.Trim.StartSeconds,
			EndSeconds:   s.Trim.EndSeconds,
		})
	}

	if s.Filter != editop.FilterNone && s.Filter != "" {
		ops = append(ops, editop.Filter{Name: s.Filter, Intensity: s.FilterIntensity})
	}

	if !s.Adjust.IsZero() {
		ops = append(ops, s.Adjust)
	}

	if isVideo && s.SpeedRate > 0 && s.SpeedRate != 1 {
		ops = append(ops, editop.Speed{Rate: s.SpeedRate})
	}

	if isVideo && canonicalWidth > 0 && canonicalHeight > 0 {
		ops = append(ops, editop.Resize{Width: canonicalWidth, Height: canonicalHeight})
	}

	return ops
}

// Clone creates a deep copy of the session for safe reads. The lease
// pointer is shared so release-once semantics hold across copies.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Session{
		ID:            s.ID,
		State:         s.State,
		Trim:          s.Trim,
		Filter:        s.Filter,
		Adjust:        s.Adjust,
		SpeedRate:     s.SpeedRate,
		ExportOptions: s.ExportOptions,
		ResultURL:     s.ResultURL,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		epoch:         s.epoch,
		lease:         s.lease,
	}
	if s.Source != nil {
		src := *s.Source
		clone.Source = &src
	}
	if s.FilterIntensity != nil {
		v := *s.FilterIntensity
		clone.FilterIntensity = &v
	}
	if s.Result != nil {
		r := *s.Result
		clone.Result = &r
	}
	return clone
}
