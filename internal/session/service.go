package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/executor"
	"github.com/petframe/mediaedit-api/internal/media"
	"github.com/petframe/mediaedit-api/internal/storage"
	"github.com/petframe/mediaedit-api/internal/timeline"
)

// Static errors for service operations.
var (
	// ErrNoSource is returned when an operation requires a selected source.
	ErrNoSource = errors.New("session: no source selected")
	// ErrVideoOnly is returned when a video-only operation targets an image.
	ErrVideoOnly = errors.New("session: operation applies to video sources only")
	// ErrTrimUnavailable is returned when trimming is requested before the
	// duration probe has resolved.
	ErrTrimUnavailable = errors.New("session: trimming unavailable, duration unknown")
	// ErrZeroLengthTrim is returned for an explicit zero-length selection.
	// A zero-length range is invalid input, not an implicit "no trim".
	ErrZeroLengthTrim = errors.New("session: zero-length trim range")
	// ErrTrimOutOfBounds is returned when the range exceeds the duration.
	ErrTrimOutOfBounds = errors.New("session: trim range exceeds source duration")
	// ErrExportInFlight is returned when an export is already running for
	// the session. The new request is a no-op.
	ErrExportInFlight = errors.New("session: export already in flight")
)

// Service orchestrates editing sessions: source acquisition, selection
// updates, thumbnail previews, and the single asynchronous export call.
type Service struct {
	repo     Repository
	acquirer *media.Acquirer
	exec     executor.Executor
	store    storage.Storage
	logger   *slog.Logger

	thumbnailCount int
	exportWidth    int
	exportHeight   int
}

// ServiceOption is a function that configures a Service instance.
type ServiceOption func(*Service)

// WithThumbnailCount sets how many preview frames a thumbnail strip holds.
func WithThumbnailCount(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.thumbnailCount = n
		}
	}
}

// WithCanonicalExportSize sets the resize appended to video exports to
// normalize output dimensions. Zero disables the canonical resize.
func WithCanonicalExportSize(width, height int) ServiceOption {
	return func(s *Service) {
		s.exportWidth = width
		s.exportHeight = height
	}
}

// NewService creates a new session Service.
func NewService(repo Repository, acquirer *media.Acquirer, exec executor.Executor, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:           repo,
		acquirer:       acquirer,
		exec:           exec,
		store:          store,
		logger:         logger,
		thumbnailCount: 8,
		exportWidth:    720,
		exportHeight:   1280,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new, empty editing session.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	sess := New()

	s.logger.Info("creating new session", slog.String("session_id", sess.ID))

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a session by ID.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.repo.FindByID(ctx, sessionID)
}

// List returns all live sessions.
func (s *Service) List(ctx context.Context) ([]*Session, error) {
	return s.repo.List(ctx)
}

// Delete tears down a session, releasing the source lease.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.Release(); err != nil {
		s.logger.Warn("release source lease",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return s.repo.Delete(ctx, sessionID)
}

// SelectSource acquires a new source for the session from an upload.
// A non-media upload behaves like a cancelled picker: picked is false and
// the session is left untouched. Replacing an existing source is a hard
// reset of all accumulated selections.
func (s *Service) SelectSource(ctx context.Context, sessionID, name, contentType string, data io.Reader) (sess *Session, picked bool, err error) {
	sess, err = s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	src, err := s.acquirer.Acquire(ctx, name, contentType, data)
	if err != nil {
		return nil, false, fmt.Errorf("acquire source: %w", err)
	}
	if src == nil {
		// Cancellation: no partial reference is published.
		return sess, false, nil
	}

	// Attach inside Update: the old lease is released exactly once under
	// the repository lock, even when two replaces race.
	sess, err = s.repo.Update(ctx, sessionID, func(cur *Session) error {
		return cur.AttachSource(src)
	})
	if err != nil {
		_ = src.Lease.Release()
		return nil, false, err
	}

	s.logger.Info("source selected",
		slog.String("session_id", sessionID),
		slog.String("kind", string(src.Reference.Kind)),
		slog.Float64("duration_seconds", src.Reference.DurationSeconds),
	)

	return sess, true, nil
}

// SetTrim commits a trim range for a video source. The range must be a real
// sub-interval: zero-length selections are rejected rather than silently
// treated as "no trim".
func (s *Service) SetTrim(ctx context.Context, sessionID string, startSeconds, endSeconds float64) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Source == nil {
		return nil, ErrNoSource
	}
	if sess.Source.Kind != media.KindVideo {
		return nil, ErrVideoOnly
	}
	if !sess.Source.DurationKnown() {
		return nil, ErrTrimUnavailable
	}
	if startSeconds < 0 || endSeconds < startSeconds {
		return nil, fmt.Errorf("%w: got [%.3f, %.3f]", editop.ErrInvalidTrimRange, startSeconds, endSeconds)
	}
	if endSeconds == startSeconds {
		return nil, ErrZeroLengthTrim
	}
	if endSeconds > sess.Source.DurationSeconds {
		return nil, fmt.Errorf("%w: end %.3f > duration %.3f", ErrTrimOutOfBounds, endSeconds, sess.Source.DurationSeconds)
	}

	if err := sess.BeginEditing(); err != nil {
		return nil, err
	}
	sess.SetTrim(timeline.Range{StartSeconds: startSeconds, EndSeconds: endSeconds})

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetFilter selects a preset look for the session.
func (s *Service) SetFilter(ctx context.Context, sessionID string, name editop.FilterName, intensity *float64) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrNoSource
	}

	if err := (editop.Filter{Name: name, Intensity: intensity}).Validate(); err != nil {
		return nil, err
	}

	if err := sess.BeginEditing(); err != nil {
		return nil, err
	}
	sess.SetFilter(name, intensity)

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetAdjust records color adjustments for the session.
func (s *Service) SetAdjust(ctx context.Context, sessionID string, adjust editop.Adjust) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrNoSource
	}

	if err := sess.BeginEditing(); err != nil {
		return nil, err
	}
	sess.SetAdjust(adjust)

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetSpeed records the playback rate for a video source.
func (s *Service) SetSpeed(ctx context.Context, sessionID string, rate float64) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrNoSource
	}
	if sess.Source.Kind != media.KindVideo {
		return nil, ErrVideoOnly
	}
	if err := (editop.Speed{Rate: rate}).Validate(); err != nil {
		return nil, err
	}

	if err := sess.BeginEditing(); err != nil {
		return nil, err
	}
	sess.SetSpeed(rate)

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// StartExport marks the session EXPORTING and records output options. At
// most one export per session may be in flight: a second call returns
// ErrExportInFlight. The check and the transition run inside a single
// repository Update so concurrent calls cannot both pass the gate. The
// actual executor call happens in RunExport, bound to the returned
// session's epoch.
func (s *Service) StartExport(ctx context.Context, sessionID string, opts editop.Options) (*Session, error) {
	sess, err := s.repo.Update(ctx, sessionID, func(cur *Session) error {
		if cur.Source == nil {
			return ErrNoSource
		}
		if cur.GetState() == StateExporting {
			return ErrExportInFlight
		}
		if cur.GetState() == StateSourceSelected {
			if err := cur.BeginEditing(); err != nil {
				return err
			}
		}
		_, err := cur.StartExport(opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("export started",
		slog.String("session_id", sessionID),
		slog.String("kind", string(sess.Source.Kind)),
	)
	return sess, nil
}

// RunExport builds the edit request from the session's selections and
// drives the single executor call. The call is bound to the epoch captured
// at StartExport: if the source was replaced or the session reset before
// the call dispatches, nothing runs. On failure the session returns to
// EDITING with selections preserved; on success it reaches DONE carrying
// the artifact. Results for a session that was reset mid-flight are
// discarded.
func (s *Service) RunExport(ctx context.Context, sessionID string, epoch int64) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrNoSource
	}
	if sess.Epoch() != epoch || sess.GetState() != StateExporting {
		s.logger.Info("skipping superseded export",
			slog.String("session_id", sessionID),
			slog.Int64("epoch", epoch),
		)
		return sess, nil
	}

	req := editop.Request{
		Source:     *sess.Source,
		Operations: sess.BuildOperations(s.exportWidth, s.exportHeight),
		Options:    sess.ExportOptions,
	}

	result, err := s.exec.EditMedia(ctx, req)
	if err != nil {
		s.logger.Error("export failed",
			slog.String("session_id", sessionID),
			slog.String("source_uri", sess.Source.URI),
			slog.String("error", err.Error()),
		)
		if ferr := s.applyExportFailure(ctx, sessionID, epoch, err.Error()); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	url := s.uploadArtifact(ctx, result)

	// Commit inside Update so the epoch check and the store are one atomic
	// step: a replace landing while the executor call was in flight keeps
	// its session, and the stale result is discarded rather than applied.
	var applied bool
	cur, err := s.repo.Update(ctx, sessionID, func(sess *Session) error {
		var cerr error
		applied, cerr = sess.CompleteExport(epoch, result, url)
		return cerr
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Torn down mid-flight: the result has no session to land on.
			return nil, nil
		}
		return nil, err
	}
	if !applied {
		s.logger.Info("discarding stale export result",
			slog.String("session_id", sessionID),
		)
		return cur, nil
	}

	s.logger.Info("export completed",
		slog.String("session_id", sessionID),
		slog.String("artifact_uri", result.URI),
		slog.Int64("byte_size", result.ByteSize),
	)
	return cur, nil
}

// applyExportFailure moves the session back to EDITING unless it was reset
// while the export was in flight. The epoch check and the store run inside
// Update so a concurrent replace is never clobbered by a stale failure.
func (s *Service) applyExportFailure(ctx context.Context, sessionID string, epoch int64, msg string) error {
	_, err := s.repo.Update(ctx, sessionID, func(sess *Session) error {
		_, ferr := sess.FailExport(epoch, msg)
		return ferr
	})
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// uploadArtifact pushes a locally rendered artifact to S3 delivery when
// configured. Missing S3 configuration and remote artifacts are not errors;
// the artifact URI stands on its own.
func (s *Service) uploadArtifact(ctx context.Context, result editop.Result) string {
	f, err := s.store.LoadTemp(ctx, result.URI)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	key := storage.ArtifactKey(filepath.Ext(result.URI))
	url, err := s.store.UploadArtifact(ctx, key, f)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			s.logger.Warn("artifact upload failed", slog.String("error", err.Error()))
		}
		return ""
	}
	return url
}

// Thumbnails returns the preview strip for the session's video source.
// Best-effort: any failure degrades to an empty strip without blocking the
// editing flow.
func (s *Service) Thumbnails(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrNoSource
	}
	if sess.Source.Kind != media.KindVideo {
		return nil, ErrVideoOnly
	}

	frames, err := s.exec.Thumbnails(ctx, sess.Source.URI, s.thumbnailCount)
	if err != nil {
		s.logger.Warn("thumbnail fetch failed",
			slog.String("session_id", sessionID),
			slog.Int("frames_extracted", len(frames)),
			slog.String("error", err.Error()),
		)
		// A short strip still previews the timeline.
		if len(frames) > 0 {
			return frames, nil
		}
		return []string{}, nil
	}
	return frames, nil
}
