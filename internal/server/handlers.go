package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/session"
)

// maxUploadBytes caps multipart source uploads (512 MiB).
const maxUploadBytes = 512 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service           *session.Service
	validator         *validator.Validate
	logger            *slog.Logger
	enableAsyncExport bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncExport enables or disables background export processing.
// When disabled, StartExport only marks the session and returns
// immediately without dispatching the executor call.
func WithAsyncExport(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncExport = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *session.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:           service,
		validator:         validator.New(),
		logger:            logger,
		enableAsyncExport: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateSession handles POST /sessions requests.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create session", "SESSION_CREATION_FAILED")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(sess, nil))
}

// ListSessions handles GET /sessions requests.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list sessions", "SESSION_LIST_FAILED")
		return
	}

	items := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, sessionResponse(sess, nil))
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: items})
}

// GetSession handles GET /sessions/{id} requests.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.findSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, nil))
}

// DeleteSession handles DELETE /sessions/{id} requests.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := h.service.Delete(r.Context(), sessionID); err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadSource handles POST /sessions/{id}/source and
// POST /sessions/{id}/replace requests. Both accept a multipart upload with
// a "file" part; replace additionally resets all accumulated selections,
// which AttachSource performs for any non-idle session.
func (h *Handlers) UploadSource(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart 'file' part is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	sess, picked, err := h.service.SelectSource(r.Context(), sessionID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(sess, &picked))
}

// SetTrim handles PUT /sessions/{id}/trim requests.
func (h *Handlers) SetTrim(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req TrimRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.service.SetTrim(r.Context(), sessionID, req.StartSeconds, req.EndSeconds)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, nil))
}

// SetFilter handles PUT /sessions/{id}/filter requests.
func (h *Handlers) SetFilter(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req FilterRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.service.SetFilter(r.Context(), sessionID, editop.FilterName(req.Name), req.Intensity)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, nil))
}

// SetAdjust handles PUT /sessions/{id}/adjust requests.
func (h *Handlers) SetAdjust(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req AdjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	adjust := editop.Adjust{
		Brightness:  req.Brightness,
		Contrast:    req.Contrast,
		Saturation:  req.Saturation,
		Temperature: req.Temperature,
		Exposure:    req.Exposure,
	}
	sess, err := h.service.SetAdjust(r.Context(), sessionID, adjust)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, nil))
}

// SetSpeed handles PUT /sessions/{id}/speed requests.
func (h *Handlers) SetSpeed(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req SpeedRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.service.SetSpeed(r.Context(), sessionID, req.Rate)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, nil))
}

// StartExport handles POST /sessions/{id}/export requests. The session is
// marked EXPORTING synchronously; the executor call runs in the background
// with a detached context so it survives the request ending.
func (h *Handlers) StartExport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	// The body is optional: an empty body exports with default options.
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	opts := editop.Options{
		ImageFormat: req.ImageFormat,
		Quality:     req.Quality,
		PreferGPU:   req.PreferGPU,
	}

	sess, err := h.service.StartExport(r.Context(), sessionID, opts)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}

	if h.enableAsyncExport {
		// Bind the background call to the epoch granted at StartExport so a
		// replace landing before dispatch cannot export the new source.
		go func(ctx context.Context, id string, epoch int64) {
			if _, runErr := h.service.RunExport(ctx, id, epoch); runErr != nil {
				h.logger.Error("background export failed",
					slog.String("session_id", id),
					slog.String("error", runErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), sessionID, sess.Epoch())
	}

	h.logger.Info("export accepted",
		slog.String("session_id", sessionID),
	)

	writeJSON(w, http.StatusAccepted, sessionResponse(sess, nil))
}

// Thumbnails handles GET /sessions/{id}/thumbnails requests.
func (h *Handlers) Thumbnails(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	frames, err := h.service.Thumbnails(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return
	}
	if frames == nil {
		frames = []string{}
	}
	writeJSON(w, http.StatusOK, ThumbnailsResponse{Frames: frames})
}

// decode parses and validates a JSON request body. Writes the error
// response and returns false on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// findSession loads a session, writing the error response on failure.
func (h *Handlers) findSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID := r.PathValue("id")
	sess, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, sessionID, err)
		return nil, false
	}
	return sess, true
}

// writeServiceError maps service errors onto HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
	case errors.Is(err, session.ErrExportInFlight):
		writeError(w, http.StatusConflict, "export already in flight", "EXPORT_IN_FLIGHT")
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "operation not allowed in current state", "INVALID_STATE")
	case errors.Is(err, session.ErrNoSource):
		writeError(w, http.StatusConflict, "no source selected", "NO_SOURCE")
	case errors.Is(err, session.ErrVideoOnly):
		writeError(w, http.StatusBadRequest, "operation applies to video sources only", "VIDEO_ONLY")
	case errors.Is(err, session.ErrTrimUnavailable):
		writeError(w, http.StatusConflict, "trimming unavailable, duration unknown", "TRIM_UNAVAILABLE")
	case errors.Is(err, session.ErrZeroLengthTrim),
		errors.Is(err, session.ErrTrimOutOfBounds),
		errors.Is(err, editop.ErrInvalidTrimRange),
		errors.Is(err, editop.ErrUnknownFilter),
		errors.Is(err, editop.ErrInvalidIntensity),
		errors.Is(err, editop.ErrSpeedOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	default:
		h.logger.Error("session operation failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}

// sessionResponse maps a session aggregate onto its HTTP representation.
func sessionResponse(sess *session.Session, picked *bool) SessionResponse {
	resp := SessionResponse{
		ID:        sess.ID,
		State:     string(sess.State),
		Filter:    string(sess.Filter),
		SpeedRate: sess.SpeedRate,
		Error:     sess.Error,
		Picked:    picked,
	}

	if sess.Source != nil {
		resp.Source = &SourceResponse{
			Kind:            string(sess.Source.Kind),
			Width:           sess.Source.Width,
			Height:          sess.Source.Height,
			DurationSeconds: sess.Source.DurationSeconds,
		}
	}
	if !sess.Trim.IsZero() {
		resp.Trim = &TrimResponse{
			StartSeconds: sess.Trim.StartSeconds,
			EndSeconds:   sess.Trim.EndSeconds,
		}
	}
	if sess.Result != nil {
		resp.Result = &ResultResponse{
			Kind:            string(sess.Result.Kind),
			URI:             sess.Result.URI,
			URL:             sess.ResultURL,
			Width:           sess.Result.Width,
			Height:          sess.Result.Height,
			DurationSeconds: sess.Result.DurationSeconds,
			ByteSize:        sess.Result.ByteSize,
		}
	}

	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
