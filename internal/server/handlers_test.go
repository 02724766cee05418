package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/executor"
	"github.com/petframe/mediaedit-api/internal/media"
	"github.com/petframe/mediaedit-api/internal/session"
	"github.com/petframe/mediaedit-api/internal/storage"
)

type fakeExecutor struct {
	editFunc   func(ctx context.Context, req editop.Request) (editop.Result, error)
	thumbsFunc func(ctx context.Context, uri string, count int) ([]string, error)
}

var _ executor.Executor = (*fakeExecutor)(nil)

func (f *fakeExecutor) EditMedia(ctx context.Context, req editop.Request) (editop.Result, error) {
	if f.editFunc != nil {
		return f.editFunc(ctx, req)
	}
	return editop.Result{Kind: req.Source.Kind, URI: "/tmp/out.mp4"}, nil
}

func (f *fakeExecutor) Thumbnails(ctx context.Context, uri string, count int) ([]string, error) {
	if f.thumbsFunc != nil {
		return f.thumbsFunc(ctx, uri, count)
	}
	return []string{"/tmp/f0.jpg"}, nil
}

type stubProber struct {
	meta media.VideoMetadata
}

func (p *stubProber) ProbeVideo(_ context.Context, _ string) (media.VideoMetadata, error) {
	return p.meta, nil
}

func newTestHandler(t *testing.T, exec executor.Executor) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	prober := &stubProber{meta: media.VideoMetadata{DurationSeconds: 10, Width: 1920, Height: 1080}}
	acquirer := media.NewAcquirer(store, prober, logger)
	repo := session.NewMemoryRepository()
	svc := session.NewService(repo, acquirer, exec, store, logger)

	// Exports stay synchronous in tests: the handler marks the session and
	// returns without spawning the background run.
	h := NewHandlers(svc, logger, WithAsyncExport(false))
	return NewRouter(h, logger, DefaultConfig())
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, SessionResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp SessionResponse
	if rec.Code < 300 && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec, resp := doJSON(t, handler, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

// multipartBody builds an upload body with an explicit part content type.
func multipartBody(t *testing.T, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func uploadSource(t *testing.T, handler http.Handler, sessionID, filename, contentType string, data []byte) (*httptest.ResponseRecorder, SessionResponse) {
	t.Helper()
	body, bodyType := multipartBody(t, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/source", body)
	req.Header.Set("Content-Type", bodyType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp SessionResponse
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

// testPNG encodes a small image so the dimension probe has real data.
func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateSession(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})

	rec, resp := doJSON(t, handler, http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "IDLE", resp.State)
	assert.Equal(t, "none", resp.Filter)
}

func TestListSessions(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})

	rec, _ := doJSON(t, handler, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var empty SessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty.Sessions)

	a := createSession(t, handler)
	b := createSession(t, handler)

	rec, _ = doJSON(t, handler, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp SessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 2)

	ids := []string{resp.Sessions[0].ID, resp.Sessions[1].ID}
	assert.ElementsMatch(t, []string{a, b}, ids)
}

func TestGetSession_NotFound(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})

	rec, _ := doJSON(t, handler, http.MethodGet, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, rec))
}

func TestDeleteSession(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)

	rec, _ := doJSON(t, handler, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadSource_Video(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)

	rec, resp := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "SOURCE_SELECTED", resp.State)
	require.NotNil(t, resp.Picked)
	assert.True(t, *resp.Picked)
	require.NotNil(t, resp.Source)
	assert.Equal(t, "video", resp.Source.Kind)
	assert.Equal(t, 10.0, resp.Source.DurationSeconds)
}

func TestUploadSource_NonMediaIgnored(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)

	rec, resp := uploadSource(t, handler, id, "notes.txt", "text/plain", []byte("plain text"))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, resp.Picked)
	assert.False(t, *resp.Picked)
	assert.Equal(t, "IDLE", resp.State)
	assert.Nil(t, resp.Source)
}

func TestUploadSource_MissingFilePart(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)

	rec, _ := doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/source", `{"not":"multipart"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FILE", errorCode(t, rec))
}

func TestReplaceSource_ResetsSelections(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)

	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
		`{"start_seconds":2,"end_seconds":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Trim)

	body, bodyType := multipartBody(t, "other.mp4", "video/mp4", []byte("other payload"))
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/replace", body)
	req.Header.Set("Content-Type", bodyType)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var replaced SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &replaced))
	assert.Equal(t, "SOURCE_SELECTED", replaced.State)
	assert.Nil(t, replaced.Trim, "selections reset on replace")
}

func TestSetTrim(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)
	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
		`{"start_seconds":2,"end_seconds":7}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EDITING", resp.State)
	require.NotNil(t, resp.Trim)
	assert.Equal(t, 2.0, resp.Trim.StartSeconds)
	assert.Equal(t, 7.0, resp.Trim.EndSeconds)
}

func TestSetTrim_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)

		rec, _ := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
			`{"start_seconds":2,"end_seconds":7}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NO_SOURCE", errorCode(t, rec))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)

		rec, _ := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim", "{broken")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", errorCode(t, rec))
	})

	t.Run("inverted range fails validation", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)

		rec, _ := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
			`{"start_seconds":7,"end_seconds":2}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	})

	t.Run("zero-length range", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)
		rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
			`{"start_seconds":3,"end_seconds":3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	})

	t.Run("image source", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)
		rec, _ := uploadSource(t, handler, id, "photo.png", "image/png", testPNG(t))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/trim",
			`{"start_seconds":2,"end_seconds":7}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VIDEO_ONLY", errorCode(t, rec))
	})
}

func TestSetFilter(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)
	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/filter",
		`{"name":"sepia","intensity":0.8}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sepia", resp.Filter)
	assert.Equal(t, "EDITING", resp.State)

	rec, _ = doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/filter",
		`{"name":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestSetAdjust(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)
	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/adjust",
		`{"brightness":0.2,"contrast":-0.1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EDITING", resp.State)

	rec, _ = doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/adjust",
		`{"brightness":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestSetSpeed(t *testing.T) {
	handler := newTestHandler(t, &fakeExecutor{})
	id := createSession(t, handler)
	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/speed", `{"rate":2}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, resp.SpeedRate)

	rec, _ = doJSON(t, handler, http.MethodPut, "/sessions/"+id+"/speed", `{"rate":8}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestStartExport(t *testing.T) {
	t.Run("accepted with options", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)
		rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, resp := doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export",
			`{"quality":80}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "EXPORTING", resp.State)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)
		rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, resp := doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export", "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "EXPORTING", resp.State)
	})

	t.Run("invalid format rejected", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)

		rec, _ := doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export",
			`{"image_format":"gif"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	})

	t.Run("no source", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)

		rec, _ := doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NO_SOURCE", errorCode(t, rec))
	})

	t.Run("second export rejected while in flight", func(t *testing.T) {
		handler := newTestHandler(t, &fakeExecutor{})
		id := createSession(t, handler)
		rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export", "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		rec, _ = doJSON(t, handler, http.MethodPost, "/sessions/"+id+"/export", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "EXPORT_IN_FLIGHT", errorCode(t, rec))
	})
}

func TestThumbnails(t *testing.T) {
	exec := &fakeExecutor{
		thumbsFunc: func(_ context.Context, _ string, count int) ([]string, error) {
			frames := make([]string, count)
			for i := range frames {
				frames[i] = fmt.Sprintf("/tmp/f%d.jpg", i)
			}
			return frames, nil
		},
	}
	handler := newTestHandler(t, exec)
	id := createSession(t, handler)
	rec, _ := uploadSource(t, handler, id, "clip.mp4", "video/mp4", []byte("payload"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/thumbnails", nil))
	assert.Equal(t, http.StatusOK, rec2.Code)

	var resp ThumbnailsResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	assert.Len(t, resp.Frames, 8)
}
