package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/media"
)

// Static errors for the remote executor client.
var (
	// ErrBaseURLRequired is returned when the executor base URL is not provided.
	ErrBaseURLRequired = errors.New("executor: base URL is required")
	// ErrTokenNotSet is returned when the EXECUTOR_TOKEN is not provided.
	ErrTokenNotSet = errors.New("executor: token is required")
	// ErrEditFailed is returned when the executor reports a failed edit.
	ErrEditFailed = errors.New("executor: edit failed")
	// ErrNoArtifactURI is returned when a completed edit carries no artifact URI.
	ErrNoArtifactURI = errors.New("executor: no artifact URI in response")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("executor: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("executor: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("executor: request failed")
)

// HTTPExecutor is the HTTP client for a remote edit executor service.
type HTTPExecutor struct {
	token       string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

var _ Executor = (*HTTPExecutor)(nil)

// Option is a function that configures an HTTPExecutor.
type Option func(*HTTPExecutor)

// WithToken sets the API token for authentication.
func WithToken(token string) Option {
	return func(e *HTTPExecutor) {
		e.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *HTTPExecutor) {
		e.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(e *HTTPExecutor) {
		e.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(e *HTTPExecutor) {
		e.baseBackoff = d
	}
}

// NewHTTPExecutor creates a new remote executor client. The token can be
// set via the WithToken option; if not provided it is read from the
// EXECUTOR_TOKEN environment variable. The base URL must be provided.
func NewHTTPExecutor(baseURL string, opts ...Option) (*HTTPExecutor, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	e := &HTTPExecutor{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.token == "" {
		e.token = os.Getenv("EXECUTOR_TOKEN")
	}
	if e.token == "" {
		return nil, ErrTokenNotSet
	}

	return e, nil
}

// EditMedia submits the edit request and returns the produced artifact.
// The executor applies operations in list order; an empty operation list is
// a pass-through re-encode.
func (e *HTTPExecutor) EditMedia(ctx context.Context, req editop.Request) (editop.Result, error) {
	if err := req.Validate(); err != nil {
		return editop.Result{}, fmt.Errorf("executor: invalid request: %w", err)
	}

	body, err := json.Marshal(editRequest{
		Source:     req.Source,
		Operations: req.Operations,
		Options:    req.Options,
	})
	if err != nil {
		return editop.Result{}, fmt.Errorf("executor: marshal request: %w", err)
	}

	var resp editResponse
	if err := e.doRequestWithRetry(ctx, http.MethodPost, e.baseURL+"/v1/edits", body, &resp); err != nil {
		return editop.Result{}, err
	}

	if resp.Error != "" {
		return editop.Result{}, fmt.Errorf("%w: %s", ErrEditFailed, resp.Error)
	}
	if resp.URI == "" {
		return editop.Result{}, ErrNoArtifactURI
	}

	return editop.Result{
		Kind:            media.Kind(resp.Kind),
		URI:             resp.URI,
		Width:           resp.Width,
		Height:          resp.Height,
		DurationSeconds: resp.DurationSeconds,
		ByteSize:        resp.ByteSize,
	}, nil
}

// Thumbnails requests evenly spaced preview frames for the given media.
func (e *HTTPExecutor) Thumbnails(ctx context.Context, uri string, count int) ([]string, error) {
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("count", strconv.Itoa(count))

	var resp thumbnailsResponse
	reqURL := e.baseURL + "/v1/thumbnails?" + q.Encode()
	if err := e.doRequestWithRetry(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}

	return resp.Frames, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (e *HTTPExecutor) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var lastErr error
	backoff := e.baseBackoff

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("executor: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		err := e.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("executor: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (e *HTTPExecutor) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("executor: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("executor: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("executor: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 5xx errors are retryable
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		// 429 (rate limit) is retryable
		if resp.StatusCode == 429 {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("executor: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
