// Package executor defines the edit executor boundary: the service that
// takes a media source plus an ordered operation list and produces a new
// artifact. Two implementations are provided: a remote HTTP client and a
// local ffmpeg-backed executor.
package executor

import (
	"context"

	"github.com/petframe/mediaedit-api/internal/editop"
)

// Executor performs edits and serves timeline preview thumbnails.
type Executor interface {
	// EditMedia applies the request's operations to the source in list
	// order and returns the produced artifact. An empty operation list is a
	// pass-through re-encode.
	EditMedia(ctx context.Context, req editop.Request) (editop.Result, error)

	// Thumbnails returns up to count evenly spaced preview frame URIs for
	// the media at uri. Best-effort: fewer frames than requested is not an
	// error.
	Thumbnails(ctx context.Context, uri string, count int) ([]string, error)
}

// Provider selects the executor implementation.
type Provider string

const (
	// ProviderRemote dispatches edits to a remote executor service over HTTP.
	ProviderRemote Provider = "remote"
	// ProviderFFmpeg runs edits locally with the ffmpeg CLI.
	ProviderFFmpeg Provider = "ffmpeg"
)

// IsValid returns true if the provider is valid.
func (p Provider) IsValid() bool {
	return p == ProviderRemote || p == ProviderFFmpeg
}
