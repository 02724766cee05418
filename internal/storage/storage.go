// Package storage provides file storage for acquired media sources and
// exported artifacts. It defines the Storage port and implementations for
// local disk and S3-backed delivery.
package storage

import (
	"context"
	"io"
)

// Storage handles temporary files during an editing session and optional
// S3 uploads for finished export artifacts.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadArtifact uploads a finished export artifact and returns its
	// public URL. Returns ErrS3NotConfigured when no S3 backend is set up.
	UploadArtifact(ctx context.Context, key string, data io.Reader) (url string, err error)
}
