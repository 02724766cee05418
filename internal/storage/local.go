package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when artifact uploads are attempted
// without an S3 backend configured.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// SourceDir returns the uploads directory under tempDir.
func SourceDir(tempDir string) string {
	return filepath.Join(tempDir, "sources")
}

// ArtifactDir returns the rendered-exports directory under tempDir.
func ArtifactDir(tempDir string) string {
	return filepath.Join(tempDir, "artifacts")
}

// LocalStorage implements the Storage interface using local disk. Uploaded
// sources land under sources/ and rendered exports under artifacts/, so a
// session's inputs and outputs never collide. It does not support artifact
// uploads unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir     string
	sourceDir   string
	artifactDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where session files are stored.
// If tempDir is empty, os.TempDir() is used.
// The directory layout is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "mediaedit")
	}

	s := &LocalStorage{
		tempDir:     tempDir,
		sourceDir:   SourceDir(tempDir),
		artifactDir: ArtifactDir(tempDir),
	}
	for _, dir := range []string{s.tempDir, s.sourceDir, s.artifactDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return s, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp saves data to a file under sources/ and returns the file path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.sourceDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp reads a temporary file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadArtifact is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadArtifact(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
