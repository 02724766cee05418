// Package bootstrap provides dependency initialization for the media edit API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/petframe/mediaedit-api/internal/config"
	"github.com/petframe/mediaedit-api/internal/executor"
	"github.com/petframe/mediaedit-api/internal/media"
	"github.com/petframe/mediaedit-api/internal/session"
	"github.com/petframe/mediaedit-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	SessionService *session.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize metadata prober and source acquirer
	prober := media.NewFFprobeProber(cfg.FFprobePath)
	acquirer := media.NewAcquirer(store, prober, logger)

	// Initialize executor
	exec, err := initExecutor(cfg, prober, logger)
	if err != nil {
		return nil, err
	}

	// Initialize session repository
	repo := session.NewMemoryRepository()

	// Initialize session Service
	svc := session.NewService(
		repo,
		acquirer,
		exec,
		store,
		logger,
		session.WithThumbnailCount(cfg.ThumbnailCount),
		session.WithCanonicalExportSize(cfg.ExportWidth, cfg.ExportHeight),
	)

	return &Dependencies{
		SessionService: svc,
	}, nil
}

// initExecutor creates the configured executor backend.
func initExecutor(cfg *config.Config, prober media.Prober, logger *slog.Logger) (executor.Executor, error) {
	switch cfg.Provider() {
	case executor.ProviderRemote:
		exec, err := executor.NewHTTPExecutor(cfg.ExecutorURL, executor.WithToken(cfg.ExecutorToken))
		if err != nil {
			return nil, fmt.Errorf("create remote executor: %w", err)
		}
		logger.Info("remote executor configured",
			slog.String("url", cfg.ExecutorURL),
		)
		return exec, nil
	default:
		outDir := storage.ArtifactDir(cfg.TempDir)
		exec, err := executor.NewFFmpegExecutor(cfg.FFmpegPath, outDir, prober)
		if err != nil {
			return nil, fmt.Errorf("create ffmpeg executor: %w", err)
		}
		logger.Info("ffmpeg executor configured",
			slog.String("out_dir", outDir),
		)
		return exec, nil
	}
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			KeyPrefix:       cfg.S3KeyPrefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
