// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/petframe/mediaedit-api/internal/executor"
)

// Static errors for configuration validation.
var (
	// ErrInvalidProvider is returned when EXECUTOR_PROVIDER is not recognized.
	ErrInvalidProvider = errors.New("config: EXECUTOR_PROVIDER must be remote or ffmpeg")
	// ErrExecutorURLRequired is returned when the remote provider is selected
	// without EXECUTOR_URL.
	ErrExecutorURLRequired = errors.New("config: EXECUTOR_URL is required for the remote provider")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Executor settings
	ExecutorProvider string `env:"EXECUTOR_PROVIDER, default=ffmpeg" json:"executor_provider"`
	ExecutorURL      string `env:"EXECUTOR_URL" json:"executor_url,omitempty"`
	ExecutorToken    string `env:"EXECUTOR_TOKEN" json:"-"` // Masked in JSON
	FFmpegPath       string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath      string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/mediaedit" json:"temp_dir"`

	// Editing settings
	ThumbnailCount int `env:"THUMBNAIL_COUNT, default=8" json:"thumbnail_count"`
	ExportWidth    int `env:"EXPORT_WIDTH, default=720" json:"export_width"`
	ExportHeight   int `env:"EXPORT_HEIGHT, default=1280" json:"export_height"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3KeyPrefix        string `env:"S3_KEY_PREFIX, default=exports" json:"s3_key_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Provider returns the configured executor provider.
func (c *Config) Provider() executor.Provider {
	return executor.Provider(strings.ToLower(c.ExecutorProvider))
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if the configuration is invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if !c.Provider().IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidProvider, c.ExecutorProvider)
	}
	if c.Provider() == executor.ProviderRemote && c.ExecutorURL == "" {
		return ErrExecutorURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ExecutorProvider: %s, ExecutorURL: %s, TempDir: %s, ThumbnailCount: %d, ExportSize: %dx%d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ExecutorProvider,
		c.ExecutorURL,
		c.TempDir,
		c.ThumbnailCount,
		c.ExportWidth,
		c.ExportHeight,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
