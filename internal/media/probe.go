package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// ErrProbeExecution is returned when the ffprobe command fails.
var ErrProbeExecution = errors.New("media: ffprobe execution failed")

// VideoMetadata holds the result of a metadata-only probe. No frames are
// decoded to produce it.
type VideoMetadata struct {
	DurationSeconds float64
	Width           int
	Height          int
}

// Prober resolves video metadata for a local media file.
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (VideoMetadata, error)
}

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFprobeProber creates a new FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

// probeResult matches the ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeVideo extracts duration and dimensions from a video file using
// ffprobe's JSON output. Only container/stream metadata is read.
func (p *FFprobeProber) ProbeVideo(ctx context.Context, path string) (VideoMetadata, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return VideoMetadata{}, fmt.Errorf("media: ffprobe cancelled: %w", ctx.Err())
		}
		return VideoMetadata{}, fmt.Errorf("%w: %w, stderr: %s", ErrProbeExecution, err, stderr.String())
	}

	var probe probeResult
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return VideoMetadata{}, fmt.Errorf("media: parse ffprobe output: %w", err)
	}

	var meta VideoMetadata
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		meta.DurationSeconds = dur
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			meta.Width = stream.Width
			meta.Height = stream.Height
			break
		}
	}

	return meta, nil
}
