package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/media"
)

// ErrUnsupportedOperation is returned when an operation cannot be expressed
// for the source kind (e.g. trim on an image).
var ErrUnsupportedOperation = errors.New("executor: unsupported operation for source kind")

// FFmpegExecutor implements Executor using the ffmpeg CLI. It renders edits
// into outDir and serves thumbnails by extracting evenly spaced frames.
type FFmpegExecutor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	prober     media.Prober
	outDir     string
}

var _ Executor = (*FFmpegExecutor)(nil)

// NewFFmpegExecutor creates a new FFmpegExecutor writing artifacts to
// outDir. If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegExecutor(ffmpegPath, outDir string, prober media.Prober) (*FFmpegExecutor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("executor: create output directory: %w", err)
	}
	return &FFmpegExecutor{ffmpegPath: ffmpegPath, prober: prober, outDir: outDir}, nil
}

// EditMedia renders the request with a single ffmpeg invocation and returns
// the produced artifact with its probed metadata.
func (e *FFmpegExecutor) EditMedia(ctx context.Context, req editop.Request) (editop.Result, error) {
	if err := req.Validate(); err != nil {
		return editop.Result{}, fmt.Errorf("executor: invalid request: %w", err)
	}

	output := filepath.Join(e.outDir, uuid.NewString()+outputExt(req))

	args, err := BuildArgs(req, output)
	if err != nil {
		return editop.Result{}, err
	}

	if err := e.run(ctx, args); err != nil {
		return editop.Result{}, err
	}

	result := editop.Result{Kind: req.Source.Kind, URI: output}
	if info, err := os.Stat(output); err == nil {
		result.ByteSize = info.Size()
	}

	switch req.Source.Kind {
	case media.KindVideo:
		if meta, err := e.prober.ProbeVideo(ctx, output); err == nil {
			result.DurationSeconds = meta.DurationSeconds
			result.Width = meta.Width
			result.Height = meta.Height
		}
	case media.KindImage:
		if w, h, err := imageSize(output); err == nil {
			result.Width = w
			result.Height = h
		}
	}

	return result, nil
}

// Thumbnails extracts count evenly spaced frames from the video at uri.
// Frames are sampled at interval midpoints so the first and last thumbnails
// are representative rather than black lead-in frames.
func (e *FFmpegExecutor) Thumbnails(ctx context.Context, uri string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	meta, err := e.prober.ProbeVideo(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("executor: probe for thumbnails: %w", err)
	}
	if meta.DurationSeconds <= 0 {
		return nil, fmt.Errorf("executor: probe for thumbnails: unknown duration")
	}

	frames := make([]string, 0, count)
	interval := meta.DurationSeconds / float64(count)
	for i := 0; i < count; i++ {
		at := (float64(i) + 0.5) * interval
		out := filepath.Join(e.outDir, fmt.Sprintf("thumb-%s-%d.jpg", uuid.NewString()[:8], i))

		args := []string{
			"-y",
			"-ss", fmt.Sprintf("%.3f", at),
			"-i", uri,
			"-frames:v", "1",
			"-vf", "scale=160:-1",
			out,
		}
		if err := e.run(ctx, args); err != nil {
			// Best-effort: return whatever was extracted so far.
			return frames, err
		}
		frames = append(frames, out)
	}

	return frames, nil
}

// BuildArgs translates an edit request into a single ffmpeg invocation.
// Operations are honored in list order; the switch over operation kinds is
// exhaustive. Exported for testing.
func BuildArgs(req editop.Request, output string) ([]string, error) {
	args := []string{"-y"}

	isVideo := req.Source.Kind == media.KindVideo

	// Trim is an input-level option so decoding starts at the cut point.
	var speedRate float64
	var watermark *editop.Watermark
	chain := &filterChain{}

	for _, op := range req.Operations {
		switch op := op.(type) {
		case editop.Trim:
			if !isVideo {
				return nil, fmt.Errorf("%w: trim on %s", ErrUnsupportedOperation, req.Source.Kind)
			}
			args = append(args,
				"-ss", fmt.Sprintf("%.3f", op.StartSeconds),
				"-t", fmt.Sprintf("%.3f", op.EndSeconds-op.StartSeconds),
			)
		case editop.Speed:
			if !isVideo {
				return nil, fmt.Errorf("%w: speed on %s", ErrUnsupportedOperation, req.Source.Kind)
			}
			speedRate = op.Rate
			chain.add(videoFilterFor(op))
		case editop.Watermark:
			wm := op
			watermark = &wm
		case editop.Resize, editop.Crop, editop.Rotate, editop.Flip, editop.Adjust, editop.Blur, editop.Filter:
			if f := videoFilterFor(op); f != "" {
				chain.add(f)
			}
		default:
			return nil, fmt.Errorf("%w: %s", editop.ErrUnknownOperation, op.Kind())
		}
	}

	args = append(args, "-i", req.Source.URI)

	if watermark != nil {
		args = append(args, "-i", watermark.URI)
		args = append(args, "-filter_complex", overlayGraph(chain, *watermark))
	} else if !chain.empty() {
		args = append(args, "-vf", chain.build())
	}

	if isVideo {
		if speedRate > 0 {
			args = append(args, "-af", atempoChain(speedRate))
		}
		if req.Options.PreferGPU {
			// videotoolbox ignores CRF; it rates quality on a 1-100 scale.
			args = append(args, "-c:v", "h264_videotoolbox",
				"-q:v", fmt.Sprintf("%d", qualityOrDefault(req.Options.Quality)))
		} else {
			args = append(args, "-c:v", "libx264", "-preset", "fast",
				"-crf", fmt.Sprintf("%d", crfFor(req.Options.Quality)))
		}
		args = append(args,
			"-c:a", "aac",
			"-b:a", "128k",
		)
	} else {
		args = append(args, "-frames:v", "1")
		if req.Options.Quality > 0 {
			// jpeg qscale runs 2 (best) to 31 (worst).
			args = append(args, "-q:v", fmt.Sprintf("%d", 2+(100-req.Options.Quality)*29/100))
		}
	}

	return append(args, output), nil
}

// overlayGraph builds the filter_complex graph compositing a watermark over
// the (possibly filtered) base video.
func overlayGraph(chain *filterChain, wm editop.Watermark) string {
	base := "[0:v]"
	var sb strings.Builder

	if !chain.empty() {
		sb.WriteString("[0:v]")
		sb.WriteString(chain.build())
		sb.WriteString("[base];")
		base = "[base]"
	}

	sb.WriteString("[1:v]format=rgba")
	if wm.Scale != nil {
		sb.WriteString(fmt.Sprintf(",scale=iw*%.3f:-1", *wm.Scale))
	}
	if wm.Opacity != nil {
		sb.WriteString(fmt.Sprintf(",colorchannelmixer=aa=%.3f", *wm.Opacity))
	}
	sb.WriteString("[wm];")
	sb.WriteString(base)
	sb.WriteString(fmt.Sprintf("[wm]overlay=%d:%d", wm.X, wm.Y))

	return sb.String()
}

// crfFor maps a 1-100 quality setting onto libx264's 0-51 CRF scale.
func crfFor(quality int) int {
	if quality <= 0 {
		return 23
	}
	if quality > 100 {
		quality = 100
	}
	return 51 - quality*51/100
}

// qualityOrDefault clamps a 1-100 quality setting for encoders that take
// the scale directly, defaulting to 65 when unset.
func qualityOrDefault(quality int) int {
	if quality <= 0 {
		return 65
	}
	if quality > 100 {
		return 100
	}
	return quality
}

// outputExt picks the artifact file extension for a request.
func outputExt(req editop.Request) string {
	if req.Source.Kind == media.KindVideo {
		return ".mp4"
	}
	switch strings.ToLower(req.Options.ImageFormat) {
	case "png":
		return ".png"
	case "webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// imageSize reads the pixel dimensions of an encoded image file.
func imageSize(path string) (int, int, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by this executor
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// run executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (e *FFmpegExecutor) run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("executor: ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
