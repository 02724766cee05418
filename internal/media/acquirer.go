package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"

	// Header decoders for dimension probing. Frames are never decoded.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"

	"github.com/petframe/mediaedit-api/internal/storage"
)

// Source is an acquired media reference together with the lease over its
// backing temporary file.
type Source struct {
	Reference *Reference
	Lease     *Lease
}

// Acquirer normalizes picked and dropped files into a Source. Non-media
// input resolves to nil (a cancellation, not an error); probe failures
// degrade the reference rather than failing acquisition.
type Acquirer struct {
	store  storage.Storage
	prober Prober
	logger *slog.Logger
}

// NewAcquirer creates a new Acquirer.
func NewAcquirer(store storage.Storage, prober Prober, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{store: store, prober: prober, logger: logger}
}

// Acquire saves the incoming byte stream to temp storage, classifies it as
// image or video, and probes its metadata.
//
// The declared content type is trusted when it carries an image/ or video/
// prefix; otherwise the stored bytes are sniffed. Anything that is neither
// image nor video returns (nil, nil): callers treat a nil Source as a
// no-op, mirroring a cancelled file picker.
func (a *Acquirer) Acquire(ctx context.Context, name, declaredType string, data io.Reader) (*Source, error) {
	path, err := a.store.SaveTemp(ctx, sanitizeName(name), data)
	if err != nil {
		return nil, fmt.Errorf("media: save source: %w", err)
	}
	lease := NewLease(path)

	kind, ok := classify(declaredType)
	if !ok {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			_ = lease.Release()
			return nil, fmt.Errorf("media: detect content type: %w", err)
		}
		kind, ok = classify(detected.String())
		if !ok {
			a.logger.Info("dropped non-media file ignored",
				slog.String("name", name),
				slog.String("detected_type", detected.String()),
			)
			_ = lease.Release()
			return nil, nil
		}
	}

	ref := &Reference{Kind: kind, URI: path}

	switch kind {
	case KindImage:
		w, h, err := imageDimensions(path)
		if err != nil {
			// Corrupt or undecodable image: no partial reference is
			// published, the caller's prior state stands.
			a.logger.Warn("image decode failed",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
			_ = lease.Release()
			return nil, nil
		}
		ref.Width = w
		ref.Height = h

	case KindVideo:
		meta, err := a.prober.ProbeVideo(ctx, path)
		if err != nil {
			// Probe failure degrades the reference: duration stays unknown
			// and trimming is disabled, but the session remains usable.
			a.logger.Warn("video metadata probe failed",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
		} else {
			ref.DurationSeconds = meta.DurationSeconds
			ref.Width = meta.Width
			ref.Height = meta.Height
		}
	}

	return &Source{Reference: ref, Lease: lease}, nil
}

// classify maps a MIME type to a media Kind by prefix.
func classify(contentType string) (Kind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

// imageDimensions reads just enough of the file to obtain its natural
// pixel dimensions.
func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by trusted storage
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// sanitizeName strips path separators from an upload name so it is safe as
// a temp file prefix.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "source"
	}
	return name
}
