package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/petframe/mediaedit-api/internal/storage"
)

type stubProber struct {
	meta VideoMetadata
	err  error
}

func (p *stubProber) ProbeVideo(_ context.Context, _ string) (VideoMetadata, error) {
	return p.meta, p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAcquirer(t *testing.T, prober Prober) *Acquirer {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return NewAcquirer(store, prober, testLogger())
}

// pngBytes encodes a small solid image so dimension probing has real data.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAcquirer_Acquire_Image(t *testing.T) {
	a := newTestAcquirer(t, &stubProber{})

	src, err := a.Acquire(context.Background(), "photo.png", "image/png",
		bytes.NewReader(pngBytes(t, 64, 48)))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src == nil {
		t.Fatal("expected a source for an image upload")
	}
	defer func() { _ = src.Lease.Release() }()

	if src.Reference.Kind != KindImage {
		t.Errorf("Kind = %s, want image", src.Reference.Kind)
	}
	if src.Reference.Width != 64 || src.Reference.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", src.Reference.Width, src.Reference.Height)
	}
	if src.Reference.DurationKnown() {
		t.Error("DurationKnown() = true for image, want false")
	}
	if _, err := os.Stat(src.Reference.URI); err != nil {
		t.Errorf("expected stored file at %s: %v", src.Reference.URI, err)
	}
}

func TestAcquirer_Acquire_ImageSniffedWithoutDeclaredType(t *testing.T) {
	a := newTestAcquirer(t, &stubProber{})

	src, err := a.Acquire(context.Background(), "photo", "application/octet-stream",
		bytes.NewReader(pngBytes(t, 10, 10)))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src == nil {
		t.Fatal("expected sniffing to classify the png payload")
	}
	defer func() { _ = src.Lease.Release() }()

	if src.Reference.Kind != KindImage {
		t.Errorf("Kind = %s, want image from sniffed bytes", src.Reference.Kind)
	}
}

func TestAcquirer_Acquire_Video(t *testing.T) {
	prober := &stubProber{meta: VideoMetadata{DurationSeconds: 12.5, Width: 1920, Height: 1080}}
	a := newTestAcquirer(t, prober)

	src, err := a.Acquire(context.Background(), "clip.mp4", "video/mp4",
		bytes.NewReader([]byte("not a real container")))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src == nil {
		t.Fatal("expected a source for a video upload")
	}
	defer func() { _ = src.Lease.Release() }()

	if src.Reference.Kind != KindVideo {
		t.Errorf("Kind = %s, want video", src.Reference.Kind)
	}
	if src.Reference.DurationSeconds != 12.5 {
		t.Errorf("DurationSeconds = %v, want 12.5", src.Reference.DurationSeconds)
	}
	if src.Reference.Width != 1920 || src.Reference.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", src.Reference.Width, src.Reference.Height)
	}
	if !src.Reference.DurationKnown() {
		t.Error("DurationKnown() = false, want true")
	}
}

func TestAcquirer_Acquire_ProbeFailureDegrades(t *testing.T) {
	prober := &stubProber{err: ErrProbeExecution}
	a := newTestAcquirer(t, prober)

	src, err := a.Acquire(context.Background(), "clip.mp4", "video/mp4",
		bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src == nil {
		t.Fatal("expected a degraded source, not a rejection")
	}
	defer func() { _ = src.Lease.Release() }()

	if src.Reference.Kind != KindVideo {
		t.Errorf("Kind = %s, want video", src.Reference.Kind)
	}
	if src.Reference.DurationKnown() {
		t.Error("DurationKnown() = true after probe failure, want false")
	}
}

func TestAcquirer_Acquire_NonMediaIgnored(t *testing.T) {
	a := newTestAcquirer(t, &stubProber{})

	src, err := a.Acquire(context.Background(), "notes.txt", "text/plain",
		bytes.NewReader([]byte("plain text content")))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src != nil {
		t.Errorf("src = %+v, want nil for non-media input", src)
	}
}

func TestAcquirer_Acquire_CorruptImageIgnored(t *testing.T) {
	a := newTestAcquirer(t, &stubProber{})

	// Declared image but the bytes do not decode.
	src, err := a.Acquire(context.Background(), "broken.png", "image/png",
		bytes.NewReader([]byte("not a png at all")))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if src != nil {
		t.Errorf("src = %+v, want nil for undecodable image", src)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		wantKind    Kind
		wantOK      bool
	}{
		{"image/png", KindImage, true},
		{"image/webp", KindImage, true},
		{"video/mp4", KindVideo, true},
		{"video/quicktime", KindVideo, true},
		{"text/plain", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		kind, ok := classify(tt.contentType)
		if kind != tt.wantKind || ok != tt.wantOK {
			t.Errorf("classify(%q) = (%s, %v), want (%s, %v)",
				tt.contentType, kind, ok, tt.wantKind, tt.wantOK)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{`dir\file.png`, "dir_file.png"},
		{"", "source"},
	}

	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
