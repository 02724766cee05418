package editop

import (
	"fmt"

	"github.com/petframe/mediaedit-api/internal/media"
)

// Options controls the output encoding of an edit.
type Options struct {
	// ImageFormat selects the output format for image edits (e.g. "jpeg",
	// "png", "webp"). Ignored for video.
	ImageFormat string `json:"image_format,omitempty"`
	// Quality is the encoder quality from 1 to 100. 0 means executor default.
	Quality int `json:"quality,omitempty"`
	// PreferGPU hints that hardware encoding should be used if available.
	PreferGPU bool `json:"prefer_gpu,omitempty"`
}

// Request is one complete edit submission: the source, the ordered
// operation list, and output options. A Request is built once from session
// state and never mutated; a retry after failure rebuilds it from scratch.
type Request struct {
	Source     media.Reference `json:"source"`
	Operations Operations      `json:"operations"`
	Options    Options         `json:"options"`
}

// Validate checks every operation in the request. The empty operation list
// is valid: executors treat it as a pass-through re-encode.
func (r Request) Validate() error {
	for i, op := range r.Operations {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op.Kind(), err)
		}
	}
	return nil
}

// Result describes the artifact produced by an executor.
type Result struct {
	// Kind is the media discriminant of the artifact.
	Kind media.Kind `json:"kind"`
	// URI locates the produced artifact.
	URI string `json:"uri"`
	// Width is the pixel width, 0 if unknown.
	Width int `json:"width,omitempty"`
	// Height is the pixel height, 0 if unknown.
	Height int `json:"height,omitempty"`
	// DurationSeconds is the playable duration, 0 for images or unknown.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	// ByteSize is the artifact size in bytes, 0 if unknown.
	ByteSize int64 `json:"byte_size,omitempty"`
}
