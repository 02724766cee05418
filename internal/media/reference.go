// Package media provides acquisition of user-selected media sources. It
// normalizes picked and dropped files into a Reference, probes metadata
// (image dimensions, video duration) without decoding frames, and tracks
// ownership of the backing temporary file through a Lease.
package media

// Kind discriminates between image and video sources.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Reference is an opaque handle plus metadata describing a user-selected
// image or video. A Reference is never mutated in place; replacing the
// source produces a fresh Reference.
type Reference struct {
	// Kind is the media discriminant.
	Kind Kind `json:"kind"`
	// URI locates the media (file path or remote URL). The underlying
	// resource is owned by the session's Lease, not by the Reference.
	URI string `json:"uri"`
	// Width is the pixel width, 0 until known.
	Width int `json:"width,omitempty"`
	// Height is the pixel height, 0 until known.
	Height int `json:"height,omitempty"`
	// DurationSeconds is the playable duration. Only meaningful for video;
	// 0 means the metadata probe has not resolved (or failed).
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// DurationKnown reports whether the video duration has been resolved.
// Always false for images.
func (r *Reference) DurationKnown() bool {
	return r != nil && r.Kind == KindVideo && r.DurationSeconds > 0
}
