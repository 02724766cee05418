package executor

import (
	"github.com/petframe/mediaedit-api/internal/editop"
	"github.com/petframe/mediaedit-api/internal/media"
)

// editRequest is the wire format for POST /v1/edits on the remote executor.
type editRequest struct {
	Source     media.Reference   `json:"source"`
	Operations editop.Operations `json:"operations"`
	Options    editop.Options    `json:"options"`
}

// editResponse is the wire format of a completed edit.
type editResponse struct {
	Kind            string  `json:"kind"`
	URI             string  `json:"uri"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ByteSize        int64   `json:"byte_size,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// thumbnailsResponse is the wire format for GET /v1/thumbnails.
type thumbnailsResponse struct {
	Frames []string `json:"frames"`
	Error  string   `json:"error,omitempty"`
}
