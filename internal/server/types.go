// Package server provides the HTTP server for the media edit session API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// TrimRequest is the HTTP request body for committing a trim range.
type TrimRequest struct {
	// StartSeconds is the start of the selected sub-range.
	StartSeconds float64 `json:"start_seconds" validate:"gte=0"`
	// EndSeconds is the end of the selected sub-range.
	EndSeconds float64 `json:"end_seconds" validate:"gtefield=StartSeconds"`
}

// FilterRequest is the HTTP request body for selecting a preset look.
type FilterRequest struct {
	// Name is one of the fixed preset names.
	Name string `json:"name" validate:"required"`
	// Intensity is the optional preset strength in [0, 1].
	Intensity *float64 `json:"intensity,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// AdjustRequest is the HTTP request body for color adjustments. All fields
// are offsets in [-1, 1] around the neutral setting.
type AdjustRequest struct {
	Brightness  *float64 `json:"brightness,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Contrast    *float64 `json:"contrast,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Saturation  *float64 `json:"saturation,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Exposure    *float64 `json:"exposure,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

// SpeedRequest is the HTTP request body for a playback rate change.
type SpeedRequest struct {
	// Rate is the playback rate multiplier.
	Rate float64 `json:"rate" validate:"required,gte=0.25,lte=4"`
}

// ExportRequest is the HTTP request body for starting an export.
type ExportRequest struct {
	// ImageFormat selects the output format for image edits.
	ImageFormat string `json:"image_format,omitempty" validate:"omitempty,oneof=jpeg png webp"`
	// Quality is the encoder quality from 1 to 100.
	Quality int `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	// PreferGPU hints that hardware encoding should be used if available.
	PreferGPU bool `json:"prefer_gpu,omitempty"`
}

// SourceResponse describes the selected media source.
type SourceResponse struct {
	// Kind is "image" or "video".
	Kind string `json:"kind"`
	// Width is the pixel width, 0 if unknown.
	Width int `json:"width,omitempty"`
	// Height is the pixel height, 0 if unknown.
	Height int `json:"height,omitempty"`
	// DurationSeconds is the video duration, 0 until the probe resolves.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// TrimResponse describes the committed trim range.
type TrimResponse struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// ResultResponse describes the export artifact.
type ResultResponse struct {
	// Kind is the media discriminant of the artifact.
	Kind string `json:"kind"`
	// URI locates the artifact on the executor's storage.
	URI string `json:"uri"`
	// URL is the public delivery URL when S3 upload is configured.
	URL string `json:"url,omitempty"`
	// Width is the pixel width, 0 if unknown.
	Width int `json:"width,omitempty"`
	// Height is the pixel height, 0 if unknown.
	Height int `json:"height,omitempty"`
	// DurationSeconds is the artifact duration, 0 for images.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	// ByteSize is the artifact size in bytes, 0 if unknown.
	ByteSize int64 `json:"byte_size,omitempty"`
}

// SessionResponse is the HTTP representation of an editing session.
type SessionResponse struct {
	// ID is the unique identifier for the session.
	ID string `json:"id"`
	// State is the current session state.
	State string `json:"state"`
	// Source is the selected media, omitted while IDLE.
	Source *SourceResponse `json:"source,omitempty"`
	// Trim is the committed trim range, omitted when none is selected.
	Trim *TrimResponse `json:"trim,omitempty"`
	// Filter is the selected preset name.
	Filter string `json:"filter"`
	// SpeedRate is the requested playback rate, omitted when unchanged.
	SpeedRate float64 `json:"speed_rate,omitempty"`
	// Result is the export artifact, present once DONE.
	Result *ResultResponse `json:"result,omitempty"`
	// Error is the last export or probe error message.
	Error string `json:"error,omitempty"`
	// Picked is false when a source upload resolved to a non-media file
	// and was ignored, mirroring a cancelled picker.
	Picked *bool `json:"picked,omitempty"`
}

// SessionListResponse is the HTTP response for listing sessions.
type SessionListResponse struct {
	// Sessions holds every live session, possibly empty.
	Sessions []SessionResponse `json:"sessions"`
}

// ThumbnailsResponse is the HTTP response for the preview strip.
type ThumbnailsResponse struct {
	// Frames holds the preview frame URIs, possibly empty.
	Frames []string `json:"frames"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
