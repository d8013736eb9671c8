package domain

import "errors"

// Error kinds surfaced to the HTTP layer. Handlers map these to status codes
// with errors.Is; everything else is reported as a generic internal failure.
var (
	// ErrValidation marks a bad or missing upload payload.
	ErrValidation = errors.New("invalid request")

	// ErrNotConfigured marks a missing media host configuration.
	ErrNotConfigured = errors.New("media host not configured")

	// ErrStorageUnavailable marks a transient store failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUploadFailed marks a rejection or error from the external media host.
	ErrUploadFailed = errors.New("media upload failed")

	// ErrNotFound is reserved for future per-post lookups.
	ErrNotFound = errors.New("post not found")
)
