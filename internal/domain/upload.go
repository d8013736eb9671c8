package domain

import (
	"fmt"
	"strings"
)

// Upload limits enforced before anything touches the media host.
const (
	MaxUploadBytes     = 10 << 20 // 10 MB
	MaxDurationSeconds = 60
)

// allowedAudioTypes is the explicit allow-list; anything else under audio/*
// is also accepted since browsers disagree on recorder output types.
var allowedAudioTypes = map[string]struct{}{
	"audio/webm": {},
	"audio/mp3":  {},
	"audio/mpeg": {},
	"audio/ogg":  {},
	"audio/wav":  {},
	"audio/mp4":  {},
}

// Upload carries a decoded multipart upload into the domain layer.
type Upload struct {
	// Data is the raw audio payload.
	Data []byte

	// MimeType is the declared content type of Data.
	MimeType string

	// AnonymousID identifies the uploading device.
	AnonymousID string

	// Avatar is an optional display decoration reference.
	Avatar string

	// Username is only used by the legacy audio surface.
	Username string

	// Duration is the client-reported clip length in seconds.
	Duration float64
}

// Validate checks the payload against the upload limits. All failures are
// ErrValidation kinds.
func (u Upload) Validate() error {
	if len(u.Data) == 0 {
		return fmt.Errorf("%w: no audio file received", ErrValidation)
	}
	if len(u.Data) > MaxUploadBytes {
		return fmt.Errorf("%w: audio file exceeds %d bytes", ErrValidation, MaxUploadBytes)
	}
	if !allowedAudioType(u.MimeType) {
		return fmt.Errorf("%w: invalid file type %q, allowed: audio only", ErrValidation, u.MimeType)
	}
	return nil
}

func allowedAudioType(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if _, ok := allowedAudioTypes[mt]; ok {
		return true
	}
	return strings.HasPrefix(mt, "audio/")
}

func clampDuration(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > MaxDurationSeconds {
		return MaxDurationSeconds
	}
	return d
}
