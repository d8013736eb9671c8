package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadValidate(t *testing.T) {
	tests := []struct {
		name    string
		upload  Upload
		wantErr bool
	}{
		{"webm", Upload{Data: []byte("x"), MimeType: "audio/webm"}, false},
		{"mpeg", Upload{Data: []byte("x"), MimeType: "audio/mpeg"}, false},
		{"uppercase type", Upload{Data: []byte("x"), MimeType: "AUDIO/WAV"}, false},
		{"unlisted audio subtype", Upload{Data: []byte("x"), MimeType: "audio/x-m4a"}, false},
		{"text", Upload{Data: []byte("x"), MimeType: "text/plain"}, true},
		{"video", Upload{Data: []byte("x"), MimeType: "video/mp4"}, true},
		{"empty type", Upload{Data: []byte("x"), MimeType: ""}, true},
		{"no payload", Upload{MimeType: "audio/webm"}, true},
		{"oversized", Upload{Data: bytes.Repeat([]byte("a"), MaxUploadBytes+1), MimeType: "audio/webm"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upload.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampDuration(t *testing.T) {
	assert.Equal(t, 0.0, clampDuration(-3))
	assert.Equal(t, 12.5, clampDuration(12.5))
	assert.Equal(t, 60.0, clampDuration(61))
	assert.Equal(t, 60.0, clampDuration(60))
}
