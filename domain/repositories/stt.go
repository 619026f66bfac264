package repositories

import (
	"context"
	"io"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts an audio stream to text. The caller owns and closes audio.
	Transcribe(ctx context.Context, audio io.Reader, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	Filename   string `json:"filename"`
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
