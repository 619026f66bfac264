package stt

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain/repositories"
)

// MockSpeechToText is a development implementation that drains the audio
// and returns a fixed transcript
type MockSpeechToText struct {
	logger *zap.Logger
	Text   string
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a mock adapter that always answers text
func NewMockSpeechToText(text string, logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger, Text: text}
}

func (m *MockSpeechToText) Transcribe(ctx context.Context, audio io.Reader, config repositories.AudioConfig) (string, error) {
	n, err := io.Copy(io.Discard, audio)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.logger.Debug("Mock transcription", zap.String("filename", config.Filename), zap.Int64("bytes", n))
	return m.Text, nil
}
