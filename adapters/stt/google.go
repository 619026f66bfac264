package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/repositories"
)

const defaultChunkSize = 32 * 1024

// ErrNoSpeech is returned when the backend heard nothing it could transcribe
var ErrNoSpeech = domain.NewError(domain.KindTranscriptionFailure, "no speech detected in audio")

// GoogleSpeechToText implements SpeechToText for Google Cloud using
// application default credentials
type GoogleSpeechToText struct {
	logger    *zap.Logger
	chunkSize int
}

// NewGoogleSpeechToText creates a Google Cloud Speech adapter
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger, chunkSize: defaultChunkSize}
}

// Transcribe streams audio to StreamingRecognize and joins every final result
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio io.Reader, config repositories.AudioConfig) (string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     getAudioEncoding(config),
		LanguageCode: config.Language,
	}
	if config.SampleRate > 0 {
		recognitionConfig.SampleRateHertz = int32(config.SampleRate)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig,
				InterimResults: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	resultChan := make(chan string, 1)
	errorChan := make(chan error, 1)
	go receiveResults(stream, resultChan, errorChan)

	buf := make([]byte, g.chunkSize)
	sent := 0
	for {
		n, readErr := audio.Read(buf)
		if n > 0 {
			sent += n
			if err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}); err != nil {
				stream.CloseSend()
				return "", fmt.Errorf("failed to send audio data: %w", err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			stream.CloseSend()
			return "", fmt.Errorf("failed to read audio: %w", readErr)
		}
	}

	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}
	if sent == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	g.logger.Debug("Audio streamed to Google Speech", zap.Int("bytes", sent))

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", ctx.Err())
	case err := <-errorChan:
		return "", err
	case result := <-resultChan:
		if result == "" {
			return "", ErrNoSpeech
		}
		return result, nil
	}
}

func receiveResults(stream speechpb.Speech_StreamingRecognizeClient, resultChan chan<- string, errorChan chan<- error) {
	var parts []string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			resultChan <- strings.Join(parts, " ")
			return
		}
		if err != nil {
			errorChan <- fmt.Errorf("failed to receive response: %w", err)
			return
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
			}
		}
	}
}

// getAudioEncoding maps the configured encoding, or the file extension, to
// the Speech API enum. Unknown formats are left for the API to detect.
func getAudioEncoding(config repositories.AudioConfig) speechpb.RecognitionConfig_AudioEncoding {
	encoding := strings.ToUpper(config.Encoding)
	if encoding == "" {
		switch strings.ToLower(filepath.Ext(config.Filename)) {
		case ".wav":
			encoding = "LINEAR16"
		case ".flac":
			encoding = "FLAC"
		case ".ogg", ".opus":
			encoding = "OGG_OPUS"
		}
	}

	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
