package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/resilience"
)

const (
	defaultWhisperBaseURL = "https://api.openai.com/v1"
	defaultWhisperModel   = "whisper-1"
	defaultWhisperTimeout = 60 * time.Second
)

// WhisperConfig holds configuration for the WhisperSpeechToText adapter
// Required fields:
// - APIKey: bearer token for the transcription endpoint
// Optional fields with defaults:
// - BaseURL: OpenAI-compatible API root (default: "https://api.openai.com/v1")
// - Model: transcription model (default: "whisper-1")
// - Timeout: per-request timeout (default: 60s)
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// WhisperSpeechToText implements SpeechToText against an OpenAI-compatible
// /audio/transcriptions endpoint
type WhisperSpeechToText struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

type whisperResponse struct {
	Text string `json:"text"`
}

// NewWhisperSpeechToText creates a Whisper adapter with the given configuration
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if config.BaseURL == "" {
		config.BaseURL = defaultWhisperBaseURL
		logger.Info("Using default Whisper base URL", zap.String("base_url", config.BaseURL))
	}
	if config.Model == "" {
		config.Model = defaultWhisperModel
		logger.Info("Using default Whisper model", zap.String("model", config.Model))
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultWhisperTimeout
	}

	return &WhisperSpeechToText{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Transcribe uploads the audio as multipart form data and returns the text
func (w *WhisperSpeechToText) Transcribe(ctx context.Context, audio io.Reader, config repositories.AudioConfig) (string, error) {
	filename := filepath.Base(config.Filename)
	if filename == "." || filename == "/" || filename == "" {
		filename = "audio.mp3"
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if err := form.WriteField("model", w.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	if lang := languageCode(config.Language); lang != "" {
		if err := form.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	w.logger.Debug("Sending transcription request",
		zap.String("filename", filename),
		zap.Int64("bytes", n),
		zap.String("model", w.model))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &resilience.StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// languageCode reduces a BCP-47 tag such as en-US to the ISO-639-1 code
// the transcription endpoint expects
func languageCode(language string) string {
	if language == "" {
		return ""
	}
	code, _, _ := strings.Cut(language, "-")
	return strings.ToLower(code)
}
