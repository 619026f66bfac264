package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/resilience"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.4
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 30
)

// GeminiConfig holds configuration for the Gemini analyzer
type GeminiConfig struct {
	APIKey          string  // Required
	Model           string  // Optional: default gemini-2.0-flash
	Temperature     float32 // Optional: between 0 and 1
	MaxOutputTokens int     // Optional
	TimeoutSeconds  int     // Optional: per-call timeout
}

// GeminiAnalyzer implements MusicAnalyzer using Google's Gemini API
type GeminiAnalyzer struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
}

var _ repositories.MusicAnalyzer = (*GeminiAnalyzer)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Gemini API key is required")
	}

	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiAnalyzer creates the genai client up front so a missing or
// malformed credential fails at wiring time
func NewGeminiAnalyzer(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiAnalyzer, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	analyzer := &GeminiAnalyzer{
		client:          client,
		logger:          logger,
		model:           config.Model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
		timeout:         time.Duration(config.TimeoutSeconds) * time.Second,
	}
	if analyzer.model == "" {
		analyzer.model = defaultModel
		logger.Info("Using default Gemini model", zap.String("model", analyzer.model))
	}
	if analyzer.temperature == 0 {
		analyzer.temperature = defaultTemperature
	}
	if analyzer.maxOutputTokens == 0 {
		analyzer.maxOutputTokens = defaultMaxTokens
	}
	if analyzer.timeout == 0 {
		analyzer.timeout = defaultTimeoutSeconds * time.Second
	}

	return analyzer, nil
}

// Ping fetches the model metadata, which needs a valid key but no tokens
func (g *GeminiAnalyzer) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini ping failed: %w", classify(err))
	}
	return nil
}

// AnalyzeJSON asks the model for a JSON object and returns the raw reply text
func (g *GeminiAnalyzer) AnalyzeJSON(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis: %w", classify(err))
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("No content generated for analysis")
		return "", nil
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	g.logger.Debug("Analysis response received",
		zap.String("model", g.model),
		zap.Int("length", sb.Len()))

	return sb.String(), nil
}

// classify rewraps genai HTTP failures as StatusError so retry
// classification does not depend on the SDK's error type
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &resilience.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &resilience.StatusError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
