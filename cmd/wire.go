package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/adapters"
	"github.com/satriahrh/soundalike/adapters/llm"
	"github.com/satriahrh/soundalike/adapters/mongo"
	"github.com/satriahrh/soundalike/adapters/stt"
	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/audio"
	"github.com/satriahrh/soundalike/internal/config"
	"github.com/satriahrh/soundalike/internal/resilience"
	"github.com/satriahrh/soundalike/usecase"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newTrackRepository returns the configured storage and a function that
// releases it
func newTrackRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.TrackRepository, func(context.Context), error) {
	if cfg.StorageBackend != config.StorageMongo {
		logger.Info("Using in-memory track storage")
		return adapters.NewMemoryTrackRepository(), func(context.Context) {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := mongo.EnsureIndexes(ctx, client.Database); err != nil {
		logger.Warn("Failed to ensure MongoDB indexes", zap.Error(err))
	}
	return mongo.NewTrackRepository(client.Database), func(ctx context.Context) { client.Close(ctx) }, nil
}

// newRemote builds the transcription and analysis adapters. Both are nil
// when the remote credentials are not configured.
func newRemote(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, repositories.MusicAnalyzer, error) {
	if !cfg.RemoteConfigured() {
		logger.Warn("Remote analysis credentials not configured, generation endpoint is disabled")
		return nil, nil, nil
	}

	if cfg.STTProvider == config.STTMock {
		logger.Info("Using mock remote analysis")
		return stt.NewMockSpeechToText(usecase.PlaceholderTranscript, logger), llm.NewMockAnalyzer(), nil
	}

	analyzer, err := llm.NewGeminiAnalyzer(ctx, llm.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	switch cfg.STTProvider {
	case config.STTWhisper:
		whisper, err := stt.NewWhisperSpeechToText(stt.WhisperConfig{
			APIKey:  cfg.WhisperAPIKey,
			BaseURL: cfg.WhisperBaseURL,
			Model:   cfg.WhisperModel,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create whisper transcriber: %w", err)
		}
		return whisper, analyzer, nil
	default:
		return stt.NewGoogleSpeechToText(logger), analyzer, nil
	}
}

func newProcessor(cfg *config.Config, logger *zap.Logger) *audio.Processor {
	return audio.NewProcessor(audio.Config{
		OutputDir: cfg.UploadsDir,
		Policy:    audio.Policy(cfg.VariantPolicy),
	}, audio.NewFFmpegRenderer(cfg.FFmpegPath), audio.MP3Prober{}, logger)
}

func newGenerationService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*usecase.GenerationService, error) {
	speech, analyzer, err := newRemote(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialDelay = cfg.RetryInitialDelay
	retry.Multiplier = cfg.RetryMultiplier
	retry.Logger = logger

	return usecase.NewGenerationService(speech, analyzer, newProcessor(cfg, logger), usecase.GenerationConfig{
		VariantCount: cfg.VariantCount,
		Language:     cfg.STTLanguage,
		Retry:        retry,
	}, logger), nil
}
