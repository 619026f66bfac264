package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/audio"
	"github.com/satriahrh/soundalike/internal/resilience"
)

const (
	// PlaceholderTranscript stands in when transcription cannot be obtained
	PlaceholderTranscript = "instrumental music with melody and rhythm"

	generationSystemPrompt = "You are a music analysis expert. Describe the key musical characteristics " +
		"of the piece from its transcription. Reply with a single JSON object."
	analysisSystemPrompt = "Infer the musical characteristics of the piece from its transcription. " +
		"Reply with a JSON object with the fields tempo, key, mood and genre."

	defaultVariantCount = 3
)

// GenerationConfig tunes the orchestration
type GenerationConfig struct {
	VariantCount int
	Language     string
	Retry        resilience.RetryPolicy
}

// GenerationService produces stylistic variants of a source track. The
// remote transcription and analysis step is best effort; output always
// comes from the local audio processor.
type GenerationService struct {
	stt          repositories.SpeechToText
	analyzer     repositories.MusicAnalyzer
	processor    repositories.AudioProcessor
	retry        resilience.RetryPolicy
	variantCount int
	language     string
	logger       *zap.Logger
}

// NewGenerationService wires the orchestrator. stt and analyzer may be nil,
// in which case every request goes straight to local processing.
func NewGenerationService(
	stt repositories.SpeechToText,
	analyzer repositories.MusicAnalyzer,
	processor repositories.AudioProcessor,
	config GenerationConfig,
	logger *zap.Logger,
) *GenerationService {
	if config.VariantCount < 1 {
		config.VariantCount = defaultVariantCount
	}
	if config.Retry.Logger == nil {
		config.Retry.Logger = logger
	}
	return &GenerationService{
		stt:          stt,
		analyzer:     analyzer,
		processor:    processor,
		retry:        config.Retry,
		variantCount: config.VariantCount,
		language:     config.Language,
		logger:       logger,
	}
}

// RemoteEnabled reports whether a remote transcription and analysis pair is wired
func (s *GenerationService) RemoteEnabled() bool {
	return s.stt != nil && s.analyzer != nil
}

// Generate runs the full pipeline for sourcePath. Only SourceNotFound,
// ProcessingFailure and context cancellation reach the caller.
func (s *GenerationService) Generate(ctx context.Context, sourcePath string) (*entities.GenerationResult, error) {
	if err := audio.CheckSource(sourcePath); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("source", filepath.Base(sourcePath)))
	result := &entities.GenerationResult{}

	if s.RemoteEnabled() {
		transcript, characteristics, ok := s.remoteAnalysis(ctx, sourcePath, logger)
		result.Remote = ok
		result.Transcript = transcript
		result.Characteristics = characteristics
	} else {
		logger.Info("Remote analysis not configured, using local processing")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracks, err := s.processor.Process(ctx, sourcePath, s.variantCount)
	if err != nil {
		return nil, err
	}
	result.Tracks = tracks

	logger.Info("Generation completed",
		zap.Int("tracks", len(tracks)),
		zap.Bool("remote", result.Remote))

	return result, nil
}

// remoteAnalysis never fails: any problem, including a panic inside an
// adapter, ends the remote step and the caller falls through to local
// processing.
func (s *GenerationService) remoteAnalysis(ctx context.Context, sourcePath string, logger *zap.Logger) (transcript string, characteristics entities.MusicCharacteristics, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Remote analysis panicked, falling back to local processing", zap.Any("panic", r))
			transcript, characteristics, ok = "", nil, false
		}
	}()

	if err := s.analyzer.Ping(ctx); err != nil {
		logger.Warn("Remote service unavailable, falling back to local processing", zap.Error(err))
		return "", nil, false
	}

	text, err := s.transcribe(ctx, sourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, false
		}
		logger.Warn("Transcription failed, using placeholder", zap.Error(err))
		text = PlaceholderTranscript
	}

	characteristics, err = s.characteristics(ctx, generationSystemPrompt, text)
	if err != nil {
		logger.Warn("Characteristics analysis failed", zap.Error(err))
		characteristics = entities.MusicCharacteristics{}
	}

	logger.Info("Remote analysis completed",
		zap.String("tempo", characteristics.Tempo()),
		zap.String("key", characteristics.Key()),
		zap.String("mood", characteristics.Mood()),
		zap.String("genre", characteristics.Genre()))

	return text, characteristics, true
}

// Analyze transcribes and analyzes sourcePath without producing audio.
// Unlike Generate it reports remote failures to the caller.
func (s *GenerationService) Analyze(ctx context.Context, sourcePath string) (entities.MusicCharacteristics, error) {
	if err := audio.CheckSource(sourcePath); err != nil {
		return nil, err
	}
	if !s.RemoteEnabled() {
		return nil, domain.ErrNotConfigured
	}

	if err := s.analyzer.Ping(ctx); err != nil {
		return nil, domain.Wrap(err, domain.KindRemoteUnavailable, "remote service unavailable")
	}

	text, err := s.transcribe(ctx, sourcePath)
	if err != nil {
		return nil, domain.Wrap(err, domain.KindTranscriptionFailure, "transcription failed")
	}

	return s.characteristics(ctx, analysisSystemPrompt, text)
}

// transcribe opens a fresh stream for every attempt and closes it before
// the attempt returns
func (s *GenerationService) transcribe(ctx context.Context, sourcePath string) (string, error) {
	config := repositories.AudioConfig{
		Filename: filepath.Base(sourcePath),
		Language: s.language,
	}

	text, err := resilience.Retry(ctx, s.retry, func(ctx context.Context) (string, error) {
		f, err := os.Open(sourcePath)
		if err != nil {
			return "", domain.Wrap(err, domain.KindSourceNotFound, "open source audio")
		}
		defer f.Close()

		return s.stt.Transcribe(ctx, f, config)
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrTranscriptionFailed
	}
	return text, nil
}

func (s *GenerationService) characteristics(ctx context.Context, system, transcript string) (entities.MusicCharacteristics, error) {
	raw, err := s.analyzer.AnalyzeJSON(ctx, system, transcript)
	if err != nil {
		return nil, domain.Wrap(err, domain.KindRemoteUnavailable, "analysis request failed")
	}
	return ParseCharacteristics(raw)
}

// ParseCharacteristics decodes the analyzer reply. An empty reply is an
// empty set of characteristics; anything that is not a JSON object is an
// AnalysisParse error.
func ParseCharacteristics(raw string) (entities.MusicCharacteristics, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entities.MusicCharacteristics{}, nil
	}

	var characteristics entities.MusicCharacteristics
	if err := json.Unmarshal([]byte(raw), &characteristics); err != nil {
		return nil, domain.Wrap(err, domain.KindAnalysisParse, "malformed analysis response")
	}
	if characteristics == nil {
		return nil, domain.Wrap(fmt.Errorf("got %q", raw), domain.KindAnalysisParse, "analysis response is not an object")
	}
	return characteristics, nil
}
