// Package audio renders local audio variants of a source track with ffmpeg
// and measures the results.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
)

// Policy selects how variant parameters are chosen
type Policy string

const (
	// PolicyPresets applies the fixed presets in order, reproducible
	PolicyPresets Policy = "presets"
	// PolicyRandom draws tempo and rate per variant, not reproducible
	PolicyRandom Policy = "random"
)

// UnknownDuration is reported when the output could not be probed
const UnknownDuration = "0:00"

// Config configures a Processor
type Config struct {
	OutputDir string
	Policy    Policy
	Presets   []Preset   // overrides Presets() for PolicyPresets
	Rand      *rand.Rand // source for PolicyRandom
}

// Processor is the local fallback generator: it applies filter presets to a
// source file, one output file per variant.
type Processor struct {
	outputDir string
	policy    Policy
	presets   []Preset
	renderer  Renderer
	prober    Prober
	logger    *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewProcessor creates a processor. Nil renderer or prober fall back to
// ffmpeg and MP3 probing.
func NewProcessor(config Config, renderer Renderer, prober Prober, logger *zap.Logger) *Processor {
	if renderer == nil {
		renderer = NewFFmpegRenderer("")
	}
	if prober == nil {
		prober = MP3Prober{}
	}
	policy := config.Policy
	if policy == "" {
		policy = PolicyPresets
	}
	presets := config.Presets
	if len(presets) == 0 {
		presets = Presets()
	}
	r := config.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	return &Processor{
		outputDir: outputDir,
		policy:    policy,
		presets:   presets,
		renderer:  renderer,
		prober:    prober,
		logger:    logger,
		rand:      r,
	}
}

// Process renders variantCount variants of sourcePath. Variants render
// concurrently; if any fails, every output of this call is removed.
func (p *Processor) Process(ctx context.Context, sourcePath string, variantCount int) ([]entities.GeneratedTrack, error) {
	if variantCount < 1 {
		return nil, domain.NewError(domain.KindInvalidInput, "variant count must be at least 1, got %d", variantCount)
	}
	if err := CheckSource(sourcePath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, domain.Wrap(err, domain.KindProcessingFailure, "create output directory")
	}

	presets := p.selectPresets(variantCount)
	id := uuid.NewString()
	outputs := make([]string, variantCount)
	for i := range outputs {
		outputs[i] = filepath.Join(p.outputDir, fmt.Sprintf("generated_%s_%d.mp3", id, i))
	}

	results := make([]entities.GeneratedTrack, variantCount)
	g, gctx := errgroup.WithContext(ctx)
	for i := range presets {
		g.Go(func() error {
			start := time.Now()
			if err := p.renderer.Render(gctx, sourcePath, outputs[i], presets[i]); err != nil {
				return fmt.Errorf("variant %d (%s): %w", i, presets[i].Name, err)
			}
			results[i] = entities.GeneratedTrack{
				FilePath: outputs[i],
				Duration: p.duration(outputs[i]),
				Variant:  presets[i].Name,
			}
			p.logger.Info("Variant rendered",
				zap.String("preset", presets[i].Name),
				zap.String("output", outputs[i]),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.cleanup(outputs)
		p.logger.Error("Local processing failed",
			zap.String("source", sourcePath),
			zap.Error(err))
		return nil, domain.Wrap(err, domain.KindProcessingFailure, "audio processing failed")
	}

	return results, nil
}

// CheckSource returns a SourceNotFound error unless path is a readable file
func CheckSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Wrap(err, domain.KindSourceNotFound, "source audio not found")
		}
		return domain.Wrap(err, domain.KindSourceNotFound, "source audio not readable")
	}
	if info.IsDir() {
		return domain.NewError(domain.KindSourceNotFound, "source %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Wrap(err, domain.KindSourceNotFound, "source audio not readable")
	}
	return f.Close()
}

func (p *Processor) selectPresets(n int) []Preset {
	selected := make([]Preset, n)
	if p.policy == PolicyRandom {
		p.randMu.Lock()
		defer p.randMu.Unlock()
		for i := range selected {
			selected[i] = RandomPreset(p.rand)
		}
		return selected
	}
	for i := range selected {
		selected[i] = p.presets[i%len(p.presets)]
	}
	return selected
}

func (p *Processor) duration(path string) string {
	d, err := p.prober.Probe(path)
	if err != nil {
		p.logger.Warn("Failed to probe output duration",
			zap.String("output", path),
			zap.Error(err))
		return UnknownDuration
	}
	return entities.FormatDuration(d)
}

func (p *Processor) cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("Failed to remove partial output", zap.String("output", path), zap.Error(err))
		}
	}
}
