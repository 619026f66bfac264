package main

import (
	"context"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/internal/config"
)

func runGenerate(ctx context.Context, envFile, source string, out io.Writer) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	generation, err := newGenerationService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := generation.Generate(ctx, source)
	if err != nil {
		logger.Error("Generation failed", zap.String("source", source), zap.Error(err))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
