package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/internal/api"
	"github.com/satriahrh/soundalike/internal/audio"
	"github.com/satriahrh/soundalike/internal/auth"
	"github.com/satriahrh/soundalike/internal/config"
	"github.com/satriahrh/soundalike/internal/ingest"
	"github.com/satriahrh/soundalike/internal/websocket"
)

func runServe(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracks, closeTracks, err := newTrackRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTracks(context.Background())

	store, err := ingest.NewStore(cfg.UploadsDir, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	generation, err := newGenerationService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	var requireAuth echo.MiddlewareFunc
	if cfg.AuthEnabled() {
		issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return err
		}
		requireAuth = auth.Middleware(issuer, logger)
	} else {
		logger.Warn("JWT_SECRET not set, API mutations are unauthenticated")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := api.NewHandler(api.HandlerConfig{
		Tracks:           tracks,
		Generator:        generation,
		Store:            store,
		Measurer:         audio.NewMeasurer(audio.MP3Prober{}, audio.DefaultWaveformBuckets, logger),
		Events:           hub,
		RemoteConfigured: cfg.RemoteConfigured(),
	}, logger)
	api.InitRoutes(e, handler, hub, requireAuth, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageBackend),
		zap.String("stt", cfg.STTProvider),
		zap.Bool("remote", cfg.RemoteConfigured()))

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}
