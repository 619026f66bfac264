package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/ingest"
	"github.com/satriahrh/soundalike/internal/websocket"
)

// Generator is the generation use case as seen by the HTTP layer
type Generator interface {
	Generate(ctx context.Context, sourcePath string) (*entities.GenerationResult, error)
	Analyze(ctx context.Context, sourcePath string) (entities.MusicCharacteristics, error)
}

// Measurer computes duration and waveform for a stored file
type Measurer interface {
	Measure(path string) (duration string, waveform string)
}

// Handler serves the track API
type Handler struct {
	tracks           repositories.TrackRepository
	generator        Generator
	store            *ingest.Store
	measurer         Measurer
	events           repositories.EventPublisher
	remoteConfigured bool
	logger           *zap.Logger
}

// HandlerConfig collects the Handler dependencies
type HandlerConfig struct {
	Tracks           repositories.TrackRepository
	Generator        Generator
	Store            *ingest.Store
	Measurer         Measurer
	Events           repositories.EventPublisher
	RemoteConfigured bool
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

// NewHandler creates the track API handler
func NewHandler(config HandlerConfig, logger *zap.Logger) *Handler {
	events := config.Events
	if events == nil {
		events = noopPublisher{}
	}
	return &Handler{
		tracks:           config.Tracks,
		generator:        config.Generator,
		store:            config.Store,
		measurer:         config.Measurer,
		events:           events,
		remoteConfigured: config.RemoteConfigured,
		logger:           logger,
	}
}

// InitRoutes initializes all API routes. requireAuth guards mutating routes
// and may be nil when authentication is disabled.
func InitRoutes(e *echo.Echo, h *Handler, hub *websocket.Hub, requireAuth echo.MiddlewareFunc, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "soundalike",
		})
	})

	e.GET("/uploads/:file", h.serveUpload)

	var guard []echo.MiddlewareFunc
	if requireAuth != nil {
		guard = append(guard, requireAuth)
	}

	tracks := e.Group("/api/tracks")
	tracks.GET("", h.listTracks)
	tracks.GET("/:id", h.getTrack)
	tracks.POST("/upload", h.uploadTrack, guard...)
	tracks.POST("/generate", h.generateTrack, guard...)
	tracks.POST("/:id/analyze", h.analyzeTrack, guard...)
	tracks.DELETE("/:id", h.deleteTrack, guard...)

	if hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			return websocket.HandleWebSocket(hub, c, logger)
		})
	}
}

func (h *Handler) listTracks(c echo.Context) error {
	tracks, err := h.tracks.GetAll(c.Request().Context())
	if err != nil {
		return h.fail(c, "Failed to fetch tracks", err)
	}
	return c.JSON(http.StatusOK, tracks)
}

func (h *Handler) getTrack(c echo.Context) error {
	track, err := h.tracks.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "Failed to fetch track", err)
	}
	return c.JSON(http.StatusOK, track)
}

func (h *Handler) uploadTrack(c echo.Context) error {
	req := c.Request()
	// multipart framing overhead on top of the file itself
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.store.MaxBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return h.fail(c, "Upload rejected", domain.Wrap(err, domain.ErrUploadTooLarge.Kind, "%s", domain.ErrUploadTooLarge.Message))
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(domain.KindInvalidInput),
			Message: "No file uploaded",
		})
	}

	saved, err := h.store.Save(header)
	if err != nil {
		return h.fail(c, "Upload rejected", err)
	}

	duration, waveform := h.measurer.Measure(saved.Path)
	track := entities.NewTrack(saved.OriginalName, saved.Filename, duration)
	track.SetWaveform(waveform)

	if err := h.tracks.Create(req.Context(), track); err != nil {
		if rmErr := h.store.Remove(saved.Filename); rmErr != nil {
			h.logger.Warn("Failed to remove orphaned upload", zap.String("file", saved.Filename), zap.Error(rmErr))
		}
		return h.fail(c, "Failed to store track", err)
	}

	h.logger.Info("Track uploaded",
		zap.String("track_id", track.ID),
		zap.String("name", track.Name),
		zap.Int64("size", saved.Size))
	h.events.Publish(domain.NewEvent(domain.EventTrackCreated, track.ID, track))

	return c.JSON(http.StatusOK, track)
}

func (h *Handler) generateTrack(c echo.Context) error {
	if !h.remoteConfigured {
		return h.fail(c, "Generation rejected", domain.ErrNotConfigured)
	}

	var req GenerateRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(domain.KindInvalidInput),
			Message: "Track id is required",
		})
	}

	ctx := c.Request().Context()
	source, err := h.tracks.GetByID(ctx, req.ID)
	if err != nil {
		return h.fail(c, "Generation rejected", err)
	}

	h.events.Publish(domain.NewEvent(domain.EventGenerationStarted, source.ID, nil))

	result, err := h.generator.Generate(ctx, h.store.Resolve(source.FilePath))
	if err != nil {
		failed := domain.NewEvent(domain.EventGenerationFailed, source.ID, nil)
		failed.Error = string(domain.KindOf(err))
		h.events.Publish(failed)
		return h.fail(c, "Music generation failed", err)
	}

	created := make([]*entities.Track, 0, len(result.Tracks))
	for _, generated := range result.Tracks {
		generated.FilePath = filepath.Base(generated.FilePath)
		track := entities.NewGeneratedTrack(source, generated)
		if _, waveform := h.measurer.Measure(h.store.Resolve(generated.FilePath)); waveform != "" {
			track.SetWaveform(waveform)
		}

		if err := h.tracks.Create(ctx, track); err != nil {
			h.discardGenerated(ctx, created, result.Tracks)
			failed := domain.NewEvent(domain.EventGenerationFailed, source.ID, nil)
			failed.Error = string(domain.KindOf(err))
			h.events.Publish(failed)
			return h.fail(c, "Failed to store generated track", err)
		}
		created = append(created, track)
	}
	for _, track := range created {
		h.events.Publish(domain.NewEvent(domain.EventTrackCreated, track.ID, track))
	}

	h.logger.Info("Generation stored",
		zap.String("source_id", source.ID),
		zap.Int("tracks", len(created)),
		zap.Bool("remote", result.Remote))
	h.events.Publish(domain.NewEvent(domain.EventGenerationCompleted, source.ID, map[string]any{
		"tracks": len(created),
		"remote": result.Remote,
	}))

	return c.JSON(http.StatusOK, created)
}

// discardGenerated rolls back a partially stored generation: every track
// already created and every rendered file.
func (h *Handler) discardGenerated(ctx context.Context, created []*entities.Track, generated []entities.GeneratedTrack) {
	for _, track := range created {
		if err := h.tracks.Delete(ctx, track.ID); err != nil {
			h.logger.Warn("Failed to roll back generated track", zap.String("track_id", track.ID), zap.Error(err))
		}
	}
	for _, g := range generated {
		if err := h.store.Remove(filepath.Base(g.FilePath)); err != nil {
			h.logger.Warn("Failed to remove generated file", zap.String("file", g.FilePath), zap.Error(err))
		}
	}
}

func (h *Handler) analyzeTrack(c echo.Context) error {
	if !h.remoteConfigured {
		return h.fail(c, "Analysis rejected", domain.ErrNotConfigured)
	}

	ctx := c.Request().Context()
	track, err := h.tracks.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, "Analysis rejected", err)
	}

	characteristics, err := h.generator.Analyze(ctx, h.store.Resolve(track.FilePath))
	if err != nil {
		return h.fail(c, "Analysis failed", err)
	}

	return c.JSON(http.StatusOK, AnalyzeResponse{
		TrackID:         track.ID,
		Characteristics: characteristics,
	})
}

func (h *Handler) deleteTrack(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	track, err := h.tracks.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, "Delete rejected", err)
	}
	if err := h.tracks.Delete(ctx, id); err != nil {
		return h.fail(c, "Failed to delete track", err)
	}
	if err := h.store.Remove(track.FilePath); err != nil {
		h.logger.Warn("Failed to remove track file", zap.String("track_id", id), zap.Error(err))
	}

	h.events.Publish(domain.NewEvent(domain.EventTrackDeleted, id, nil))
	return c.NoContent(http.StatusNoContent)
}

// serveUpload serves stored files with an audio content type
func (h *Handler) serveUpload(c echo.Context) error {
	name := filepath.Base(c.Param("file"))
	if contentType, ok := ingest.ContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		c.Response().Header().Set(echo.HeaderContentType, contentType)
	}
	return c.File(h.store.Resolve(name))
}

func (h *Handler) fail(c echo.Context, msg string, err error) error {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, body)
}
