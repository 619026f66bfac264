package api

import (
	"github.com/satriahrh/soundalike/domain/entities"
)

// GenerateRequest is the payload of POST /api/tracks/generate
type GenerateRequest struct {
	ID string `json:"id"`
}

// AnalyzeResponse is returned by POST /api/tracks/:id/analyze
type AnalyzeResponse struct {
	TrackID         string                        `json:"trackId"`
	Characteristics entities.MusicCharacteristics `json:"characteristics"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
