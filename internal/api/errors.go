package api

import (
	"errors"
	"net/http"

	"github.com/satriahrh/soundalike/domain"
)

// errorStatus maps a domain error to the HTTP status and the message shown
// to API clients. Internal error text is only logged.
func errorStatus(err error) (int, ErrorResponse) {
	if errors.Is(err, domain.ErrUploadTooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "upload_too_large",
			Message: "File exceeds the upload size limit.",
		}
	}

	switch domain.KindOf(err) {
	case domain.KindConfig:
		return http.StatusBadRequest, ErrorResponse{
			Error:   string(domain.KindConfig),
			Message: "Remote API key not configured. Please configure the API key to use music generation.",
		}
	case domain.KindInvalidInput:
		return http.StatusBadRequest, ErrorResponse{
			Error:   string(domain.KindInvalidInput),
			Message: invalidInputMessage(err),
		}
	case domain.KindTrackNotFound:
		return http.StatusNotFound, ErrorResponse{
			Error:   string(domain.KindTrackNotFound),
			Message: "Source track not found",
		}
	case domain.KindSourceNotFound:
		return http.StatusNotFound, ErrorResponse{
			Error:   string(domain.KindSourceNotFound),
			Message: "Source audio file not found",
		}
	case domain.KindRemoteUnavailable, domain.KindTranscriptionFailure, domain.KindAnalysisParse:
		return http.StatusBadGateway, ErrorResponse{
			Error:   string(domain.KindOf(err)),
			Message: "The analysis service could not process this track. Please try again later.",
		}
	case domain.KindProcessingFailure:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   string(domain.KindProcessingFailure),
			Message: "Failed to generate music. Please try again later or contact support if the issue persists.",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		}
	}
}

// invalidInputMessage exposes upload validation details, which are written
// for clients, and hides everything else
func invalidInputMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidUpload) {
		return "Invalid file. Only non-empty MP3, WAV, and OGG files are allowed."
	}
	return "Invalid request"
}
