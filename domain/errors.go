package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can tell misconfiguration, missing
// sources and processing failures apart without parsing messages
type Kind string

const (
	KindUnknown              Kind = "unknown"
	KindConfig               Kind = "config"
	KindRemoteUnavailable    Kind = "remote_unavailable"
	KindTranscriptionFailure Kind = "transcription_failure"
	KindAnalysisParse        Kind = "analysis_parse"
	KindProcessingFailure    Kind = "processing_failure"
	KindSourceNotFound       Kind = "source_not_found"
	KindTrackNotFound        Kind = "track_not_found"
	KindInvalidInput         Kind = "invalid_input"
)

// Sentinel errors, one per kind. Match with errors.Is.
var (
	ErrNotConfigured       = &Error{Kind: KindConfig, Message: "remote service credential is not configured"}
	ErrRemoteUnavailable   = &Error{Kind: KindRemoteUnavailable, Message: "remote service unavailable"}
	ErrTranscriptionFailed = &Error{Kind: KindTranscriptionFailure, Message: "transcription failed"}
	ErrAnalysisParse       = &Error{Kind: KindAnalysisParse, Message: "malformed analysis response"}
	ErrProcessingFailed    = &Error{Kind: KindProcessingFailure, Message: "audio processing failed"}
	ErrSourceNotFound      = &Error{Kind: KindSourceNotFound, Message: "source audio not found"}
	ErrTrackNotFound       = &Error{Kind: KindTrackNotFound, Message: "track not found"}
	ErrInvalidUpload       = &Error{Kind: KindInvalidInput, Message: "invalid upload"}
	ErrUploadTooLarge      = &Error{Kind: KindInvalidInput, Message: "upload exceeds size limit"}
)

// Error is the structured error type shared across layers
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error { return e.Cause }

// Is matches on kind, so a wrapped ProcessingFailure matches ErrProcessingFailed.
// Upload sentinels share a kind and are told apart by message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.Kind == KindInvalidInput && t.Message != "" && e.Message != t.Message {
		return false
	}
	return true
}

// NewError creates an error of the given kind
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the kind of the first *Error in the chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
