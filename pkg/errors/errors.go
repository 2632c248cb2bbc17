// Package errors provides structured error types for the workouts backend.
//
// All errors should use these types to enable consistent error handling,
// logging, and retry logic across the codebase.
package errors

import (
	"fmt"
)

// ErrorCode represents a unique error identifier for categorization.
type ErrorCode string

// Common error codes used throughout the resolution pipeline.
const (
	// Upstream exercise database errors
	CodeUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	CodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	CodeUpstreamBadResponse ErrorCode = "UPSTREAM_BAD_RESPONSE"

	// Quota errors
	CodeQuotaExhausted ErrorCode = "QUOTA_EXHAUSTED"

	// Cache/resolution errors
	CodeExerciseNotFound ErrorCode = "EXERCISE_NOT_FOUND"
	CodeMappingConflict  ErrorCode = "MAPPING_CONFLICT"

	// Infrastructure errors
	CodeStorageError ErrorCode = "STORAGE_ERROR"
	CodePubSubError  ErrorCode = "PUBSUB_ERROR"
	CodeSecretError  ErrorCode = "SECRET_ERROR"
	CodeMediaError   ErrorCode = "MEDIA_ERROR"

	// General errors
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// ResolutionError is the base error type for this codebase.
// It provides structured error information including error codes,
// retry semantics, and contextual metadata.
type ResolutionError struct {
	Code      ErrorCode         // Unique error code for categorization
	Message   string            // Human-readable error message
	Cause     error             // Underlying error (if any)
	Retryable bool              // Whether the operation can be retried
	Metadata  map[string]string // Additional context
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so copies produced by WithCause/WithMessage still
// satisfy errors.Is against the sentinels below.
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *ResolutionError) WithCause(cause error) *ResolutionError {
	return &ResolutionError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessage adds a custom message.
func (e *ResolutionError) WithMessage(msg string) *ResolutionError {
	return &ResolutionError{
		Code:      e.Code,
		Message:   msg,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMetadata adds contextual metadata.
func (e *ResolutionError) WithMetadata(key, value string) *ResolutionError {
	meta := make(map[string]string)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	return &ResolutionError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  meta,
	}
}

// Pre-defined sentinel errors for common cases.
// Use these with errors.Is() or wrap them with .WithCause().
var (
	// Upstream errors
	ErrUpstreamRateLimited = &ResolutionError{Code: CodeUpstreamRateLimited, Message: "upstream rate limited", Retryable: true}
	ErrUpstreamUnavailable = &ResolutionError{Code: CodeUpstreamUnavailable, Message: "upstream unreachable", Retryable: true}
	ErrUpstreamError       = &ResolutionError{Code: CodeUpstreamError, Message: "upstream request failed", Retryable: false}
	ErrUpstreamBadResponse = &ResolutionError{Code: CodeUpstreamBadResponse, Message: "upstream response could not be decoded", Retryable: false}

	// Quota errors
	ErrQuotaExhausted = &ResolutionError{Code: CodeQuotaExhausted, Message: "api call quota exhausted", Retryable: true}

	// Cache/resolution errors
	ErrExerciseNotFound = &ResolutionError{Code: CodeExerciseNotFound, Message: "exercise not found", Retryable: false}
	ErrMappingConflict  = &ResolutionError{Code: CodeMappingConflict, Message: "conflicting name mapping", Retryable: false}

	// Infrastructure errors
	ErrStorageError = &ResolutionError{Code: CodeStorageError, Message: "storage error", Retryable: true}
	ErrPubSubError  = &ResolutionError{Code: CodePubSubError, Message: "pubsub error", Retryable: true}
	ErrSecretError  = &ResolutionError{Code: CodeSecretError, Message: "secret access error", Retryable: true}
	ErrMediaError   = &ResolutionError{Code: CodeMediaError, Message: "media mirroring error", Retryable: true}

	// General errors
	ErrValidation = &ResolutionError{Code: CodeValidationError, Message: "validation error", Retryable: false}
	ErrInternal   = &ResolutionError{Code: CodeInternalError, Message: "internal error", Retryable: false}
)

// New creates a new ResolutionError with the given code and message.
func New(code ErrorCode, message string) *ResolutionError {
	return &ResolutionError{
		Code:    code,
		Message: message,
	}
}
