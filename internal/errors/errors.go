// Package errors provides structured error types for the campaign engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure classes.
var (
	ErrAuthFailure  = errors.New("authentication failed")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("collaborator unavailable")
	ErrGeneration   = errors.New("generation failed")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrTimeout      = errors.New("operation timed out")
)

// Envelope error codes returned to callers.
const (
	CodeValidation  = 400
	CodeAuth        = 401
	CodeNotFound    = 404
	CodeInternal    = 500
	CodeGeneration  = 502
	CodeUnavailable = 503
)

// FieldError reports a validation failure on a named input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// NewFieldError creates a validation error naming the offending field.
func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

// ProviderError represents a failure from an external collaborator call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d): %s: %v", e.Provider, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a collaborator error carrying a failure class sentinel.
func NewProviderError(provider string, statusCode int, message string, class error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Message: message, Err: class}
}

// Code maps an error to the envelope error code reported to callers.
func Code(err error) int {
	switch {
	case errors.Is(err, ErrAuthFailure):
		return CodeAuth
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrGeneration), errors.Is(err, ErrRateLimit), errors.Is(err, ErrTimeout):
		return CodeGeneration
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrGeneration) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}
