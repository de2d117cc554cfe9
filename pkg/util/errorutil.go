package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewInvalidInput flags malformed input rejected before any external call.
func NewInvalidInput(message string) error {
	return NewDomainError("INVALID_INPUT", message, http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewStoreUnavailable wraps vector store connectivity failures. Callers
// degrade to an empty match list rather than failing the request.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "vector store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewUnknownTool flags a registry misconfiguration. This is a deployment
// bug, not a runtime condition, so it maps to a server error.
func NewUnknownTool(name string) error {
	return &DomainError{
		Code:       "UNKNOWN_TOOL",
		Message:    fmt.Sprintf("unknown tool %q", name),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewGenerationFailed wraps LLM backend failures. The resolution request as
// a whole fails when synthesis does.
func NewGenerationFailed(err error) error {
	return &DomainError{
		Code:       "GENERATION_FAILED",
		Message:    "answer generation failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
