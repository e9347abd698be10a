// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many requests")
)

// Error codes exposed to clients.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

const internalMessage = "internal server error"

// Validation wraps ErrValidation with a client-facing reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify maps an error onto the status code, error code and message returned to clients.
// Unknown errors collapse into INTERNAL_ERROR with a generic message.
func Classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict, err.Error()
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden, err.Error()
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, err.Error()
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, internalMessage
	}
}

// RespondError maps domain errors to the error envelope. Internal errors are logged.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message := Classify(err)
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed", slog.Any("error", err))
	}
	Fail(w, status, code, message)
}
