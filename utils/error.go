package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error kinds. Services wrap client-visible failures in an AppError carrying
// one of these; anything else is treated as an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violated")
	// ErrUnavailable marks an optional integration that is not configured.
	ErrUnavailable = errors.New("service unavailable")
)

// AppError is an error that is safe to show to the client.
type AppError struct {
	Kind    error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// NewError creates an AppError of the given kind.
func NewError(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// NewValidationError creates a validation AppError tied to a request field.
func NewValidationError(field, message string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message, Field: field}
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBusinessRule):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

// ErrorHandler recovers panics and converts them into a generic 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
