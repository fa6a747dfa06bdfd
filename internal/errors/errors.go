package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Input rejected before touching the store
	ErrCodeValidation = "VALIDATION_ERROR"

	// Credential and session errors
	ErrCodeAuth         = "AUTH_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"

	// Store I/O failed; never retried
	ErrCodeStore = "STORE_ERROR"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError is the error type shared by the controllers and the HTTP adapter.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	err error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.err
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// Validation creates a field-level validation error.
func Validation(field, message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Auth creates a session-level authentication error.
func Auth(message string) *APIError {
	return NewAPIError(ErrCodeAuth, message)
}

// Store wraps a store I/O failure for the operation op.
func Store(op string, err error) *APIError {
	return &APIError{
		Code:    ErrCodeStore,
		Message: "failed to " + op,
		err:     err,
	}
}

// CodeOf returns the code of the first APIError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) string {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrCodeInternalError
}

func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }
func IsAuth(err error) bool       { return CodeOf(err) == ErrCodeAuth }
func IsStore(err error) bool      { return CodeOf(err) == ErrCodeStore }

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Respond maps err to a status code by its APIError code.
// Store failures are reported without the underlying cause.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		InternalError(c, "")
		return
	}

	switch apiErr.Code {
	case ErrCodeValidation:
		RespondWithError(c, http.StatusBadRequest, apiErr)
	case ErrCodeAuth, ErrCodeUnauthorized:
		RespondWithError(c, http.StatusUnauthorized, apiErr)
	case ErrCodeNotFound:
		RespondWithError(c, http.StatusNotFound, apiErr)
	case ErrCodeStore:
		RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeStore, apiErr.Message))
	default:
		InternalError(c, apiErr.Message)
	}
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, Validation("", message))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, Auth(message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
