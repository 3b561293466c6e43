package handlers

import (
	"errors"
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is the closed set of failures a handler can surface. Every
// handler either succeeds or returns exactly one of these; status codes
// are applied at the router boundary, never inside handlers.
type APIError struct {
	Status  int
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// BadRequest builds a 400-class client input error.
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

// Unauthorized builds a 401-class error (invalid request signature).
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: message}
}

// Internal builds a 500-class error wrapping the underlying cause.
func Internal(message string, cause error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message, cause: cause}
}

// AsAPIError classifies an arbitrary handler error. Anything that is not
// already an APIError becomes a generic 500 carrying the error text.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Status: http.StatusInternalServerError, Message: err.Error(), cause: err}
}
