// Package apierr defines the typed error taxonomy shared by stages and
// services, and the single conversion point to HTTP responses.
package apierr

import (
	"errors"
	"net/http"
)

// Error is a typed service/stage failure. Extra carries additional
// response fields (e.g. retry_after on 429).
type Error struct {
	Status  int
	Message string
	Extra   map[string]any
}

func (e *Error) Error() string { return e.Message }

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func TooManyRequests(message string, retryAfter int64) *Error {
	return &Error{
		Status:  http.StatusTooManyRequests,
		Message: message,
		Extra:   map[string]any{"retry_after": retryAfter},
	}
}

func Internal(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

// As unwraps err into *Error if it is one.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
