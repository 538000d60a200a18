package requests

import (
	"errors"
	"net/http"
)

// Request domain errors.
var (
	ErrNotFound     = errors.New("request not found")
	ErrDuplicate    = errors.New("request already exists")
	ErrInvalidInput = errors.New("invalid request input")
	ErrNotActive    = errors.New("request is not active")
)

// MapHTTPStatus returns the HTTP status code for a request error.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
