package runs

import (
	"errors"
	"net/http"
)

// Run domain errors.
var (
	ErrNotFound     = errors.New("run not found")
	ErrDuplicate    = errors.New("run already recorded")
	ErrInvalidInput = errors.New("invalid run input")
)

// MapHTTPStatus returns the HTTP status code for a run error.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
