package resources

import (
	"errors"
	"net/http"
)

// Domain errors for resource operations.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicate     = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid resource input")
	ErrInvalidStatus = errors.New("invalid resource status")
)

// MapHTTPStatus maps resource domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidStatus) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
