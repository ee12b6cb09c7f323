package endpoints

import (
	"errors"
	"net/http"
)

// Error texts are part of the HTTP contract and are returned to callers verbatim.
var (
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrInvalidValue       = errors.New("Invalid value - must be a number")
	ErrInvalidTimestamp   = errors.New("Invalid timestamp - must be RFC 3339")
	ErrInvalidRequestBody = errors.New("Invalid request body")
	ErrMethodNotAllowed   = errors.New("Method not allowed")
	ErrNotFound           = errors.New("Not found")
	ErrCreateFailed       = errors.New("Failed to create metric")
	ErrFetchFailed        = errors.New("Failed to fetch metrics")
	ErrResetFailed        = errors.New("Failed to reset metrics")
	ErrStoreUnavailable   = errors.New("Store unavailable")
)

func GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrInvalidTimestamp),
		errors.Is(err, ErrInvalidRequestBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError // create, fetch, reset and anything unhandled
	}
}
