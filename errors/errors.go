package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrInvalidPayload = fmt.Errorf("invalid event payload")

	// Message ingestion taxonomy. Validation errors are client-caused,
	// storage errors are server-caused; the split is applied by MapToHTTPStatus.
	ErrEmptyMessage       = fmt.Errorf("message or media must be provided")
	ErrInvalidMediaType   = fmt.Errorf("media type is not allowed")
	ErrPayloadTooLarge    = fmt.Errorf("media payload exceeds the size limit")
	ErrStorageWriteFailed = fmt.Errorf("media could not be written to the content volume")
	ErrPersistenceFailed  = fmt.Errorf("message could not be persisted")

	// ErrDeliveryFailed is never surfaced to a sender; it only feeds logs and counters.
	ErrDeliveryFailed = fmt.Errorf("message could not be delivered to a live connection")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrNotFound           = fmt.Errorf("not found")
	ErrMalformedRequest   = fmt.Errorf("request body could not be decoded")
)

// MapToHTTPStatus translates a domain error into the HTTP status served at the edge.
// Unknown errors default to 500 so that nothing server-side ever masquerades as
// a client mistake.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrInvalidMediaType),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
