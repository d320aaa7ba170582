package api

import (
	"errors"
	"fmt"
)

// ErrInvalidResponse marks a 2xx response missing a field the client cannot
// proceed without (for example a created conversation with no id). Callers
// must treat it as a hard failure, never as empty data.
var ErrInvalidResponse = errors.New("api: invalid response")

// ErrMessageTooLong is returned before any network call when a chat message
// exceeds the configured limit.
var ErrMessageTooLong = errors.New("api: message exceeds maximum length")

// ErrEmptyMessage is returned when a chat message is blank after trimming.
var ErrEmptyMessage = errors.New("api: message is empty")

// APIError is a protocol failure: the server answered with a non-2xx status.
// Message carries the structured error body when the server sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: request failed with status %d", e.Status)
}

// IsNotFound reports whether err is a protocol failure with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

// IsUnauthorized reports whether err is a 401/403 protocol failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403)
}
