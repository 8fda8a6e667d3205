package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthExpired means the game API rejected the token (401).
	ErrAuthExpired = errors.New("session expired or invalid")
	// ErrNotFound is a 404. Collection reads treat it as an empty result.
	ErrNotFound = errors.New("not found")
	// ErrNetwork means the request never got a response.
	ErrNetwork = errors.New("network error")
	// ErrDecode means the response body could not be parsed.
	ErrDecode = errors.New("malformed response")
)

// APIError is a non-2xx answer from the game API. Message carries the
// server's "error" field verbatim when present.
type APIError struct {
	Status  int
	Message string
	Detail  string // "message" field, some endpoints use it instead of "error"
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets callers match status-derived sentinels with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthExpired:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// ServerMessage returns the server-provided error text, or "" when the
// failure carried none (network errors, bare status codes).
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// ServerDetail is ServerMessage falling back to the reply's "message"
// field, for endpoints that report failures there.
func ServerDetail(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return apiErr.Detail
}

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
