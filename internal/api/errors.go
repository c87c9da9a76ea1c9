package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors of the backend client.
var (
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrInvalidLocation = errors.New("invalid location")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("weather backend unavailable")
)

// Error is a failed backend operation. Message carries the text reported by the
// backend (its "detail" field) when there was one.
type Error struct {
	Op      string // Op is the operation, e.g. "list locations".
	Status  int    // Status is the HTTP status code, 0 when no response was received.
	Message string // Message is the backend's own description of the failure.
	Err     error  // Err is the underlying cause, if any.
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status > 0 {
		fmt.Fprintf(&b, ": backend returned status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the backend's message carried by err, or fallback when there is none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// statusError builds the error for a non-2xx response from its body.
func statusError(op string, status int, body []byte) *Error {
	apiErr := &Error{Op: op, Status: status, Message: parseDetail(body)}

	switch status {
	case http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Err = ErrUnauthorized
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Err = ErrUnavailable
	}

	return apiErr
}

// parseDetail extracts the "detail" member of an error body. The backend sends either a
// plain string or a list of validation errors, of which the first message is used.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}

	return ""
}
