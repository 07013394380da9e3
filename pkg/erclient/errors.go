package erclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error is the single failure value returned by Client calls.
//
// When the backend answered with a JSON error body, Payload holds that body
// verbatim. Otherwise Payload is empty and Status/Message are synthesized from
// the HTTP status line or the transport failure.
type Error struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"-"`
	Err     error           `json:"-"`
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("erclient: %s", e.Message)
	}
	return fmt.Sprintf("erclient: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// FromServer reports whether the payload came from the backend.
func (e *Error) FromServer() bool { return len(e.Payload) > 0 }

// Body returns the error payload as surfaced to callers: the server JSON body
// when there was one, otherwise {"status":..,"message":..}.
func (e *Error) Body() json.RawMessage {
	if e.FromServer() {
		return e.Payload
	}
	b, _ := json.Marshal(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{e.Status, e.Message})
	return b
}

// NewResponseError builds the error for a non-2xx response. A body that
// parses as JSON becomes the payload unchanged; anything else falls back to
// the status code and status text.
func NewResponseError(status int, statusText string, body []byte) *Error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return &Error{
			Status:  status,
			Message: messageFromPayload([]byte(trimmed), statusText),
			Payload: json.RawMessage(trimmed),
		}
	}
	return &Error{Status: status, Message: statusText}
}

func newTransportError(err error) *Error {
	return &Error{Message: err.Error(), Err: err}
}

func newDecodeError(status int, statusText string, err error) *Error {
	return &Error{Status: status, Message: statusText, Err: fmt.Errorf("decode response: %w", err)}
}

// messageFromPayload picks a human readable message out of a JSON error
// object, preferring "message" over "error".
func messageFromPayload(payload []byte, fallback string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return fallback
	}
	for _, key := range []string{"message", "error"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return fallback
}

// statusText extracts the reason phrase from a response status line such as
// "404 Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// IsStatus reports whether err is an *Error carrying the given HTTP status.
func IsStatus(err error, status int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Status == status
	}
	return false
}

// AsError unwraps err to an *Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
