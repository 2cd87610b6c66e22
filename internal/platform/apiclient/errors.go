package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched by errors.Is against *Error.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidResponse = errors.New("invalid response format")
)

// Kind classifies a failed request.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
	case KindDecode:
		if e.Err != nil {
			return fmt.Sprintf("apiclient: %s: %v", e.Message, e.Err)
		}
		return "apiclient: " + e.Message
	default:
		if e.Err != nil {
			return "apiclient: " + e.Err.Error()
		}
		return "apiclient: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int { return e.Status }

// UserMessage is the human-readable text shown to the user.
func (e *Error) UserMessage() string { return e.Message }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrInvalidResponse:
		return e.Kind == KindDecode
	}
	return false
}

var statusMessages = map[int]string{
	http.StatusBadRequest:            "Invalid request. Please check the submitted data.",
	http.StatusUnauthorized:          "Your session has expired. Please sign in again.",
	http.StatusForbidden:             "You do not have permission to perform this action.",
	http.StatusNotFound:              "The requested resource was not found.",
	http.StatusConflict:              "This record conflicts with existing data.",
	http.StatusRequestEntityTooLarge: "The file is too large.",
	http.StatusUnsupportedMediaType:  "Unsupported file type.",
	http.StatusUnprocessableEntity:   "The submitted data could not be processed.",
	http.StatusInternalServerError:   "Internal server error. Please try again later.",
	http.StatusServiceUnavailable:    "Service temporarily unavailable. Please try again later.",
}

const (
	unknownStatusMessage = "An unexpected error occurred."
	transportMessage     = "Unable to reach the server. Please check your connection."
	canceledMessage      = "The request was cancelled."
	timeoutMessage       = "The server took too long to respond."
)

// StatusMessage returns the fixed user message for status.
func StatusMessage(status int) string {
	if m, ok := statusMessages[status]; ok {
		return m
	}
	return unknownStatusMessage
}

// errorEnvelope is the error body shape produced by the backend. Errors may
// be plain strings or {message} objects.
type errorEnvelope struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  []json.RawMessage `json:"errors"`
}

// NewStatusError builds the error for a non-2xx response. A message found in
// the body overrides the status table.
func NewStatusError(status int, body []byte) *Error {
	msg := envelopeMessage(body)
	if msg == "" {
		msg = StatusMessage(status)
	}
	return &Error{Kind: KindStatus, Status: status, Message: msg}
}

func envelopeMessage(body []byte) string {
	var env errorEnvelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Errors) > 0 {
		parts := make([]string, 0, len(env.Errors))
		for _, raw := range env.Errors {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				if s != "" {
					parts = append(parts, s)
				}
				continue
			}
			var obj struct {
				Message        string `json:"message"`
				DefaultMessage string `json:"defaultMessage"`
			}
			if json.Unmarshal(raw, &obj) == nil {
				if obj.Message != "" {
					parts = append(parts, obj.Message)
				} else if obj.DefaultMessage != "" {
					parts = append(parts, obj.DefaultMessage)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return env.Error
}

func newTransportError(err error) *Error {
	msg := transportMessage
	switch {
	case errors.Is(err, context.Canceled):
		msg = canceledMessage
	case errors.Is(err, context.DeadlineExceeded):
		msg = timeoutMessage
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

func newDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: ErrInvalidResponse.Error(), Err: err}
}
