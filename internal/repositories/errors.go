package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const genericMessage = "An unexpected error occurred. Please try again."

var (
	// ErrSessionExpired is returned when the access token could not be refreshed.
	// The local tokens have already been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrUnexpectedEnvelope is returned when a response body has none of the
	// accepted shapes for its endpoint.
	ErrUnexpectedEnvelope = errors.New("unexpected response envelope")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ExtractMessage returns the most specific error text in a backend error
// body: detail.error, then detail as a string, then the joined messages of
// a validation error list, then fallback.
func ExtractMessage(body []byte, fallback string) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return fallback
	}

	var structured struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(envelope.Detail, &structured); err == nil && structured.Error != "" {
		return structured.Error
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil && text != "" {
		return text
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	return fallback
}

func newAPIError(status int, body []byte, requestID string) *APIError {
	return &APIError{
		Status:    status,
		Message:   ExtractMessage(body, genericMessage),
		RequestID: requestID,
	}
}
