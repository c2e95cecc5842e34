package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"requirement-analyzer/internal/repositories"
)

var (
	// ErrNotSelected is returned when an action needs a parent that is not selected
	ErrNotSelected = errors.New("no parent selected")

	// ErrAlreadyGenerated is returned when a single-batch artifact already exists
	ErrAlreadyGenerated = errors.New("already generated")

	// ErrCredentialsNotConfigured is returned when a tracker action runs without credentials
	ErrCredentialsNotConfigured = errors.New("Jira credentials not configured")

	// ErrParentNotSynced is returned when a story is pushed before its epic
	ErrParentNotSynced = errors.New("parent epic is not synced to Jira")

	// ErrEmptyQuery is returned by Search for a blank query
	ErrEmptyQuery = errors.New("search query is empty")
)

// ValidationError is an input problem caught before any request is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CapError reports that QA regeneration for a story hit one of its limits
type CapError struct {
	StoryID  int64
	Attempts int
	Results  int
}

func (e *CapError) Error() string {
	if e.Attempts >= MaxQAAttempts {
		return fmt.Sprintf("QA generation limit reached for story %d (%d/%d attempts)", e.StoryID, e.Attempts, MaxQAAttempts)
	}
	return fmt.Sprintf("story %d already has %d QA tests (limit %d)", e.StoryID, e.Results, MaxQAResults)
}

// UserMessage returns the text shown to the user for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *repositories.APIError
	var validation *ValidationError
	var capErr *CapError
	var urlErr *url.Error
	var netErr net.Error

	switch {
	case errors.Is(err, repositories.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, context.Canceled):
		return "Operation cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &capErr):
		return capErr.Error()
	case errors.Is(err, ErrParentNotSynced):
		return "Parent epic must be synced to Jira before its stories can be created"
	case errors.Is(err, ErrCredentialsNotConfigured):
		return "Jira credentials not configured. Run 'requirement-analyzer jira save' first."
	case errors.Is(err, ErrNotSelected), errors.Is(err, ErrAlreadyGenerated), errors.Is(err, ErrEmptyQuery):
		return err.Error()
	case errors.Is(err, repositories.ErrUnexpectedEnvelope):
		return "The server returned an unexpected response"
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return "Network error: unable to reach the server"
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}
