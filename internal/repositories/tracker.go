package repositories

import (
	"context"
	"fmt"
	"net/http"

	"requirement-analyzer/internal/models"
)

// TrackerRepository handles the backend's Jira integration endpoints
type TrackerRepository struct {
	client *Client
}

// NewTrackerRepository creates a new tracker repository
func NewTrackerRepository(client *Client) *TrackerRepository {
	return &TrackerRepository{client: client}
}

// CreateEpic creates an epic issue in Jira and records it against the epic
func (r *TrackerRepository) CreateEpic(ctx context.Context, in models.CreateEpicRequest) (*models.JiraIssue, error) {
	return r.createIssue(ctx, "/api/jira/create-epic", in)
}

// CreateStory creates a story issue linked to its parent epic issue
func (r *TrackerRepository) CreateStory(ctx context.Context, in models.CreateStoryRequest) (*models.JiraIssue, error) {
	return r.createIssue(ctx, "/api/jira/create-story-jira", in)
}

func (r *TrackerRepository) createIssue(ctx context.Context, path string, payload interface{}) (*models.JiraIssue, error) {
	req, err := jsonRequest(http.MethodPost, path, path, payload)
	if err != nil {
		return nil, err
	}

	var issue models.JiraIssue
	if err := r.client.doJSON(ctx, req, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// MarkEpicFailed records a failed tracker creation for an epic
func (r *TrackerRepository) MarkEpicFailed(ctx context.Context, epicID int64) error {
	return r.post(ctx, "/api/jira/mark-epic-failed", map[string]int64{"epic_id": epicID}, nil)
}

// MarkStoryFailed records a failed tracker creation for a story
func (r *TrackerRepository) MarkStoryFailed(ctx context.Context, storyID int64) error {
	return r.post(ctx, "/api/jira/mark-story-failed", map[string]int64{"story_id": storyID}, nil)
}

// SaveCredentials stores the user's Jira credentials on the backend
func (r *TrackerRepository) SaveCredentials(ctx context.Context, creds models.JiraCredentials) error {
	return r.post(ctx, "/api/jira/save-credentials", creds, nil)
}

// GetCredentials returns the stored Jira credentials, or nil when none are configured
func (r *TrackerRepository) GetCredentials(ctx context.Context) (*models.JiraCredentials, error) {
	var resp struct {
		Status      string                  `json:"status"`
		Credentials *models.JiraCredentials `json:"credentials"`
	}
	req := getRequest("/api/jira/get-credentials", "/api/jira/get-credentials", nil)
	if err := r.client.doJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Credentials, nil
}

// DeleteCredentials removes the stored Jira credentials
func (r *TrackerRepository) DeleteCredentials(ctx context.Context) error {
	req := request{
		method: http.MethodDelete,
		path:   "/api/jira/delete-credentials",
		route:  "/api/jira/delete-credentials",
	}
	_, err := r.client.do(ctx, req)
	return err
}

// TestConnection checks the credentials against Jira through the backend
func (r *TrackerRepository) TestConnection(ctx context.Context, creds models.JiraCredentials) (*models.JiraConnection, error) {
	var conn models.JiraConnection
	if err := r.post(ctx, "/api/jira/test-connection", creds, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *TrackerRepository) post(ctx context.Context, path string, payload, out interface{}) error {
	req, err := jsonRequest(http.MethodPost, path, path, payload)
	if err != nil {
		return err
	}
	if err := r.client.doJSON(ctx, req, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
