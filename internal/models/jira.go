package models

import (
	"fmt"
	"strings"
)

// JiraCredentials represents the tracker credentials stored for the user
type JiraCredentials struct {
	URL        string `json:"jira_url"`
	Username   string `json:"jira_username"`
	APIToken   string `json:"jira_api_token"`
	ProjectKey string `json:"jira_project_key"`
}

// Complete reports whether every field is filled in
func (c *JiraCredentials) Complete() bool {
	return c != nil && c.Validate() == nil
}

// Validate checks the credentials before anything is sent to the backend
func (c *JiraCredentials) Validate() error {
	if c == nil {
		return fmt.Errorf("Jira credentials are not configured")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("Jira URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("Jira URL must start with http:// or https://")
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("Jira username/email is required")
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return fmt.Errorf("Jira API token is required")
	}
	if strings.TrimSpace(c.ProjectKey) == "" {
		return fmt.Errorf("Jira project key is required")
	}
	return nil
}

// Masked returns a copy safe to print
func (c JiraCredentials) Masked() JiraCredentials {
	if len(c.APIToken) > 4 {
		c.APIToken = strings.Repeat("*", len(c.APIToken)-4) + c.APIToken[len(c.APIToken)-4:]
	} else if c.APIToken != "" {
		c.APIToken = "****"
	}
	return c
}

// CreateEpicRequest is the body of POST /api/jira/create-epic
type CreateEpicRequest struct {
	JiraCredentials
	EpicName                string `json:"epic_name"`
	EpicDescription         string `json:"epic_description"`
	TechnicalImplementation string `json:"technical_implementation,omitempty"`
	EpicID                  int64  `json:"epic_id,omitempty"`
}

// CreateStoryRequest is the body of POST /api/jira/create-story-jira
type CreateStoryRequest struct {
	JiraCredentials
	StoryName               string `json:"story_name"`
	StoryDescription        string `json:"story_description"`
	StoryAcceptanceCriteria string `json:"story_acceptance_criteria,omitempty"`
	StoryID                 int64  `json:"story_id,omitempty"`
	EpicID                  int64  `json:"epic_id,omitempty"`
	EpicJiraKey             string `json:"epic_jira_key"`
	EpicJiraIssueID         string `json:"epic_jira_issue_id"`
}

// JiraIssue is the tracker reference returned by the create endpoints
type JiraIssue struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

// JiraConnection is the result of POST /api/jira/test-connection
type JiraConnection struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	User    string `json:"user"`
}
