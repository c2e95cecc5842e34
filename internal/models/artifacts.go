package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entity is implemented by every artifact that can be merged by id
type Entity interface {
	EntityID() int64
}

// ArtifactKind names one level of the generation hierarchy
type ArtifactKind string

const (
	KindEpic     ArtifactKind = "epic"
	KindStory    ArtifactKind = "story"
	KindQA       ArtifactKind = "qa"
	KindTestPlan ArtifactKind = "testplan"
)

// Upload represents a submitted requirement document
type Upload struct {
	ID                int64  `json:"id"`
	Filename          string `json:"filename"`
	CreatedAt         string `json:"created_at"`
	ConfluencePageURL string `json:"confluence_page_url,omitempty"`
}

// EntityID implements Entity
func (u Upload) EntityID() int64 { return u.ID }

// Epic represents a generated epic
type Epic struct {
	ID                  int64          `json:"id"`
	UploadID            int64          `json:"upload_id"`
	Name                string         `json:"name"`
	Content             map[string]any `json:"content,omitempty"`
	JiraKey             string         `json:"jira_key,omitempty"`
	JiraIssueID         string         `json:"jira_issue_id,omitempty"`
	JiraURL             string         `json:"jira_url,omitempty"`
	JiraCreationSuccess *bool          `json:"jira_creation_success,omitempty"`
	ConfluencePageURL   string         `json:"confluence_page_url,omitempty"`
	CreatedAt           string         `json:"created_at,omitempty"`
}

// EntityID implements Entity
func (e Epic) EntityID() int64 { return e.ID }

// Title returns the epic name, falling back to the generated content
func (e Epic) Title() string {
	if e.Name != "" {
		return e.Name
	}
	return contentString(e.Content, "name", "title")
}

// Description returns the generated description
func (e Epic) Description() string {
	return contentString(e.Content, "description")
}

// TechnicalImplementation returns the generated implementation notes, if any
func (e Epic) TechnicalImplementation() string {
	return contentString(e.Content, "technical_implementation", "technicalImplementation")
}

// SyncState derives the tracker sync state from the backend columns
func (e Epic) SyncState() SyncState {
	return deriveSyncState(e.JiraCreationSuccess, e.JiraKey, e.JiraURL)
}

// Story represents a generated user story
type Story struct {
	ID                  int64          `json:"id"`
	EpicID              int64          `json:"epic_id"`
	Name                string         `json:"name"`
	Content             map[string]any `json:"content,omitempty"`
	JiraKey             string         `json:"jira_key,omitempty"`
	JiraIssueID         string         `json:"jira_issue_id,omitempty"`
	JiraURL             string         `json:"jira_url,omitempty"`
	JiraCreationSuccess *bool          `json:"jira_creation_success,omitempty"`
	CreatedAt           string         `json:"created_at,omitempty"`
}

// EntityID implements Entity
func (s Story) EntityID() int64 { return s.ID }

// Title returns the story name, falling back to the generated content
func (s Story) Title() string {
	if s.Name != "" {
		return s.Name
	}
	return contentString(s.Content, "name", "title")
}

// Description returns the generated description
func (s Story) Description() string {
	return contentString(s.Content, "description")
}

// AcceptanceCriteria returns the acceptance criteria as newline separated text
func (s Story) AcceptanceCriteria() string {
	for _, key := range []string{"acceptance_criteria", "acceptanceCriteria"} {
		switch v := s.Content[key].(type) {
		case string:
			return v
		case []any:
			lines := make([]string, 0, len(v))
			for _, item := range v {
				lines = append(lines, fmt.Sprint(item))
			}
			return strings.Join(lines, "\n")
		}
	}
	return ""
}

// SyncState derives the tracker sync state from the backend columns
func (s Story) SyncState() SyncState {
	return deriveSyncState(s.JiraCreationSuccess, s.JiraKey, s.JiraURL)
}

// TestType classifies a QA test
type TestType string

const (
	TestFunctional    TestType = "functional"
	TestNonFunctional TestType = "non_functional"
	TestAPI           TestType = "api"
)

// Valid reports whether t is a known test type
func (t TestType) Valid() bool {
	switch t {
	case TestFunctional, TestNonFunctional, TestAPI:
		return true
	}
	return false
}

// QATest represents a generated QA test case. Content is either a JSON
// object or a plain string depending on how the backend stored it.
type QATest struct {
	ID        int64           `json:"id"`
	StoryID   int64           `json:"story_id"`
	Content   json.RawMessage `json:"content,omitempty"`
	TestType  TestType        `json:"test_type,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// EntityID implements Entity
func (q QATest) EntityID() int64 { return q.ID }

// Title returns the test title
func (q QATest) Title() string {
	return rawTitle(q.Content, "QA Test", 30)
}

// Description returns the test description
func (q QATest) Description() string {
	fields, text := decodeRaw(q.Content)
	if fields == nil {
		return truncate(text, 60)
	}
	return contentString(fields, "description", "test_case")
}

// TestPlan represents a generated test plan
type TestPlan struct {
	ID                int64           `json:"id"`
	EpicID            int64           `json:"epic_id"`
	Content           json.RawMessage `json:"content,omitempty"`
	ConfluencePageURL string          `json:"confluence_page_url,omitempty"`
	CreatedAt         string          `json:"created_at,omitempty"`
}

// EntityID implements Entity
func (p TestPlan) EntityID() int64 { return p.ID }

// Title returns the plan title
func (p TestPlan) Title() string {
	return rawTitle(p.Content, "Test Plan", 30)
}

// Page is one page of a paginated listing
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ListOptions controls pagination and sorting of listings
type ListOptions struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

func contentString(content map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := content[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// decodeRaw returns the object form of raw, or its text form when raw is a
// JSON string or not an object at all.
func decodeRaw(raw json.RawMessage) (map[string]any, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		return fields, ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		var nested map[string]any
		if err := json.Unmarshal([]byte(text), &nested); err == nil {
			return nested, ""
		}
		return nil, text
	}
	return nil, string(raw)
}

func rawTitle(raw json.RawMessage, fallback string, limit int) string {
	fields, text := decodeRaw(raw)
	if fields == nil {
		if text == "" {
			return fallback
		}
		return truncate(text, limit)
	}
	if title := contentString(fields, "title", "name"); title != "" {
		return title
	}
	return fallback
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
