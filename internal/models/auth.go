package models

// Tokens is the response of the login, register and refresh endpoints
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id,omitempty"`
	Email        string `json:"email,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// User is the profile returned by GET /auth/me
type User struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// SearchResult is one hit of the vector-store search
type SearchResult struct {
	Text                 string         `json:"text"`
	FullText             string         `json:"full_text,omitempty"`
	SimilarityPercentage float64        `json:"similarity_percentage"`
	Source               string         `json:"source"`
	Type                 string         `json:"type"`
	DocumentID           string         `json:"document_id,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// DisplayText returns the text to show for the hit
func (r SearchResult) DisplayText() string {
	if r.Text != "" {
		return r.Text
	}
	if r.FullText != "" {
		return r.FullText
	}
	return "No content available"
}
