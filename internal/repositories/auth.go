package repositories

import (
	"context"
	"net/http"

	"requirement-analyzer/internal/models"
)

// AuthRepository handles the backend's authentication endpoints
type AuthRepository struct {
	client *Client
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(client *Client) *AuthRepository {
	return &AuthRepository{client: client}
}

// Login exchanges email and password for a token pair
func (r *AuthRepository) Login(ctx context.Context, in models.LoginRequest) (*models.Tokens, error) {
	return r.tokens(ctx, "/auth/login", in)
}

// Register creates an account and returns its token pair
func (r *AuthRepository) Register(ctx context.Context, in models.RegisterRequest) (*models.Tokens, error) {
	return r.tokens(ctx, "/auth/register", in)
}

// Me returns the profile of the logged in user
func (r *AuthRepository) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := r.client.doJSON(ctx, getRequest("/auth/me", "/auth/me", nil), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) tokens(ctx context.Context, path string, payload interface{}) (*models.Tokens, error) {
	req, err := jsonRequest(http.MethodPost, path, path, payload)
	if err != nil {
		return nil, err
	}
	req.public = true

	var tokens models.Tokens
	if err := r.client.doJSON(ctx, req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}
