package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"requirement-analyzer/internal/models"
)

// AuthAPI is the backend's authentication surface
type AuthAPI interface {
	Login(ctx context.Context, in models.LoginRequest) (*models.Tokens, error)
	Register(ctx context.Context, in models.RegisterRequest) (*models.Tokens, error)
	Me(ctx context.Context) (*models.User, error)
}

// AuthSession stores the tokens and profile of the logged in user
type AuthSession interface {
	SetTokens(ctx context.Context, access, refresh string) error
	SetUser(ctx context.Context, user *models.User) error
	Clear(ctx context.Context) error
}

// AuthService logs users in and out. Both transitions start from a clean
// workspace so one user's selections never leak into the next session.
type AuthService struct {
	api   AuthAPI
	sess  AuthSession
	ws    *Workspace
	creds *CredentialService
}

// NewAuthService creates an auth service
func NewAuthService(api AuthAPI, sess AuthSession, ws *Workspace, creds *CredentialService) *AuthService {
	return &AuthService{api: api, sess: sess, ws: ws, creds: creds}
}

// Login authenticates and starts a fresh session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}

	tokens, err := s.api.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.start(ctx, tokens)
}

// Register creates an account and starts a fresh session for it
func (s *AuthService) Register(ctx context.Context, in models.RegisterRequest) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateLogin(in.Email, in.Password); err != nil {
		return nil, err
	}

	tokens, err := s.api.Register(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return s.start(ctx, tokens)
}

// Logout clears the whole session
func (s *AuthService) Logout(ctx context.Context) error {
	return s.wipe(ctx)
}

// wipe drops the selections, cached credentials and everything the session
// store holds for the current user
func (s *AuthService) wipe(ctx context.Context) error {
	if err := s.ws.Reset(ctx); err != nil {
		return err
	}
	s.creds.Forget()
	return s.sess.Clear(ctx)
}

// Me returns the profile of the logged in user
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, s.sess.SetUser(ctx, user)
}

func (s *AuthService) start(ctx context.Context, tokens *models.Tokens) (*models.User, error) {
	if err := s.wipe(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear previous session: %w", err)
	}
	if err := s.sess.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s.Me(ctx)
}

func validateLogin(email, password string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}
