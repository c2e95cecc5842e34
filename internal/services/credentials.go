package services

import (
	"context"
	"errors"
	"fmt"

	"requirement-analyzer/internal/cache"
	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
)

const credentialsKey = "jira_credentials"

// CredentialsAPI is the part of the backend that stores Jira credentials
type CredentialsAPI interface {
	SaveCredentials(ctx context.Context, creds models.JiraCredentials) error
	GetCredentials(ctx context.Context) (*models.JiraCredentials, error)
	DeleteCredentials(ctx context.Context) error
	TestConnection(ctx context.Context, creds models.JiraCredentials) (*models.JiraConnection, error)
}

// LocalCredentials keeps a copy of the credentials in the session
type LocalCredentials interface {
	JiraCredentials(ctx context.Context) (*models.JiraCredentials, error)
	SetJiraCredentials(ctx context.Context, creds *models.JiraCredentials) error
}

// CredentialService manages the user's Jira credentials
type CredentialService struct {
	api   CredentialsAPI
	cache *cache.Cache[models.JiraCredentials]
	local LocalCredentials
}

// NewCredentialService creates a credential service
func NewCredentialService(api CredentialsAPI, c *cache.Cache[models.JiraCredentials], local LocalCredentials) *CredentialService {
	return &CredentialService{api: api, cache: c, local: local}
}

// Get returns the stored credentials, or nil when none are configured. When
// the backend cannot be reached the session copy is returned instead.
func (s *CredentialService) Get(ctx context.Context) (*models.JiraCredentials, error) {
	if creds, ok := s.cache.Get(credentialsKey); ok {
		return &creds, nil
	}

	creds, err := s.api.GetCredentials(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionExpired) {
			return nil, err
		}
		local, lerr := s.local.JiraCredentials(ctx)
		if lerr == nil && local != nil {
			return local, nil
		}
		return nil, fmt.Errorf("failed to get Jira credentials: %w", err)
	}
	if creds == nil {
		return nil, nil
	}

	s.cache.Set(credentialsKey, *creds)
	if err := s.local.SetJiraCredentials(ctx, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Save validates and stores the credentials
func (s *CredentialService) Save(ctx context.Context, creds models.JiraCredentials) error {
	if err := creds.Validate(); err != nil {
		return &ValidationError{Field: "credentials", Message: err.Error()}
	}
	if err := s.api.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to save Jira credentials: %w", err)
	}

	s.cache.Set(credentialsKey, creds)
	return s.local.SetJiraCredentials(ctx, &creds)
}

// Delete removes the stored credentials everywhere
func (s *CredentialService) Delete(ctx context.Context) error {
	if err := s.api.DeleteCredentials(ctx); err != nil {
		return fmt.Errorf("failed to delete Jira credentials: %w", err)
	}

	s.cache.Delete(credentialsKey)
	return s.local.SetJiraCredentials(ctx, nil)
}

// Test checks the credentials against Jira without storing them
func (s *CredentialService) Test(ctx context.Context, creds models.JiraCredentials) (*models.JiraConnection, error) {
	if err := creds.Validate(); err != nil {
		return nil, &ValidationError{Field: "credentials", Message: err.Error()}
	}
	conn, err := s.api.TestConnection(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to test Jira connection: %w", err)
	}
	return conn, nil
}

// Forget drops everything cached for the previous user
func (s *CredentialService) Forget() {
	s.cache.Clear()
}
