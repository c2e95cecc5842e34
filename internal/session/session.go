package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"requirement-analyzer/internal/models"
)

// Session is the explicit session context injected into the services. It is
// opened once at program start and cleared on logout.
type Session struct {
	store *Store
}

// New wraps store in a Session
func New(store *Store) *Session {
	return &Session{store: store}
}

// Store returns the underlying key/value store
func (s *Session) Store() *Store {
	return s.store
}

// Tokens returns the stored access and refresh tokens
func (s *Session) Tokens(ctx context.Context) (string, string) {
	access, _ := s.store.Get(ctx, KeyAccessToken)
	refresh, _ := s.store.Get(ctx, KeyRefreshToken)
	return access, refresh
}

// SetTokens stores a fresh token pair
func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.store.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return s.store.Set(ctx, KeyRefreshToken, refresh)
}

// ClearTokens forgets the token pair and the cached profile
func (s *Session) ClearTokens(ctx context.Context) error {
	return s.store.Remove(ctx, KeyAccessToken, KeyRefreshToken, KeyUser)
}

// LoggedIn reports whether an access token is stored
func (s *Session) LoggedIn(ctx context.Context) bool {
	access, _ := s.Tokens(ctx)
	return access != ""
}

// User returns the cached profile, or nil
func (s *Session) User(ctx context.Context) (*models.User, error) {
	var user models.User
	err := s.store.GetJSON(ctx, KeyUser, &user)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUser caches the profile
func (s *Session) SetUser(ctx context.Context, user *models.User) error {
	return s.store.SetJSON(ctx, KeyUser, user)
}

// Selection returns the id selected for role, or 0
func (s *Session) Selection(ctx context.Context, role Role) (int64, error) {
	return s.store.GetInt(ctx, SelectionKey(role))
}

// SetSelection persists the id selected for role. Zero removes the selection.
func (s *Session) SetSelection(ctx context.Context, role Role, id int64) error {
	if id == 0 {
		return s.store.Remove(ctx, SelectionKey(role))
	}
	return s.store.Set(ctx, SelectionKey(role), strconv.FormatInt(id, 10))
}

// ResetSelections removes every selection and QA counter
func (s *Session) ResetSelections(ctx context.Context) error {
	keys := make([]string, 0, len(Roles)+1)
	for _, role := range Roles {
		keys = append(keys, SelectionKey(role))
	}
	keys = append(keys, KeyQAAttempts)
	return s.store.Remove(ctx, keys...)
}

// QAAttempts returns the persisted QA generation counters by story id
func (s *Session) QAAttempts(ctx context.Context) (map[int64]int, error) {
	attempts := map[int64]int{}
	err := s.store.GetJSON(ctx, KeyQAAttempts, &attempts)
	if errors.Is(err, ErrNotFound) {
		return map[int64]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// SetQAAttempts persists the QA generation counters
func (s *Session) SetQAAttempts(ctx context.Context, attempts map[int64]int) error {
	return s.store.SetJSON(ctx, KeyQAAttempts, attempts)
}

// JiraCredentials returns the locally cached tracker credentials, or nil
func (s *Session) JiraCredentials(ctx context.Context) (*models.JiraCredentials, error) {
	var creds models.JiraCredentials
	err := s.store.GetJSON(ctx, KeyJiraCredentials, &creds)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

// SetJiraCredentials caches the tracker credentials locally
func (s *Session) SetJiraCredentials(ctx context.Context, creds *models.JiraCredentials) error {
	if creds == nil {
		return s.store.Remove(ctx, KeyJiraCredentials)
	}
	return s.store.SetJSON(ctx, KeyJiraCredentials, creds)
}

// Clear wipes the session so nothing of the previous user leaks into the next one
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
