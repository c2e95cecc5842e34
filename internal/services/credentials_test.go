package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirement-analyzer/internal/cache"
	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
)

type fakeCredentialsAPI struct {
	stored  *models.JiraCredentials
	getErr  error
	gets    int
	saves   int
	deletes int
}

func (f *fakeCredentialsAPI) SaveCredentials(_ context.Context, creds models.JiraCredentials) error {
	f.saves++
	f.stored = &creds
	return nil
}

func (f *fakeCredentialsAPI) GetCredentials(context.Context) (*models.JiraCredentials, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stored, nil
}

func (f *fakeCredentialsAPI) DeleteCredentials(context.Context) error {
	f.deletes++
	f.stored = nil
	return nil
}

func (f *fakeCredentialsAPI) TestConnection(_ context.Context, creds models.JiraCredentials) (*models.JiraConnection, error) {
	return &models.JiraConnection{Status: "success", User: creds.Username}, nil
}

func newCredentialService(t *testing.T, api CredentialsAPI) (*CredentialService, LocalCredentials) {
	t.Helper()
	c, err := cache.New[models.JiraCredentials](100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	sess := newTestSession(t)
	return NewCredentialService(api, c, sess), sess
}

func TestCredentialsAreCached(t *testing.T) {
	ctx := context.Background()
	api := &fakeCredentialsAPI{stored: validCreds()}
	svc, _ := newCredentialService(t, api)

	for i := 0; i < 3; i++ {
		creds, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "RA", creds.ProjectKey)
	}
	assert.Equal(t, 1, api.gets)
}

func TestCredentialsFallBackToSessionCopy(t *testing.T) {
	ctx := context.Background()
	api := &fakeCredentialsAPI{getErr: errors.New("connection refused")}
	svc, local := newCredentialService(t, api)
	require.NoError(t, local.SetJiraCredentials(ctx, validCreds()))

	creds, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.atlassian.net", creds.URL)

	api.getErr = repositories.ErrSessionExpired
	svc.Forget()
	_, err = svc.Get(ctx)
	assert.ErrorIs(t, err, repositories.ErrSessionExpired)
}

func TestSaveValidatesBeforeSending(t *testing.T) {
	ctx := context.Background()
	api := &fakeCredentialsAPI{}
	svc, local := newCredentialService(t, api)

	bad := *validCreds()
	bad.URL = "acme.atlassian.net"
	err := svc.Save(ctx, bad)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Jira URL must start with http:// or https://", UserMessage(err))
	assert.Zero(t, api.saves)

	require.NoError(t, svc.Save(ctx, *validCreds()))
	cached, err := local.JiraCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, validCreds(), cached)

	require.NoError(t, svc.Delete(ctx))
	creds, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
	cached, err = local.JiraCredentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestConnectionTest(t *testing.T) {
	svc, _ := newCredentialService(t, &fakeCredentialsAPI{})

	conn, err := svc.Test(context.Background(), *validCreds())
	require.NoError(t, err)
	assert.Equal(t, "qa@example.com", conn.User)

	_, err = svc.Test(context.Background(), models.JiraCredentials{})
	assert.Error(t, err)
}
