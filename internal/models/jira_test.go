package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValidation(t *testing.T) {
	valid := JiraCredentials{URL: "https://acme.atlassian.net", Username: "qa@example.com", APIToken: "tok", ProjectKey: "RA"}
	assert.NoError(t, valid.Validate())
	assert.True(t, valid.Complete())

	noScheme := valid
	noScheme.URL = "acme.atlassian.net"
	assert.EqualError(t, noScheme.Validate(), "Jira URL must start with http:// or https://")

	noProject := valid
	noProject.ProjectKey = "  "
	assert.EqualError(t, noProject.Validate(), "Jira project key is required")
	assert.False(t, noProject.Complete())

	var missing *JiraCredentials
	assert.False(t, missing.Complete())
}

func TestCredentialMasking(t *testing.T) {
	creds := JiraCredentials{APIToken: "abcdefgh1234"}

	assert.Equal(t, "********1234", creds.Masked().APIToken)
	assert.Equal(t, "abcdefgh1234", creds.APIToken)
	assert.Equal(t, "****", JiraCredentials{APIToken: "abc"}.Masked().APIToken)
}
