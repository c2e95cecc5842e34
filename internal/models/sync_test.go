package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestDeriveSyncState(t *testing.T) {
	tests := []struct {
		name    string
		success *bool
		key     string
		url     string
		want    SyncStatus
	}{
		{"never pushed", nil, "", "", SyncUnset},
		{"created", boolPtr(true), "RA-1", "https://acme.atlassian.net/browse/RA-1", SyncSuccess},
		{"legacy row without flag", nil, "RA-1", "https://acme.atlassian.net/browse/RA-1", SyncSuccess},
		{"creation failed", boolPtr(false), "", "", SyncFailed},
		{"success without url", boolPtr(true), "RA-1", "", SyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveSyncState(tt.success, tt.key, tt.url).Status)
		})
	}
}

func TestSyncedRequiresReference(t *testing.T) {
	state := Synced("", "https://acme.atlassian.net/browse/RA-1")

	assert.Equal(t, SyncFailed, state.Status)
	assert.Empty(t, state.Key)
	assert.NotEmpty(t, state.Reason)
}

func TestSyncStateLabels(t *testing.T) {
	assert.Equal(t, "Not synced", Unsynced().Label())
	assert.Equal(t, "Syncing...", Syncing().Label())
	assert.Equal(t, "RA-7", Synced("RA-7", "https://x/browse/RA-7").Label())
	assert.Equal(t, "Failed", Failed("boom").Label())

	assert.True(t, Failed("boom").Retryable())
	assert.False(t, Syncing().Retryable())
	assert.False(t, Syncing().Terminal())
	assert.True(t, Synced("RA-7", "https://x/browse/RA-7").Terminal())
}
