package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
)

func loadEpics(t *testing.T, h *harness, epics ...models.Epic) {
	t.Helper()
	ctx := context.Background()
	h.api.epics[12] = epics
	require.NoError(t, h.ws.SelectUpload(ctx, 12))
	require.NoError(t, h.gen.Load(ctx))
}

func TestSyncEpicsRecordsEveryItem(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	loadEpics(t, h,
		models.Epic{ID: 101, UploadID: 12, Name: "Camera"},
		models.Epic{ID: 102, UploadID: 12, Name: "Storage"},
		models.Epic{ID: 103, UploadID: 12, Name: "Sharing"},
	)
	h.tracker.fail["epic_102"] = &repositories.APIError{Status: 400, Message: "Failed to create epic in Jira: boom"}

	report, err := h.syncer.SyncEpics(ctx, h.ws.Epics())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, report.Total(), report.Succeeded+report.Failed)
	assert.Equal(t, []string{"epic_101", "epic_102", "epic_103"}, h.tracker.created, "strictly in order")
	assert.Empty(t, h.ws.InFlight())

	failed, _ := h.ws.Epic(102)
	assert.Equal(t, "Failed to create epic in Jira: boom", h.ws.EpicSyncState(failed).Reason)
	assert.Equal(t, []string{"epic_102"}, h.ws.Retryable())
	assert.Contains(t, h.notify.messages, "warning: Created 2 of 3 epics in Jira, 1 failed")
}

func TestRetryEpicAfterFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	loadEpics(t, h, models.Epic{ID: 102, UploadID: 12, Name: "Storage"})
	h.tracker.fail["epic_102"] = &repositories.APIError{Status: 400, Message: "Jira down"}

	_, err := h.syncer.SyncEpics(ctx, h.ws.Epics())
	require.NoError(t, err)
	require.Equal(t, []string{"epic_102"}, h.ws.Retryable())

	delete(h.tracker.fail, "epic_102")
	res, err := h.syncer.RetryEpic(ctx, 102)
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, res.State.Status)
	assert.Equal(t, "RA-102", res.State.Key)
	assert.NotEmpty(t, res.State.URL)
	assert.Empty(t, h.ws.Retryable())
	assert.Zero(t, h.api.generateCalls, "retry never regenerates")
}

func TestSyncStoriesLinksParentIssue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	loadEpics(t, h, models.Epic{
		ID: 101, UploadID: 12, Name: "Camera",
		JiraKey: "RA-1", JiraIssueID: "10001", JiraURL: "https://acme.atlassian.net/browse/RA-1",
		JiraCreationSuccess: boolPtr(true),
	})
	h.api.stories[101] = []models.Story{{ID: 201, EpicID: 101, Name: "Record video"}}
	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	require.NoError(t, h.gen.Load(ctx))

	parent, _ := h.ws.Epic(101)
	report, err := h.syncer.SyncStories(ctx, parent, h.ws.Stories())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, h.tracker.storyRequests, 1)
	req := h.tracker.storyRequests[0]
	assert.Equal(t, "10001", req.EpicJiraIssueID)
	assert.Equal(t, "RA-1", req.EpicJiraKey)
	assert.Equal(t, "RA", req.ProjectKey)
	assert.Equal(t, "Record video", req.StoryName)
}

func TestSessionExpiryStopsTheBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	loadEpics(t, h,
		models.Epic{ID: 101, UploadID: 12},
		models.Epic{ID: 102, UploadID: 12},
		models.Epic{ID: 103, UploadID: 12},
	)
	h.tracker.fail["epic_101"] = fmt.Errorf("create epic: %w", repositories.ErrSessionExpired)

	report, err := h.syncer.SyncEpics(ctx, h.ws.Epics())

	require.ErrorIs(t, err, repositories.ErrSessionExpired)
	assert.Equal(t, []string{"epic_101"}, h.tracker.created)
	assert.Equal(t, 3, report.Failed)
	for _, res := range report.Results {
		assert.Equal(t, "Your session has expired. Please log in again.", res.State.Reason)
	}
}

func TestRetryStoryNeedsSyncedParent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	loadEpics(t, h, models.Epic{ID: 101, UploadID: 12})
	h.api.stories[101] = []models.Story{{ID: 201, EpicID: 101, JiraCreationSuccess: boolPtr(false)}}
	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	require.NoError(t, h.gen.Load(ctx))

	_, err := h.syncer.RetryStory(ctx, 201)

	assert.ErrorIs(t, err, ErrParentNotSynced)
	assert.Empty(t, h.tracker.created)
	assert.Empty(t, h.tracker.markedStories)
}

func TestRetryStoryResolvesParentFromBackend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	h.api.epics[12] = []models.Epic{syncedEpicElsewhere()}
	h.api.stories[101] = []models.Story{{ID: 201, EpicID: 101, Name: "Record video"}}
	h.tracker.fail["story_201"] = fmt.Errorf("jira said no")

	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	require.NoError(t, h.gen.Load(ctx))

	_, err := h.syncer.RetryStory(ctx, 201)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrParentNotSynced)

	delete(h.tracker.fail, "story_201")
	res, err := h.syncer.RetryStory(ctx, 201)
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, res.State.Status)
	assert.Equal(t, "RA-201", res.State.Key)
	assert.Equal(t, []string{"story_201", "story_201"}, h.tracker.created)
	assert.Empty(t, h.tracker.markedStories)
	assert.Equal(t, "10101", h.tracker.storyRequests[1].EpicJiraIssueID)
	assert.Positive(t, h.api.findCalls)
}

func TestSyncWithoutCredentialsSendsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &models.JiraCredentials{URL: "https://acme.atlassian.net"})
	loadEpics(t, h, models.Epic{ID: 101, UploadID: 12})

	_, err := h.syncer.SyncEpics(ctx, h.ws.Epics())
	assert.ErrorIs(t, err, ErrCredentialsNotConfigured)

	_, err = h.syncer.RetryEpic(ctx, 101)
	assert.ErrorIs(t, err, ErrCredentialsNotConfigured)
	assert.Empty(t, h.tracker.created)
}

func TestRetryUnknownEpic(t *testing.T) {
	h := newHarness(t, validCreds())

	_, err := h.syncer.RetryEpic(context.Background(), 999)

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}
