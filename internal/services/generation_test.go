package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
)

func TestGenerateEpicsWithoutCredentialsMarksEachFailed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.api.nextEpics = []models.Epic{
		{ID: 101, UploadID: 12, Name: "Camera"},
		{ID: 102, UploadID: 12, Name: "Storage"},
	}
	require.NoError(t, h.ws.SelectUpload(ctx, 12))

	epics, err := h.gen.GenerateEpics(ctx)
	require.NoError(t, err)
	require.Len(t, epics, 2)

	assert.Equal(t, []int64{101, 102}, h.tracker.markedEpics)
	assert.Empty(t, h.tracker.created)
	for _, epic := range epics {
		state := h.ws.EpicSyncState(epic)
		assert.Equal(t, "Failed", state.Label())
		assert.True(t, state.Retryable())
	}
	assert.ElementsMatch(t, []string{"epic_101", "epic_102"}, h.ws.Retryable())
	assert.False(t, h.gen.Availability(models.KindEpic).Enabled)
}

func TestGenerateEpicsSyncsWhenCredentialsConfigured(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	h.api.nextEpics = []models.Epic{{ID: 101, UploadID: 12, Name: "Camera"}}
	require.NoError(t, h.ws.SelectUpload(ctx, 12))

	epics, err := h.gen.GenerateEpics(ctx)
	require.NoError(t, err)
	require.Len(t, epics, 1)

	assert.Equal(t, []string{"epic_101"}, h.tracker.created)
	state := h.ws.EpicSyncState(epics[0])
	assert.Equal(t, models.SyncSuccess, state.Status)
	assert.Equal(t, "RA-101", state.Key)
	assert.Equal(t, "10101", epics[0].JiraIssueID, "reconciled from the backend")
	assert.Contains(t, h.notify.messages, "success: Created 1 epic in Jira")
}

func TestStoriesUnderUnsyncedEpicAreMarkedFailed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	h.api.epics[12] = []models.Epic{{ID: 101, UploadID: 12, Name: "Camera"}}
	h.api.nextStories = []models.Story{{ID: 201, EpicID: 101}, {ID: 202, EpicID: 101}}

	require.NoError(t, h.ws.SelectUpload(ctx, 12))
	require.NoError(t, h.gen.Load(ctx))
	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))

	stories, err := h.gen.GenerateStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	assert.Empty(t, h.tracker.created)
	assert.Equal(t, []int64{201, 202}, h.tracker.markedStories)
	for _, story := range stories {
		state := h.ws.StorySyncState(story)
		assert.Equal(t, models.SyncFailed, state.Status)
		assert.Contains(t, state.Reason, "Parent epic must be synced")
	}
}

func syncedEpicElsewhere() models.Epic {
	return models.Epic{
		ID: 101, UploadID: 12, Name: "Camera",
		JiraKey: "RA-101", JiraIssueID: "10101", JiraURL: "https://acme.atlassian.net/browse/RA-101",
		JiraCreationSuccess: boolPtr(true),
	}
}

func TestStoriesUnderSyncedEpicOutsideSelectedUpload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	h.api.epics[12] = []models.Epic{syncedEpicElsewhere()}
	h.api.nextStories = []models.Story{{ID: 201, EpicID: 101}, {ID: 202, EpicID: 101}}

	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	require.NoError(t, h.gen.Load(ctx))
	_, ok := h.ws.Epic(101)
	require.False(t, ok, "no upload selected, so the parent is not loaded")

	stories, err := h.gen.GenerateStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	assert.Equal(t, []string{"story_201", "story_202"}, h.tracker.created)
	assert.Empty(t, h.tracker.markedStories)
	require.Len(t, h.tracker.storyRequests, 2)
	for _, req := range h.tracker.storyRequests {
		assert.Equal(t, "RA-101", req.EpicJiraKey)
		assert.Equal(t, "10101", req.EpicJiraIssueID)
	}
	for _, story := range h.ws.Stories() {
		assert.Equal(t, models.SyncSuccess, h.ws.StorySyncState(story).Status)
	}
}

func TestParentLookupFailureSkipsStorySync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, validCreds())
	h.api.nextStories = []models.Story{{ID: 201, EpicID: 101}}
	h.api.findErr = errors.New("dial tcp: connection refused")

	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	stories, err := h.gen.GenerateStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)

	assert.Empty(t, h.tracker.created)
	assert.Empty(t, h.tracker.markedStories, "an unknown parent is not a failed parent")
	found := false
	for _, msg := range h.notify.messages {
		if strings.HasPrefix(msg, "warning: Jira sync skipped") {
			found = true
		}
	}
	assert.True(t, found, "messages: %v", h.notify.messages)
}

func TestQACapDisablesGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.ws.SelectStory(ctx, 55))
	for i := 0; i < MaxQAAttempts; i++ {
		require.NoError(t, h.ws.Guard().Record(ctx, 55))
	}

	av := h.gen.Availability(models.KindQA)
	assert.False(t, av.Enabled)
	assert.Contains(t, av.Reason, "3/3")

	_, err := h.gen.GenerateQA(ctx)
	var capErr *CapError
	require.True(t, errors.As(err, &capErr))
	assert.Zero(t, h.api.generateCalls)
}

func TestQAGenerationCountsOnlySuccesses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.ws.SelectStory(ctx, 55))

	h.api.genErr = errors.New("agent unavailable")
	_, err := h.gen.GenerateQA(ctx)
	require.Error(t, err)
	assert.Zero(t, h.ws.Guard().Attempts(55))

	h.api.genErr = nil
	for i := 1; i <= MaxQAAttempts; i++ {
		h.api.nextQA = []models.QATest{{ID: int64(900 + i), StoryID: 55, TestType: models.TestFunctional}}
		tests, err := h.gen.GenerateQA(ctx)
		require.NoError(t, err)
		assert.Len(t, tests, i)
		assert.Equal(t, i, h.ws.Guard().Attempts(55))
	}

	_, err = h.gen.GenerateQA(ctx)
	require.Error(t, err)
	assert.Equal(t, MaxQAAttempts+1, h.api.generateCalls, "the refused attempt sends no request")

	require.NoError(t, h.gen.Load(ctx))
	assert.Equal(t, MaxQAAttempts, h.ws.Guard().Attempts(55), "fetches do not count")
}

func TestGenerationFailureLeavesListsUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.ws.SelectEpicForTestPlan(ctx, 101))

	var progress []int
	h.gen.OnProgress(func(kind models.ArtifactKind, pct int) {
		assert.Equal(t, models.KindTestPlan, kind)
		progress = append(progress, pct)
	})

	h.api.genErr = &repositories.APIError{Status: 500, Message: "Test plan agent failed"}
	_, err := h.gen.GenerateTestPlans(ctx)
	require.Error(t, err)

	assert.Equal(t, "Test plan agent failed", UserMessage(err))
	assert.Empty(t, h.ws.TestPlans())
	assert.Equal(t, []int{ProgressStarted, ProgressRequested, ProgressIdle}, progress)

	progress = nil
	h.api.genErr = nil
	h.api.nextPlans = []models.TestPlan{{ID: 300, EpicID: 101}}
	plans, err := h.gen.GenerateTestPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.Equal(t, []int{ProgressStarted, ProgressRequested, ProgressProcessing, ProgressIdle}, progress)
}

func TestAvailabilityNeedsSelectedParent(t *testing.T) {
	h := newHarness(t, nil)

	for _, kind := range []models.ArtifactKind{models.KindEpic, models.KindStory, models.KindQA, models.KindTestPlan} {
		av := h.gen.Availability(kind)
		assert.False(t, av.Enabled, kind)
		assert.True(t, strings.Contains(av.Reason, "select"), av.Reason)
	}

	_, err := h.gen.GenerateEpics(context.Background())
	assert.ErrorIs(t, err, ErrNotSelected)
	assert.Zero(t, h.api.generateCalls)
}

func TestSingleBatchGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.api.stories[101] = []models.Story{{ID: 201, EpicID: 101}}
	require.NoError(t, h.ws.SelectEpicForStories(ctx, 101))
	require.NoError(t, h.gen.Load(ctx))

	_, err := h.gen.GenerateStories(ctx)
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
	assert.Zero(t, h.api.generateCalls)
}
