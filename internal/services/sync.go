package services

import (
	"context"
	"errors"
	"fmt"

	"requirement-analyzer/internal/metrics"
	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
)

// TrackerAPI is the part of the backend that creates Jira issues
type TrackerAPI interface {
	CreateEpic(ctx context.Context, in models.CreateEpicRequest) (*models.JiraIssue, error)
	CreateStory(ctx context.Context, in models.CreateStoryRequest) (*models.JiraIssue, error)
	MarkEpicFailed(ctx context.Context, epicID int64) error
	MarkStoryFailed(ctx context.Context, storyID int64) error
}

// CredentialSource returns the configured Jira credentials, or nil
type CredentialSource interface {
	Get(ctx context.Context) (*models.JiraCredentials, error)
}

// ItemResult is the outcome of syncing one item
type ItemResult struct {
	Kind  models.ArtifactKind
	ID    int64
	Title string
	State models.SyncState
	Err   error
}

// BatchReport is the fold of a sync batch. Every item ends up in exactly one
// of Succeeded or Failed.
type BatchReport struct {
	Kind      models.ArtifactKind
	Results   []ItemResult
	Succeeded int
	Failed    int
}

func (r *BatchReport) add(res ItemResult) {
	r.Results = append(r.Results, res)
	if res.State.Status == models.SyncSuccess {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// Total returns the number of items in the batch
func (r BatchReport) Total() int {
	return len(r.Results)
}

// Syncer pushes generated epics and stories to Jira one at a time
type Syncer struct {
	tracker TrackerAPI
	creds   CredentialSource
	fetch   ArtifactAPI
	ws      *Workspace
	notify  Notifier
	metrics metrics.Recorder
}

// NewSyncer creates a sync orchestrator
func NewSyncer(tracker TrackerAPI, creds CredentialSource, fetch ArtifactAPI, ws *Workspace, notify Notifier, rec metrics.Recorder) *Syncer {
	if notify == nil {
		notify = quietNotifier{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Syncer{
		tracker: tracker,
		creds:   creds,
		fetch:   fetch,
		ws:      ws,
		notify:  notify,
		metrics: rec,
	}
}

// SyncEpics creates a Jira epic for every item, in order
func (s *Syncer) SyncEpics(ctx context.Context, epics []models.Epic) (BatchReport, error) {
	report := BatchReport{Kind: models.KindEpic}
	if len(epics) == 0 {
		return report, nil
	}

	creds, err := s.credentials(ctx)
	if err != nil {
		return report, err
	}

	var halt error
	for _, epic := range epics {
		if halt != nil {
			report.add(s.abandon(models.KindEpic, epic.ID, epic.Title(), halt))
			continue
		}
		res := s.syncEpic(ctx, creds, epic)
		if isFatal(res.Err) {
			halt = res.Err
		}
		report.add(res)
	}

	s.summarize(report)
	s.refreshEpics(ctx, epics[0].UploadID)
	return report, halt
}

// SyncStories creates a Jira story for every item, linked to parent, in order.
// A parent without a Jira issue fails every story without calling Jira.
func (s *Syncer) SyncStories(ctx context.Context, parent models.Epic, stories []models.Story) (BatchReport, error) {
	report := BatchReport{Kind: models.KindStory}
	if len(stories) == 0 {
		return report, nil
	}

	creds, err := s.credentials(ctx)
	if err != nil {
		return report, err
	}

	var halt error
	for _, story := range stories {
		if halt != nil {
			report.add(s.abandon(models.KindStory, story.ID, story.Title(), halt))
			continue
		}
		res := s.syncStory(ctx, creds, parent, story, true)
		if isFatal(res.Err) {
			halt = res.Err
		}
		report.add(res)
	}

	s.summarize(report)
	s.refreshStories(ctx, parent.ID)
	return report, halt
}

// AfterEpicGeneration syncs new epics when credentials are configured, and
// otherwise marks each of them failed on the backend so they can be retried.
func (s *Syncer) AfterEpicGeneration(ctx context.Context, epics []models.Epic) (BatchReport, error) {
	if !s.configured(ctx) {
		report := BatchReport{Kind: models.KindEpic}
		for _, epic := range epics {
			report.add(s.markFailed(ctx, models.KindEpic, epic.ID, epic.Title()))
		}
		s.summarize(report)
		if len(epics) > 0 {
			s.refreshEpics(ctx, epics[0].UploadID)
		}
		return report, nil
	}
	return s.SyncEpics(ctx, epics)
}

// AfterStoryGeneration is AfterEpicGeneration for stories
func (s *Syncer) AfterStoryGeneration(ctx context.Context, parent models.Epic, stories []models.Story) (BatchReport, error) {
	if !s.configured(ctx) {
		report := BatchReport{Kind: models.KindStory}
		for _, story := range stories {
			report.add(s.markFailed(ctx, models.KindStory, story.ID, story.Title()))
		}
		s.summarize(report)
		s.refreshStories(ctx, parent.ID)
		return report, nil
	}
	return s.SyncStories(ctx, parent, stories)
}

// RetryEpic repeats the Jira creation of one loaded epic
func (s *Syncer) RetryEpic(ctx context.Context, epicID int64) (ItemResult, error) {
	epic, ok := s.ws.Epic(epicID)
	if !ok {
		return ItemResult{}, &ValidationError{Field: "epic", Message: fmt.Sprintf("epic %d is not in the selected upload", epicID)}
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return ItemResult{}, err
	}

	res := s.syncEpic(ctx, creds, epic)
	s.announce(res)
	s.refreshEpics(ctx, epic.UploadID)
	return res, res.Err
}

// RetryStory repeats the Jira creation of one loaded story. The parent epic
// must already have a Jira issue.
func (s *Syncer) RetryStory(ctx context.Context, storyID int64) (ItemResult, error) {
	story, ok := s.ws.Story(storyID)
	if !ok {
		return ItemResult{}, &ValidationError{Field: "story", Message: fmt.Sprintf("story %d is not under the selected epic", storyID)}
	}
	parent, err := s.ParentEpic(ctx, story.EpicID)
	if err != nil {
		return ItemResult{}, err
	}
	if !linked(parent) {
		return ItemResult{}, fmt.Errorf("story %d: %w", storyID, ErrParentNotSynced)
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return ItemResult{}, err
	}

	res := s.syncStory(ctx, creds, parent, story, false)
	s.announce(res)
	s.refreshStories(ctx, story.EpicID)
	return res, res.Err
}

// ParentEpic returns the epic that stories under epicID are attached to.
// The selected epic need not belong to the selected upload, so an epic that
// is missing locally or not yet linked is looked up on the backend. An id the
// backend does not know yields a bare epic with no Jira issue.
func (s *Syncer) ParentEpic(ctx context.Context, epicID int64) (models.Epic, error) {
	local, ok := s.ws.Epic(epicID)
	if ok && linked(local) {
		return local, nil
	}

	remote, err := s.fetch.FindEpic(ctx, epicID)
	if err != nil {
		return models.Epic{}, fmt.Errorf("failed to look up epic %d: %w", epicID, err)
	}
	switch {
	case remote != nil:
		return *remote, nil
	case ok:
		return local, nil
	default:
		return models.Epic{ID: epicID}, nil
	}
}

func (s *Syncer) syncEpic(ctx context.Context, creds *models.JiraCredentials, epic models.Epic) ItemResult {
	s.ws.SetSyncState(models.KindEpic, epic.ID, models.Syncing())

	issue, err := s.tracker.CreateEpic(ctx, models.CreateEpicRequest{
		JiraCredentials:         *creds,
		EpicName:                epic.Title(),
		EpicDescription:         epic.Description(),
		TechnicalImplementation: epic.TechnicalImplementation(),
		EpicID:                  epic.ID,
	})
	return s.settle(models.KindEpic, epic.ID, epic.Title(), issue, err)
}

func (s *Syncer) syncStory(ctx context.Context, creds *models.JiraCredentials, parent models.Epic, story models.Story, markOrphan bool) ItemResult {
	if !linked(parent) {
		res := ItemResult{
			Kind:  models.KindStory,
			ID:    story.ID,
			Title: story.Title(),
			State: models.Failed(UserMessage(ErrParentNotSynced)),
			Err:   fmt.Errorf("story %d: %w", story.ID, ErrParentNotSynced),
		}
		if markOrphan {
			if err := s.tracker.MarkStoryFailed(ctx, story.ID); err != nil {
				s.notify.Warning("Could not record failed sync for story %d: %s", story.ID, UserMessage(err))
			}
		}
		s.ws.SetSyncState(models.KindStory, story.ID, res.State)
		s.metrics.ObserveSync(string(models.KindStory), string(res.State.Status))
		return res
	}

	s.ws.SetSyncState(models.KindStory, story.ID, models.Syncing())

	issue, err := s.tracker.CreateStory(ctx, models.CreateStoryRequest{
		JiraCredentials:         *creds,
		StoryName:               story.Title(),
		StoryDescription:        story.Description(),
		StoryAcceptanceCriteria: story.AcceptanceCriteria(),
		StoryID:                 story.ID,
		EpicID:                  parent.ID,
		EpicJiraKey:             parent.JiraKey,
		EpicJiraIssueID:         parent.JiraIssueID,
	})
	return s.settle(models.KindStory, story.ID, story.Title(), issue, err)
}

// settle turns a create call outcome into the item's terminal state
func (s *Syncer) settle(kind models.ArtifactKind, id int64, title string, issue *models.JiraIssue, err error) ItemResult {
	res := ItemResult{Kind: kind, ID: id, Title: title}
	switch {
	case err != nil:
		res.State = models.Failed(UserMessage(err))
		res.Err = err
	case issue == nil:
		res.State = models.Failed("tracker returned no issue")
		res.Err = errors.New(res.State.Reason)
	default:
		res.State = models.Synced(issue.Key, issue.URL)
		if res.State.Status != models.SyncSuccess {
			res.Err = errors.New(res.State.Reason)
		}
	}

	s.ws.SetSyncState(kind, id, res.State)
	s.metrics.ObserveSync(string(kind), string(res.State.Status))
	return res
}

func (s *Syncer) markFailed(ctx context.Context, kind models.ArtifactKind, id int64, title string) ItemResult {
	var err error
	if kind == models.KindEpic {
		err = s.tracker.MarkEpicFailed(ctx, id)
	} else {
		err = s.tracker.MarkStoryFailed(ctx, id)
	}
	if err != nil {
		s.notify.Warning("Could not record failed sync for %s %d: %s", kind, id, UserMessage(err))
	}

	state := models.Failed(UserMessage(ErrCredentialsNotConfigured))
	s.ws.SetSyncState(kind, id, state)
	s.metrics.ObserveSync(string(kind), string(state.Status))
	return ItemResult{Kind: kind, ID: id, Title: title, State: state, Err: ErrCredentialsNotConfigured}
}

func (s *Syncer) abandon(kind models.ArtifactKind, id int64, title string, cause error) ItemResult {
	state := models.Failed(UserMessage(cause))
	s.ws.SetSyncState(kind, id, state)
	s.metrics.ObserveSync(string(kind), string(state.Status))
	return ItemResult{Kind: kind, ID: id, Title: title, State: state, Err: cause}
}

func (s *Syncer) summarize(report BatchReport) {
	if report.Total() == 0 {
		return
	}
	noun := plural(report.Kind, report.Total())
	switch {
	case report.Failed == 0:
		s.notify.Success("Created %d %s in Jira", report.Succeeded, noun)
	case report.Succeeded == 0:
		s.notify.Warning("Failed to create %d %s in Jira. Use retry once the problem is fixed.", report.Failed, noun)
	default:
		s.notify.Warning("Created %d of %d %s in Jira, %d failed", report.Succeeded, report.Total(), noun, report.Failed)
	}
}

func (s *Syncer) announce(res ItemResult) {
	if res.Err != nil {
		s.notify.Error("Failed to create %s %d in Jira: %s", res.Kind, res.ID, res.State.Reason)
		return
	}
	s.notify.Success("Created %s in Jira: %s", res.Kind, res.State.Key)
}

func (s *Syncer) refreshEpics(ctx context.Context, uploadID int64) {
	epics, err := s.fetch.EpicsForUpload(ctx, uploadID)
	if err != nil {
		s.notify.Warning("Could not refresh epics: %s", UserMessage(err))
		return
	}
	s.ws.MergeEpics(uploadID, epics)
}

func (s *Syncer) refreshStories(ctx context.Context, epicID int64) {
	stories, err := s.fetch.StoriesForEpic(ctx, epicID)
	if err != nil {
		s.notify.Warning("Could not refresh stories: %s", UserMessage(err))
		return
	}
	s.ws.MergeStories(epicID, stories)
}

// credentials returns complete credentials or ErrCredentialsNotConfigured
func (s *Syncer) credentials(ctx context.Context) (*models.JiraCredentials, error) {
	creds, err := s.creds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load Jira credentials: %w", err)
	}
	if !creds.Complete() {
		return nil, ErrCredentialsNotConfigured
	}
	return creds, nil
}

func (s *Syncer) configured(ctx context.Context) bool {
	creds, err := s.creds.Get(ctx)
	if err != nil {
		s.notify.Warning("Could not load Jira credentials: %s", UserMessage(err))
		return false
	}
	return creds.Complete()
}

// linked reports whether a story can be attached to parent in Jira
func linked(parent models.Epic) bool {
	return parent.JiraKey != "" && parent.JiraIssueID != ""
}

// isFatal reports whether the rest of a batch cannot succeed either
func isFatal(err error) bool {
	return errors.Is(err, repositories.ErrSessionExpired) || errors.Is(err, context.Canceled)
}

func plural(kind models.ArtifactKind, n int) string {
	noun := map[models.ArtifactKind][2]string{
		models.KindEpic:     {"epic", "epics"},
		models.KindStory:    {"story", "stories"},
		models.KindQA:       {"QA test", "QA tests"},
		models.KindTestPlan: {"test plan", "test plans"},
	}[kind]
	if n == 1 {
		return noun[0]
	}
	return noun[1]
}
