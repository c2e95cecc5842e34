package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/session"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	store, err := session.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return session.New(store)
}

func newTestWorkspace(t *testing.T) (*Workspace, *session.Session) {
	t.Helper()
	sess := newTestSession(t)
	guard, err := NewRegenerationGuard(context.Background(), sess)
	require.NoError(t, err)
	return NewWorkspace(sess, guard), sess
}

func validCreds() *models.JiraCredentials {
	return &models.JiraCredentials{
		URL:        "https://acme.atlassian.net",
		Username:   "qa@example.com",
		APIToken:   "secret-token",
		ProjectKey: "RA",
	}
}

func boolPtr(b bool) *bool { return &b }

// fakeArtifacts is an in-memory backend. Generated items are persisted so
// that later fetches return them.
type fakeArtifacts struct {
	mu sync.Mutex

	epics   map[int64][]models.Epic
	stories map[int64][]models.Story
	qa      map[int64][]models.QATest
	plans   map[int64][]models.TestPlan

	nextEpics   []models.Epic
	nextStories []models.Story
	nextQA      []models.QATest
	nextPlans   []models.TestPlan

	genErr        error
	generateCalls int

	findErr   error
	findCalls int
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{
		epics:   map[int64][]models.Epic{},
		stories: map[int64][]models.Story{},
		qa:      map[int64][]models.QATest{},
		plans:   map[int64][]models.TestPlan{},
	}
}

func (f *fakeArtifacts) GenerateEpics(_ context.Context, uploadID int64) ([]models.Epic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	f.epics[uploadID] = MergeByID(f.epics[uploadID], f.nextEpics)
	return append([]models.Epic(nil), f.nextEpics...), nil
}

func (f *fakeArtifacts) GenerateStories(_ context.Context, epicID int64) ([]models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	f.stories[epicID] = MergeByID(f.stories[epicID], f.nextStories)
	return append([]models.Story(nil), f.nextStories...), nil
}

func (f *fakeArtifacts) GenerateQA(_ context.Context, storyID int64) ([]models.QATest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	f.qa[storyID] = MergeByID(f.qa[storyID], f.nextQA)
	return append([]models.QATest(nil), f.nextQA...), nil
}

func (f *fakeArtifacts) GenerateTestPlans(_ context.Context, epicID int64) ([]models.TestPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	f.plans[epicID] = MergeByID(f.plans[epicID], f.nextPlans)
	return append([]models.TestPlan(nil), f.nextPlans...), nil
}

func (f *fakeArtifacts) EpicsForUpload(_ context.Context, uploadID int64) ([]models.Epic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Epic(nil), f.epics[uploadID]...), nil
}

func (f *fakeArtifacts) StoriesForEpic(_ context.Context, epicID int64) ([]models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Story(nil), f.stories[epicID]...), nil
}

func (f *fakeArtifacts) QAForStory(_ context.Context, storyID int64) ([]models.QATest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.QATest(nil), f.qa[storyID]...), nil
}

func (f *fakeArtifacts) TestPlansForEpic(_ context.Context, epicID int64) ([]models.TestPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TestPlan(nil), f.plans[epicID]...), nil
}

func (f *fakeArtifacts) FindEpic(_ context.Context, epicID int64) (*models.Epic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, list := range f.epics {
		for _, e := range list {
			if e.ID == epicID {
				return &e, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeArtifacts) updateEpic(id int64, fn func(*models.Epic)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.epics {
		for i := range list {
			if list[i].ID == id {
				fn(&list[i])
			}
		}
	}
}

func (f *fakeArtifacts) updateStory(id int64, fn func(*models.Story)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.stories {
		for i := range list {
			if list[i].ID == id {
				fn(&list[i])
			}
		}
	}
}

// fakeTracker records tracker calls and writes their outcome to the backend
// the way the real create endpoints do.
type fakeTracker struct {
	mu      sync.Mutex
	backend *fakeArtifacts
	fail    map[string]error

	created       []string
	storyRequests []models.CreateStoryRequest
	markedEpics   []int64
	markedStories []int64
}

func newFakeTracker(backend *fakeArtifacts) *fakeTracker {
	return &fakeTracker{backend: backend, fail: map[string]error{}}
}

func (t *fakeTracker) CreateEpic(_ context.Context, in models.CreateEpicRequest) (*models.JiraIssue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := itemKey(models.KindEpic, in.EpicID)
	t.created = append(t.created, key)

	if err := t.fail[key]; err != nil {
		t.backend.updateEpic(in.EpicID, func(e *models.Epic) { e.JiraCreationSuccess = boolPtr(false) })
		return nil, err
	}

	issue := &models.JiraIssue{Key: fmt.Sprintf("RA-%d", in.EpicID)}
	issue.URL = in.URL + "/browse/" + issue.Key
	t.backend.updateEpic(in.EpicID, func(e *models.Epic) {
		e.JiraKey = issue.Key
		e.JiraURL = issue.URL
		e.JiraIssueID = fmt.Sprintf("%d", 10000+in.EpicID)
		e.JiraCreationSuccess = boolPtr(true)
	})
	return issue, nil
}

func (t *fakeTracker) CreateStory(_ context.Context, in models.CreateStoryRequest) (*models.JiraIssue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := itemKey(models.KindStory, in.StoryID)
	t.created = append(t.created, key)
	t.storyRequests = append(t.storyRequests, in)

	if err := t.fail[key]; err != nil {
		t.backend.updateStory(in.StoryID, func(s *models.Story) { s.JiraCreationSuccess = boolPtr(false) })
		return nil, err
	}

	issue := &models.JiraIssue{Key: fmt.Sprintf("RA-%d", in.StoryID)}
	issue.URL = in.URL + "/browse/" + issue.Key
	t.backend.updateStory(in.StoryID, func(s *models.Story) {
		s.JiraKey = issue.Key
		s.JiraURL = issue.URL
		s.JiraIssueID = fmt.Sprintf("%d", 10000+in.StoryID)
		s.JiraCreationSuccess = boolPtr(true)
	})
	return issue, nil
}

func (t *fakeTracker) MarkEpicFailed(_ context.Context, epicID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markedEpics = append(t.markedEpics, epicID)
	t.backend.updateEpic(epicID, func(e *models.Epic) { e.JiraCreationSuccess = boolPtr(false) })
	return nil
}

func (t *fakeTracker) MarkStoryFailed(_ context.Context, storyID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markedStories = append(t.markedStories, storyID)
	t.backend.updateStory(storyID, func(s *models.Story) { s.JiraCreationSuccess = boolPtr(false) })
	return nil
}

type staticCreds struct {
	creds *models.JiraCredentials
	err   error
}

func (s staticCreds) Get(context.Context) (*models.JiraCredentials, error) {
	return s.creds, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) add(level, format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, level+": "+fmt.Sprintf(format, args...))
}

func (n *recordingNotifier) Success(format string, args ...interface{}) { n.add("success", format, args...) }
func (n *recordingNotifier) Warning(format string, args ...interface{}) { n.add("warning", format, args...) }
func (n *recordingNotifier) Error(format string, args ...interface{})   { n.add("error", format, args...) }
func (n *recordingNotifier) Info(format string, args ...interface{})    { n.add("info", format, args...) }

// harness wires a workspace, backend and tracker fakes into the orchestrators
type harness struct {
	ws      *Workspace
	sess    *session.Session
	api     *fakeArtifacts
	tracker *fakeTracker
	notify  *recordingNotifier
	syncer  *Syncer
	gen     *Generator
}

func newHarness(t *testing.T, creds *models.JiraCredentials) *harness {
	t.Helper()
	ws, sess := newTestWorkspace(t)
	api := newFakeArtifacts()
	tracker := newFakeTracker(api)
	notify := &recordingNotifier{}
	syncer := NewSyncer(tracker, staticCreds{creds: creds}, api, ws, notify, nil)
	return &harness{
		ws:      ws,
		sess:    sess,
		api:     api,
		tracker: tracker,
		notify:  notify,
		syncer:  syncer,
		gen:     NewGenerator(api, ws, syncer, notify, nil),
	}
}
