package services

import (
	"context"
	"fmt"
	"sync"

	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/session"
)

// SelectionStore persists the selected ids by role
type SelectionStore interface {
	Selection(ctx context.Context, role session.Role) (int64, error)
	SetSelection(ctx context.Context, role session.Role, id int64) error
	ResetSelections(ctx context.Context) error
}

// Selection holds the current pointers into the artifact hierarchy. Zero
// means nothing is selected.
type Selection struct {
	UploadID          int64 `json:"upload_id"`
	EpicForStoriesID  int64 `json:"epic_for_stories_id"`
	StoryID           int64 `json:"story_id"`
	EpicForTestPlanID int64 `json:"epic_for_test_plan_id"`
}

// Workspace is the in-memory state of one working session: the selections,
// the artifact lists under them and the tracker sync states.
//
// Selecting an ancestor clears every dependent selection and list. Lists are
// merged by id, and a merge for a parent that is no longer selected is
// dropped so a late response cannot bring back stale data.
type Workspace struct {
	mu    sync.Mutex
	store SelectionStore
	guard *RegenerationGuard

	sel       Selection
	epics     []models.Epic
	stories   []models.Story
	qa        []models.QATest
	testPlans []models.TestPlan
	states    map[string]models.SyncState
}

// NewWorkspace creates an empty workspace
func NewWorkspace(store SelectionStore, guard *RegenerationGuard) *Workspace {
	return &Workspace{
		store:  store,
		guard:  guard,
		states: map[string]models.SyncState{},
	}
}

// Restore reads the persisted selections without clearing anything
func (w *Workspace) Restore(ctx context.Context) error {
	var sel Selection
	targets := map[session.Role]*int64{
		session.RoleUpload:          &sel.UploadID,
		session.RoleEpicForStories:  &sel.EpicForStoriesID,
		session.RoleStory:           &sel.StoryID,
		session.RoleEpicForTestPlan: &sel.EpicForTestPlanID,
	}
	for role, target := range targets {
		id, err := w.store.Selection(ctx, role)
		if err != nil {
			return fmt.Errorf("failed to restore %s selection: %w", role, err)
		}
		*target = id
	}

	w.mu.Lock()
	w.sel = sel
	w.mu.Unlock()
	return nil
}

// Reset drops every selection, list and counter. It runs when a session
// starts or ends.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	w.sel = Selection{}
	w.epics, w.stories, w.qa, w.testPlans = nil, nil, nil, nil
	w.states = map[string]models.SyncState{}
	w.mu.Unlock()

	w.guard.forget()
	if err := w.store.ResetSelections(ctx); err != nil {
		return fmt.Errorf("failed to reset selections: %w", err)
	}
	return nil
}

// Selection returns the current selections
func (w *Workspace) Selection() Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sel
}

// Guard returns the QA regeneration guard
func (w *Workspace) Guard() *RegenerationGuard {
	return w.guard
}

// SelectUpload selects an upload and clears everything below it
func (w *Workspace) SelectUpload(ctx context.Context, id int64) error {
	w.mu.Lock()
	w.sel = Selection{UploadID: id}
	w.epics, w.stories, w.qa, w.testPlans = nil, nil, nil, nil
	w.states = map[string]models.SyncState{}
	w.mu.Unlock()

	return w.persist(ctx, map[session.Role]int64{
		session.RoleUpload:          id,
		session.RoleEpicForStories:  0,
		session.RoleStory:           0,
		session.RoleEpicForTestPlan: 0,
	})
}

// SelectEpicForStories selects the epic whose stories are worked on and
// clears the story selection with the story and QA lists
func (w *Workspace) SelectEpicForStories(ctx context.Context, id int64) error {
	w.mu.Lock()
	w.sel.EpicForStoriesID = id
	w.sel.StoryID = 0
	for _, s := range w.stories {
		delete(w.states, itemKey(models.KindStory, s.ID))
	}
	w.stories, w.qa = nil, nil
	w.mu.Unlock()

	return w.persist(ctx, map[session.Role]int64{
		session.RoleEpicForStories: id,
		session.RoleStory:          0,
	})
}

// SelectStory selects the story whose QA tests are worked on. Choosing a
// different story resets its QA counter and clears the QA list.
func (w *Workspace) SelectStory(ctx context.Context, id int64) error {
	w.mu.Lock()
	changed := w.sel.StoryID != id
	w.sel.StoryID = id
	if changed {
		w.qa = nil
	}
	w.mu.Unlock()

	if changed {
		if err := w.guard.Reset(ctx, id); err != nil {
			return err
		}
	}
	return w.persist(ctx, map[session.Role]int64{session.RoleStory: id})
}

// SelectEpicForTestPlan selects the epic whose test plans are worked on
func (w *Workspace) SelectEpicForTestPlan(ctx context.Context, id int64) error {
	w.mu.Lock()
	w.sel.EpicForTestPlanID = id
	w.testPlans = nil
	w.mu.Unlock()

	return w.persist(ctx, map[session.Role]int64{session.RoleEpicForTestPlan: id})
}

func (w *Workspace) persist(ctx context.Context, ids map[session.Role]int64) error {
	for _, role := range session.Roles {
		id, ok := ids[role]
		if !ok {
			continue
		}
		if err := w.store.SetSelection(ctx, role, id); err != nil {
			return fmt.Errorf("failed to save %s selection: %w", role, err)
		}
	}
	return nil
}

// Epics returns a copy of the epic list
func (w *Workspace) Epics() []models.Epic {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Epic(nil), w.epics...)
}

// Stories returns a copy of the story list
func (w *Workspace) Stories() []models.Story {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Story(nil), w.stories...)
}

// QA returns a copy of the QA test list
func (w *Workspace) QA() []models.QATest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.QATest(nil), w.qa...)
}

// TestPlans returns a copy of the test plan list
func (w *Workspace) TestPlans() []models.TestPlan {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.TestPlan(nil), w.testPlans...)
}

// Epic returns a loaded epic by id
func (w *Workspace) Epic(id int64) (models.Epic, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.epics {
		if e.ID == id {
			return e, true
		}
	}
	return models.Epic{}, false
}

// Story returns a loaded story by id
func (w *Workspace) Story(id int64) (models.Story, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.stories {
		if s.ID == id {
			return s, true
		}
	}
	return models.Story{}, false
}

// MergeEpics merges epics fetched for uploadID. It reports false and changes
// nothing when uploadID is no longer selected.
func (w *Workspace) MergeEpics(uploadID int64, epics []models.Epic) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if uploadID != w.sel.UploadID {
		return false
	}
	w.epics = MergeByID(w.epics, epics)
	w.settle(models.KindEpic, epics)
	return true
}

// MergeStories merges stories fetched for epicID
func (w *Workspace) MergeStories(epicID int64, stories []models.Story) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if epicID != w.sel.EpicForStoriesID {
		return false
	}
	w.stories = MergeByID(w.stories, stories)
	w.settle(models.KindStory, stories)
	return true
}

// MergeQA merges QA tests fetched for storyID, keeping the newest MaxQAResults
func (w *Workspace) MergeQA(storyID int64, tests []models.QATest) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if storyID != w.sel.StoryID {
		return false
	}
	w.qa = keepNewest(MergeByID(w.qa, tests), MaxQAResults)
	return true
}

// MergeTestPlans merges test plans fetched for epicID
func (w *Workspace) MergeTestPlans(epicID int64, plans []models.TestPlan) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if epicID != w.sel.EpicForTestPlanID {
		return false
	}
	w.testPlans = MergeByID(w.testPlans, plans)
	return true
}

// settle drops the local sync overlay of items the server now reports as
// synced. A local failure is kept since it carries the more specific reason.
// Callers hold w.mu.
func (w *Workspace) settle(kind models.ArtifactKind, items interface{}) {
	states := map[int64]models.SyncState{}
	switch list := items.(type) {
	case []models.Epic:
		for _, e := range list {
			states[e.ID] = e.SyncState()
		}
	case []models.Story:
		for _, s := range list {
			states[s.ID] = s.SyncState()
		}
	}

	for id, server := range states {
		key := itemKey(kind, id)
		local, ok := w.states[key]
		if !ok || local.Status == models.SyncPending {
			continue
		}
		if server.Status == models.SyncSuccess {
			delete(w.states, key)
		}
	}
}

// SetSyncState records the local sync state of one item
func (w *Workspace) SetSyncState(kind models.ArtifactKind, id int64, state models.SyncState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states[itemKey(kind, id)] = state
}

// EpicSyncState returns the sync state shown for an epic
func (w *Workspace) EpicSyncState(e models.Epic) models.SyncState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if state, ok := w.states[itemKey(models.KindEpic, e.ID)]; ok {
		return state
	}
	return e.SyncState()
}

// StorySyncState returns the sync state shown for a story
func (w *Workspace) StorySyncState(s models.Story) models.SyncState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if state, ok := w.states[itemKey(models.KindStory, s.ID)]; ok {
		return state
	}
	return s.SyncState()
}

// InFlight returns the keys of items currently being synced
func (w *Workspace) InFlight() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var keys []string
	for key, state := range w.states {
		if state.Status == models.SyncPending {
			keys = append(keys, key)
		}
	}
	return keys
}

// Retryable returns the keys of loaded epics and stories whose sync failed
func (w *Workspace) Retryable() []string {
	var keys []string
	for _, e := range w.Epics() {
		if w.EpicSyncState(e).Retryable() {
			keys = append(keys, itemKey(models.KindEpic, e.ID))
		}
	}
	for _, s := range w.Stories() {
		if w.StorySyncState(s).Retryable() {
			keys = append(keys, itemKey(models.KindStory, s.ID))
		}
	}
	return keys
}

// itemKey is the "<type>_<id>" key of an item's sync state
func itemKey(kind models.ArtifactKind, id int64) string {
	return fmt.Sprintf("%s_%d", kind, id)
}
