package services

import (
	"context"
	"fmt"
	"time"

	"requirement-analyzer/internal/metrics"
	"requirement-analyzer/internal/models"
)

// ArtifactAPI is the part of the backend that generates and returns artifacts
type ArtifactAPI interface {
	GenerateEpics(ctx context.Context, uploadID int64) ([]models.Epic, error)
	GenerateStories(ctx context.Context, epicID int64) ([]models.Story, error)
	GenerateQA(ctx context.Context, storyID int64) ([]models.QATest, error)
	GenerateTestPlans(ctx context.Context, epicID int64) ([]models.TestPlan, error)

	EpicsForUpload(ctx context.Context, uploadID int64) ([]models.Epic, error)
	StoriesForEpic(ctx context.Context, epicID int64) ([]models.Story, error)
	QAForStory(ctx context.Context, storyID int64) ([]models.QATest, error)
	TestPlansForEpic(ctx context.Context, epicID int64) ([]models.TestPlan, error)

	FindEpic(ctx context.Context, epicID int64) (*models.Epic, error)
}

// Availability tells whether a generate action may run, and why not
type Availability struct {
	Enabled bool
	Reason  string
}

// Generator drives one generation request per artifact kind
type Generator struct {
	api      ArtifactAPI
	ws       *Workspace
	syncer   *Syncer
	notify   Notifier
	metrics  metrics.Recorder
	progress ProgressFunc
}

// NewGenerator creates a generation orchestrator
func NewGenerator(api ArtifactAPI, ws *Workspace, syncer *Syncer, notify Notifier, rec metrics.Recorder) *Generator {
	if notify == nil {
		notify = quietNotifier{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Generator{
		api:      api,
		ws:       ws,
		syncer:   syncer,
		notify:   notify,
		metrics:  rec,
		progress: func(models.ArtifactKind, int) {},
	}
}

// OnProgress sets the progress callback
func (g *Generator) OnProgress(fn ProgressFunc) {
	if fn == nil {
		fn = func(models.ArtifactKind, int) {}
	}
	g.progress = fn
}

// Load fetches the lists under every current selection
func (g *Generator) Load(ctx context.Context) error {
	sel := g.ws.Selection()
	if sel.UploadID != 0 {
		if err := g.reconcile(ctx, models.KindEpic, sel.UploadID); err != nil {
			return err
		}
	}
	if sel.EpicForStoriesID != 0 {
		if err := g.reconcile(ctx, models.KindStory, sel.EpicForStoriesID); err != nil {
			return err
		}
	}
	if sel.StoryID != 0 {
		if err := g.reconcile(ctx, models.KindQA, sel.StoryID); err != nil {
			return err
		}
	}
	if sel.EpicForTestPlanID != 0 {
		if err := g.reconcile(ctx, models.KindTestPlan, sel.EpicForTestPlanID); err != nil {
			return err
		}
	}
	return nil
}

// Availability reports whether kind can be generated right now
func (g *Generator) Availability(kind models.ArtifactKind) Availability {
	if err := g.check(kind); err != nil {
		return Availability{Reason: UserMessage(err)}
	}
	return Availability{Enabled: true}
}

func (g *Generator) check(kind models.ArtifactKind) error {
	sel := g.ws.Selection()
	switch kind {
	case models.KindEpic:
		if sel.UploadID == 0 {
			return fmt.Errorf("%w: select an upload first", ErrNotSelected)
		}
		if len(g.ws.Epics()) > 0 {
			return fmt.Errorf("%w: upload %d already has epics", ErrAlreadyGenerated, sel.UploadID)
		}
	case models.KindStory:
		if sel.EpicForStoriesID == 0 {
			return fmt.Errorf("%w: select an epic first", ErrNotSelected)
		}
		if len(g.ws.Stories()) > 0 {
			return fmt.Errorf("%w: epic %d already has stories", ErrAlreadyGenerated, sel.EpicForStoriesID)
		}
	case models.KindQA:
		if sel.StoryID == 0 {
			return fmt.Errorf("%w: select a story first", ErrNotSelected)
		}
		return g.ws.Guard().Check(sel.StoryID, len(g.ws.QA()))
	case models.KindTestPlan:
		if sel.EpicForTestPlanID == 0 {
			return fmt.Errorf("%w: select an epic for the test plan first", ErrNotSelected)
		}
		if len(g.ws.TestPlans()) > 0 {
			return fmt.Errorf("%w: epic %d already has a test plan", ErrAlreadyGenerated, sel.EpicForTestPlanID)
		}
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown artifact kind %q", kind)}
	}
	return nil
}

// GenerateEpics generates epics for the selected upload, then syncs them
func (g *Generator) GenerateEpics(ctx context.Context) ([]models.Epic, error) {
	if err := g.check(models.KindEpic); err != nil {
		return nil, err
	}
	uploadID := g.ws.Selection().UploadID

	epics, err := run(ctx, g, models.KindEpic, func(ctx context.Context) ([]models.Epic, error) {
		return g.api.GenerateEpics(ctx, uploadID)
	})
	if err != nil {
		return nil, err
	}

	g.ws.MergeEpics(uploadID, epics)
	g.notify.Success("Generated %d %s", len(epics), plural(models.KindEpic, len(epics)))

	if _, err := g.syncer.AfterEpicGeneration(ctx, epics); err != nil {
		g.notify.Warning("Jira sync stopped: %s", UserMessage(err))
	}
	g.reconcileQuietly(ctx, models.KindEpic, uploadID)
	return g.ws.Epics(), nil
}

// GenerateStories generates stories for the selected epic, then syncs them
func (g *Generator) GenerateStories(ctx context.Context) ([]models.Story, error) {
	if err := g.check(models.KindStory); err != nil {
		return nil, err
	}
	epicID := g.ws.Selection().EpicForStoriesID

	stories, err := run(ctx, g, models.KindStory, func(ctx context.Context) ([]models.Story, error) {
		return g.api.GenerateStories(ctx, epicID)
	})
	if err != nil {
		return nil, err
	}

	g.ws.MergeStories(epicID, stories)
	g.notify.Success("Generated %d %s", len(stories), plural(models.KindStory, len(stories)))

	parent, err := g.syncer.ParentEpic(ctx, epicID)
	if err != nil {
		g.notify.Warning("Jira sync skipped: %s", UserMessage(err))
	} else if _, err := g.syncer.AfterStoryGeneration(ctx, parent, stories); err != nil {
		g.notify.Warning("Jira sync stopped: %s", UserMessage(err))
	}
	g.reconcileQuietly(ctx, models.KindStory, epicID)
	return g.ws.Stories(), nil
}

// GenerateQA generates QA tests for the selected story. Each success counts
// as one attempt against MaxQAAttempts.
func (g *Generator) GenerateQA(ctx context.Context) ([]models.QATest, error) {
	if err := g.check(models.KindQA); err != nil {
		return nil, err
	}
	storyID := g.ws.Selection().StoryID

	tests, err := run(ctx, g, models.KindQA, func(ctx context.Context) ([]models.QATest, error) {
		return g.api.GenerateQA(ctx, storyID)
	})
	if err != nil {
		return nil, err
	}

	if err := g.ws.Guard().Record(ctx, storyID); err != nil {
		g.notify.Warning("Could not save QA attempt: %v", err)
	}
	g.ws.MergeQA(storyID, tests)
	g.notify.Success("Generated %d %s (attempt %d/%d)", len(tests), plural(models.KindQA, len(tests)),
		g.ws.Guard().Attempts(storyID), MaxQAAttempts)

	g.reconcileQuietly(ctx, models.KindQA, storyID)
	return g.ws.QA(), nil
}

// GenerateTestPlans generates test plans for the selected epic
func (g *Generator) GenerateTestPlans(ctx context.Context) ([]models.TestPlan, error) {
	if err := g.check(models.KindTestPlan); err != nil {
		return nil, err
	}
	epicID := g.ws.Selection().EpicForTestPlanID

	plans, err := run(ctx, g, models.KindTestPlan, func(ctx context.Context) ([]models.TestPlan, error) {
		return g.api.GenerateTestPlans(ctx, epicID)
	})
	if err != nil {
		return nil, err
	}

	g.ws.MergeTestPlans(epicID, plans)
	g.notify.Success("Generated %d %s", len(plans), plural(models.KindTestPlan, len(plans)))

	g.reconcileQuietly(ctx, models.KindTestPlan, epicID)
	return g.ws.TestPlans(), nil
}

// run walks the progress milestones around one generation call and records
// its outcome. Progress is back at idle when run returns.
func run[T any](ctx context.Context, g *Generator, kind models.ArtifactKind, call func(context.Context) ([]T, error)) ([]T, error) {
	start := time.Now()
	g.progress(kind, ProgressStarted)
	defer g.progress(kind, ProgressIdle)

	g.progress(kind, ProgressRequested)
	items, err := call(ctx)
	if err != nil {
		g.metrics.ObserveGeneration(string(kind), "error", 0, time.Since(start))
		return nil, fmt.Errorf("failed to generate %s: %w", plural(kind, 2), err)
	}
	g.progress(kind, ProgressProcessing)

	g.metrics.ObserveGeneration(string(kind), "success", len(items), time.Since(start))
	return items, nil
}

func (g *Generator) reconcileQuietly(ctx context.Context, kind models.ArtifactKind, parentID int64) {
	if err := g.reconcile(ctx, kind, parentID); err != nil {
		g.notify.Warning("Could not refresh %s: %s", plural(kind, 2), UserMessage(err))
	}
}

// reconcile fetches the server copy of a list and merges it by id
func (g *Generator) reconcile(ctx context.Context, kind models.ArtifactKind, parentID int64) error {
	switch kind {
	case models.KindEpic:
		epics, err := g.api.EpicsForUpload(ctx, parentID)
		if err != nil {
			return fmt.Errorf("failed to fetch epics: %w", err)
		}
		g.ws.MergeEpics(parentID, epics)
	case models.KindStory:
		stories, err := g.api.StoriesForEpic(ctx, parentID)
		if err != nil {
			return fmt.Errorf("failed to fetch stories: %w", err)
		}
		g.ws.MergeStories(parentID, stories)
	case models.KindQA:
		tests, err := g.api.QAForStory(ctx, parentID)
		if err != nil {
			return fmt.Errorf("failed to fetch QA tests: %w", err)
		}
		g.ws.MergeQA(parentID, tests)
	case models.KindTestPlan:
		plans, err := g.api.TestPlansForEpic(ctx, parentID)
		if err != nil {
			return fmt.Errorf("failed to fetch test plans: %w", err)
		}
		g.ws.MergeTestPlans(parentID, plans)
	}
	return nil
}
