package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"requirement-analyzer/internal/models"
)

// RecentPageSize is the number of items per list on the history view
const RecentPageSize = 5

// ListingAPI is the paginated listing surface of the backend
type ListingAPI interface {
	ListUploads(ctx context.Context, opts models.ListOptions) (models.Page[models.Upload], error)
	ListEpics(ctx context.Context, opts models.ListOptions) (models.Page[models.Epic], error)
	ListStories(ctx context.Context, opts models.ListOptions) (models.Page[models.Story], error)
	ListQA(ctx context.Context, opts models.ListOptions) (models.Page[models.QATest], error)
	ListTestPlans(ctx context.Context, opts models.ListOptions) (models.Page[models.TestPlan], error)
}

// Recent is the newest page of every artifact list
type Recent struct {
	Epics     models.Page[models.Epic]
	Stories   models.Page[models.Story]
	QA        models.Page[models.QATest]
	TestPlans models.Page[models.TestPlan]
}

// HistoryService browses everything the user generated
type HistoryService struct {
	api ListingAPI
}

// NewHistoryService creates a history service
func NewHistoryService(api ListingAPI) *HistoryService {
	return &HistoryService{api: api}
}

// Recent fetches the newest RecentPageSize items of each list concurrently
func (s *HistoryService) Recent(ctx context.Context) (*Recent, error) {
	opts := models.ListOptions{Page: 1, PageSize: RecentPageSize, SortBy: "created_at", SortOrder: "desc"}
	var recent Recent

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.api.ListEpics(ctx, opts)
		recent.Epics = page
		return wrapList("epics", err)
	})
	g.Go(func() error {
		page, err := s.api.ListStories(ctx, opts)
		recent.Stories = page
		return wrapList("stories", err)
	})
	g.Go(func() error {
		page, err := s.api.ListQA(ctx, opts)
		recent.QA = page
		return wrapList("QA tests", err)
	})
	g.Go(func() error {
		page, err := s.api.ListTestPlans(ctx, opts)
		recent.TestPlans = page
		return wrapList("test plans", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &recent, nil
}

// Uploads returns one page of uploads
func (s *HistoryService) Uploads(ctx context.Context, opts models.ListOptions) (models.Page[models.Upload], error) {
	page, err := s.api.ListUploads(ctx, normalize(opts))
	return page, wrapList("uploads", err)
}

// Epics returns one page of epics
func (s *HistoryService) Epics(ctx context.Context, opts models.ListOptions) (models.Page[models.Epic], error) {
	page, err := s.api.ListEpics(ctx, normalize(opts))
	return page, wrapList("epics", err)
}

// Stories returns one page of stories
func (s *HistoryService) Stories(ctx context.Context, opts models.ListOptions) (models.Page[models.Story], error) {
	page, err := s.api.ListStories(ctx, normalize(opts))
	return page, wrapList("stories", err)
}

// QA returns one page of QA tests
func (s *HistoryService) QA(ctx context.Context, opts models.ListOptions) (models.Page[models.QATest], error) {
	page, err := s.api.ListQA(ctx, normalize(opts))
	return page, wrapList("QA tests", err)
}

// TestPlans returns one page of test plans
func (s *HistoryService) TestPlans(ctx context.Context, opts models.ListOptions) (models.Page[models.TestPlan], error) {
	page, err := s.api.ListTestPlans(ctx, normalize(opts))
	return page, wrapList("test plans", err)
}

// normalize fills in the defaults of the listing pages
func normalize(opts models.ListOptions) models.ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 10
	}
	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}
	if opts.SortOrder != "asc" {
		opts.SortOrder = "desc"
	}
	return opts
}

func wrapList(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
