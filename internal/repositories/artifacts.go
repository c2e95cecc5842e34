package repositories

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"requirement-analyzer/internal/models"
)

// findPageSize is the largest page the listing endpoints accept
const findPageSize = 100

// ArtifactRepository handles uploads, generation and retrieval of artifacts
type ArtifactRepository struct {
	client *Client
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(client *Client) *ArtifactRepository {
	return &ArtifactRepository{client: client}
}

// Upload submits a requirement document and returns the new upload id
func (r *ArtifactRepository) Upload(ctx context.Context, filename string, content io.Reader) (int64, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return 0, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish form: %w", err)
	}

	req := request{
		method:      http.MethodPost,
		path:        "/upload",
		route:       "/upload",
		body:        buf.Bytes(),
		contentType: form.FormDataContentType(),
	}

	var resp struct {
		UploadID int64 `json:"upload_id"`
	}
	if err := r.client.doJSON(ctx, req, &resp); err != nil {
		return 0, err
	}
	if resp.UploadID == 0 {
		return 0, fmt.Errorf("%w: missing upload_id", ErrUnexpectedEnvelope)
	}
	return resp.UploadID, nil
}

// ListUploads returns one page of the user's uploads, newest first
func (r *ArtifactRepository) ListUploads(ctx context.Context, opts models.ListOptions) (models.Page[models.Upload], error) {
	body, err := r.client.do(ctx, getRequest("/uploads", "/uploads", listQuery(opts)))
	if err != nil {
		return models.Page[models.Upload]{}, err
	}
	return decodePage[models.Upload](body, keyUploads)
}

// GenerateEpics asks the backend to generate epics for an upload
func (r *ArtifactRepository) GenerateEpics(ctx context.Context, uploadID int64) ([]models.Epic, error) {
	return generate[models.Epic](ctx, r.client, "/generate-epics/", uploadID, keyEpics)
}

// GenerateStories asks the backend to generate stories for an epic
func (r *ArtifactRepository) GenerateStories(ctx context.Context, epicID int64) ([]models.Story, error) {
	return generate[models.Story](ctx, r.client, "/generate-stories/", epicID, keyStories)
}

// GenerateQA asks the backend to generate QA tests for a story
func (r *ArtifactRepository) GenerateQA(ctx context.Context, storyID int64) ([]models.QATest, error) {
	return generate[models.QATest](ctx, r.client, "/generate-qa/", storyID, keyQATests)
}

// GenerateTestPlans asks the backend to generate test plans for an epic
func (r *ArtifactRepository) GenerateTestPlans(ctx context.Context, epicID int64) ([]models.TestPlan, error) {
	return generate[models.TestPlan](ctx, r.client, "/generate-testplan/", epicID, keyTestPlans)
}

// EpicsForUpload returns every epic generated for an upload
func (r *ArtifactRepository) EpicsForUpload(ctx context.Context, uploadID int64) ([]models.Epic, error) {
	return children[models.Epic](ctx, r.client, "/epics/", uploadID, keyEpics)
}

// StoriesForEpic returns every story generated for an epic
func (r *ArtifactRepository) StoriesForEpic(ctx context.Context, epicID int64) ([]models.Story, error) {
	return children[models.Story](ctx, r.client, "/stories/", epicID, keyStories)
}

// QAForStory returns every QA test generated for a story
func (r *ArtifactRepository) QAForStory(ctx context.Context, storyID int64) ([]models.QATest, error) {
	return children[models.QATest](ctx, r.client, "/qa/", storyID, keyQATests)
}

// TestPlansForEpic returns every test plan generated for an epic
func (r *ArtifactRepository) TestPlansForEpic(ctx context.Context, epicID int64) ([]models.TestPlan, error) {
	return children[models.TestPlan](ctx, r.client, "/testplans/", epicID, keyTestPlans)
}

// ListEpics returns one page of all epics
func (r *ArtifactRepository) ListEpics(ctx context.Context, opts models.ListOptions) (models.Page[models.Epic], error) {
	return list[models.Epic](ctx, r.client, "/epics", opts, keyEpics)
}

// FindEpic looks an epic up by id across every upload, or returns nil when
// the user has no such epic
func (r *ArtifactRepository) FindEpic(ctx context.Context, epicID int64) (*models.Epic, error) {
	opts := models.ListOptions{Page: 1, PageSize: findPageSize, SortBy: "created_at", SortOrder: "desc"}
	for {
		page, err := r.ListEpics(ctx, opts)
		if err != nil {
			return nil, err
		}
		for i := range page.Items {
			if page.Items[i].ID == epicID {
				return &page.Items[i], nil
			}
		}
		if len(page.Items) == 0 || opts.Page >= page.TotalPages {
			return nil, nil
		}
		opts.Page++
	}
}

// ListStories returns one page of all stories
func (r *ArtifactRepository) ListStories(ctx context.Context, opts models.ListOptions) (models.Page[models.Story], error) {
	return list[models.Story](ctx, r.client, "/stories", opts, keyStories)
}

// ListQA returns one page of all QA tests
func (r *ArtifactRepository) ListQA(ctx context.Context, opts models.ListOptions) (models.Page[models.QATest], error) {
	return list[models.QATest](ctx, r.client, "/qa", opts, keyQATests)
}

// ListTestPlans returns one page of all test plans
func (r *ArtifactRepository) ListTestPlans(ctx context.Context, opts models.ListOptions) (models.Page[models.TestPlan], error) {
	return list[models.TestPlan](ctx, r.client, "/testplans", opts, keyTestPlans)
}

func generate[T any](ctx context.Context, c *Client, prefix string, parentID int64, key string) ([]T, error) {
	req := request{
		method: http.MethodPost,
		path:   prefix + strconv.FormatInt(parentID, 10),
		route:  prefix + "{id}",
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[T](body, key)
}

// children fetches the artifacts under one parent. The backend answers 404
// when the parent has none yet, which is reported as an empty list.
func children[T any](ctx context.Context, c *Client, prefix string, parentID int64, key string) ([]T, error) {
	body, err := c.do(ctx, getRequest(prefix+strconv.FormatInt(parentID, 10), prefix+"{id}", nil))
	if IsNotFound(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeList[T](body, key)
}

func list[T any](ctx context.Context, c *Client, path string, opts models.ListOptions, key string) (models.Page[T], error) {
	body, err := c.do(ctx, getRequest(path, path, listQuery(opts)))
	if err != nil {
		return models.Page[T]{}, err
	}
	return decodePage[T](body, key)
}

func getRequest(path, route string, query url.Values) request {
	return request{method: http.MethodGet, path: path, route: route, query: query}
}

func listQuery(opts models.ListOptions) url.Values {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sort_order", opts.SortOrder)
	}
	return q
}
