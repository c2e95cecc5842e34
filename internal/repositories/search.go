package repositories

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"requirement-analyzer/internal/models"
)

// SearchRepository handles the vector-store search endpoint
type SearchRepository struct {
	client *Client
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(client *Client) *SearchRepository {
	return &SearchRepository{client: client}
}

// Search returns the topK most similar documents, epics and test plans
func (r *SearchRepository) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	req := request{
		method: http.MethodPost,
		path:   "/rag/vectorstore-search",
		route:  "/rag/vectorstore-search",
		query: url.Values{
			"query": {query},
			"top_k": {strconv.Itoa(topK)},
		},
	}
	body, err := r.client.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[models.SearchResult](body, keyResults)
}
