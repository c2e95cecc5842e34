package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"requirement-analyzer/internal/models"
)

// MinSimilarity is the lowest similarity percentage shown
const MinSimilarity = 45.0

// Band is the color band of a similarity percentage
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// BandFor returns the band of a similarity percentage
func BandFor(pct float64) Band {
	switch {
	case pct > 70:
		return BandGreen
	case pct > 50:
		return BandYellow
	default:
		return BandRed
	}
}

var criteriaLabel = regexp.MustCompile(`(?i)acceptanceCriteria[:\s]*`)

// SearchAPI is the vector-store search endpoint
type SearchAPI interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
}

// SearchService runs semantic searches
type SearchService struct {
	api SearchAPI
}

// NewSearchService creates a search service
func NewSearchService(api SearchAPI) *SearchService {
	return &SearchService{api: api}
}

// Search returns the results at or above MinSimilarity, cleaned for display
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK < 1 || topK > 10 {
		return nil, &ValidationError{Field: "top_k", Message: "top_k must be between 1 and 10"}
	}

	raw, err := s.api.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(raw))
	for _, r := range raw {
		if r.SimilarityPercentage < MinSimilarity {
			continue
		}
		r.Text = cleanText(r.Text)
		r.FullText = cleanText(r.FullText)
		if r.Text == "" && r.FullText == "" {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func cleanText(s string) string {
	return strings.TrimSpace(criteriaLabel.ReplaceAllString(s, ""))
}
