package search

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/geo-toolkit/internal/types"
)

// GoogleClient searches with the Google Custom Search JSON API.
type GoogleClient struct {
	service *customsearch.Service
	cx      string
}

// NewGoogleClient creates a Custom Search backed searcher for the search
// engine cx. Extra options are passed to the API client.
func NewGoogleClient(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, &MissingKeyError{Provider: "Google Custom Search", EnvVar: "GOOGLE_SEARCH_API_KEY"}
	}
	if cx == "" {
		return nil, &MissingKeyError{Provider: "Google Custom Search engine ID", EnvVar: "GOOGLE_SEARCH_CX"}
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	return &GoogleClient{service: svc, cx: cx}, nil
}

// Search implements Searcher. Custom Search returns no relevance score, so
// the score decreases with position: 1.0, 0.8, 0.6 and so on.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	resp, err := c.service.Cse.List().Cx(c.cx).Q(query).Num(MaxResults).Context(ctx).Do()
	if err != nil {
		apiErr := &APIError{Provider: "google", Message: "Google Custom Search failed", Cause: err}
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			apiErr.StatusCode = gErr.Code
			if gErr.Message != "" {
				apiErr.Message = gErr.Message
				apiErr.Cause = nil
			}
		}
		return nil, apiErr
	}

	results := make([]types.SearchResult, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, types.SearchResult{
			Title:          item.Title,
			URL:            item.Link,
			ContentSnippet: item.Snippet,
			RelevanceScore: positionScore(i),
		})
	}
	return results, nil
}

func positionScore(index int) float64 {
	score := 1.0 - 0.2*float64(index)
	if score < 0.1 {
		return 0.1
	}
	return score
}
