package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonathan/geo-toolkit/internal/types"
)

// TavilyEndpoint is the Tavily search API URL.
const TavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient searches with the Tavily API.
type TavilyClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// TavilyOption configures a TavilyClient.
type TavilyOption func(*TavilyClient)

// WithTavilyEndpoint overrides the API URL.
func WithTavilyEndpoint(endpoint string) TavilyOption {
	return func(c *TavilyClient) { c.endpoint = endpoint }
}

// WithTavilyHTTPClient overrides the HTTP client.
func WithTavilyHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) { c.httpClient = client }
}

// NewTavilyClient creates a Tavily searcher. A missing key is reported on
// the first Search call, not here.
func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:     apiKey,
		endpoint:   TavilyEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeImages     bool   `json:"include_images"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer,omitempty"`
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent *string `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// tavilyError covers both {"error": "..."} and {"detail": {"error": "..."}}.
type tavilyError struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func (e tavilyError) message() string {
	if e.Error != "" {
		return e.Error
	}
	if len(e.Detail) == 0 {
		return ""
	}
	var nested struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Detail, &nested); err == nil && nested.Error != "" {
		return nested.Error
	}
	var text string
	if err := json.Unmarshal(e.Detail, &text); err == nil {
		return text
	}
	return ""
}

// Search implements Searcher.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	if c.apiKey == "" {
		return nil, &MissingKeyError{Provider: "Tavily", EnvVar: "TAVILY_API_KEY"}
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:            c.apiKey,
		Query:             query,
		SearchDepth:       "advanced",
		IncludeRawContent: true,
		MaxResults:        MaxResults,
		IncludeAnswer:     false,
		IncludeImages:     false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Provider: "tavily", Message: "failed to create Tavily request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Provider: "tavily", Message: "Tavily request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Provider: "tavily", StatusCode: resp.StatusCode, Message: "failed to read Tavily response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr tavilyError
		msg := ""
		if json.Unmarshal(respBody, &apiErr) == nil {
			msg = apiErr.message()
		}
		if msg == "" {
			msg = fmt.Sprintf("Tavily API failed with status %d", resp.StatusCode)
		}
		return nil, &APIError{Provider: "tavily", StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &APIError{Provider: "tavily", StatusCode: resp.StatusCode, Message: "failed to decode Tavily response", Cause: err}
	}

	results := make([]types.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		result := types.SearchResult{
			Title:          r.Title,
			URL:            r.URL,
			ContentSnippet: r.Content,
			RelevanceScore: r.Score,
		}
		if r.RawContent != nil {
			result.RawContent = *r.RawContent
		}
		results = append(results, result)
	}
	return results, nil
}
