package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/geo-toolkit/internal/types"
)

// FirecrawlEndpoint is the Firecrawl v1 scrape API URL.
const FirecrawlEndpoint = "https://api.firecrawl.dev/v1/scrape"

// FirecrawlClient scrapes pages through the Firecrawl API.
type FirecrawlClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// FirecrawlOption configures a FirecrawlClient.
type FirecrawlOption func(*FirecrawlClient)

// WithFirecrawlEndpoint overrides the API URL.
func WithFirecrawlEndpoint(endpoint string) FirecrawlOption {
	return func(c *FirecrawlClient) { c.endpoint = endpoint }
}

// WithFirecrawlHTTPClient overrides the HTTP client.
func WithFirecrawlHTTPClient(client *http.Client) FirecrawlOption {
	return func(c *FirecrawlClient) { c.httpClient = client }
}

// NewFirecrawlClient creates a Firecrawl scraper.
func NewFirecrawlClient(apiKey string, opts ...FirecrawlOption) *FirecrawlClient {
	c := &FirecrawlClient{
		apiKey:     apiKey,
		endpoint:   FirecrawlEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type firecrawlRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    *struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Scrape implements Scraper.
func (c *FirecrawlClient) Scrape(ctx context.Context, url string) types.ScrapedPage {
	markdown, err := c.scrape(ctx, url)
	return pageFrom(url, markdown, err)
}

func (c *FirecrawlClient) scrape(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", &Error{URL: url, Message: "No URL provided"}
	}
	if c.apiKey == "" {
		return "", &Error{URL: url, Message: "Firecrawl API Key is missing. Please set FIRECRAWL_API_KEY in .env"}
	}

	body, err := json.Marshal(firecrawlRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return "", &Error{URL: url, Message: "failed to encode Firecrawl request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{URL: url, Message: "failed to create Firecrawl request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{URL: url, Message: fmt.Sprintf("Failed to scrape %s", url), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Message: "failed to read Firecrawl response", Cause: err}
	}

	var parsed firecrawlResponse
	decodeErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && parsed.Error != "" {
			return "", &Error{URL: url, Message: parsed.Error}
		}
		return "", &Error{URL: url, Message: fmt.Sprintf("Failed to scrape %s: %s", url, http.StatusText(resp.StatusCode))}
	}
	if decodeErr != nil {
		return "", &Error{URL: url, Message: "failed to decode Firecrawl response", Cause: decodeErr}
	}
	if parsed.Data == nil {
		return "", nil
	}
	return parsed.Data.Markdown, nil
}
