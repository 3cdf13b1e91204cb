// Package scrape turns a URL into Markdown for the comparative pipeline.
// Scrapers never fail with a Go error: every problem is reported in
// ScrapedPage.Error so both pages of a comparison always settle.
package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/geo-toolkit/internal/types"
)

// Scraper fetches a page and returns its Markdown.
type Scraper interface {
	Scrape(ctx context.Context, url string) types.ScrapedPage
}

// Error is a scrape failure. Message is shown to the user.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// pageFrom converts a scrape outcome into a ScrapedPage that holds either
// Markdown or an Error, never both and never neither.
func pageFrom(url, markdown string, err error) types.ScrapedPage {
	if err != nil {
		return types.ScrapedPage{URL: url, Error: err.Error()}
	}
	if strings.TrimSpace(markdown) == "" {
		return types.ScrapedPage{URL: url, Error: fmt.Sprintf("No content could be extracted from %s", url)}
	}
	return types.ScrapedPage{URL: url, Markdown: markdown}
}
