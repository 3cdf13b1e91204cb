package scrape

import (
	"context"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/fetch"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// DirectScraper fetches pages itself and converts the main content to
// Markdown. Pages whose plain HTML carries too little text are rendered in
// a headless browser when a Renderer is configured.
type DirectScraper struct {
	fetchOpts *fetch.Options
	renderer  fetch.Renderer
	converter *converter.Converter
	logger    *zap.Logger
}

// DirectOption configures a DirectScraper.
type DirectOption func(*DirectScraper)

// WithFetchOptions sets the HTTP fetch options.
func WithFetchOptions(opts *fetch.Options) DirectOption {
	return func(s *DirectScraper) { s.fetchOpts = opts }
}

// WithRenderer enables the browser fallback.
func WithRenderer(r fetch.Renderer) DirectOption {
	return func(s *DirectScraper) { s.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) DirectOption {
	return func(s *DirectScraper) { s.logger = logger }
}

// NewDirectScraper creates a scraper that needs no API key.
func NewDirectScraper(opts ...DirectOption) *DirectScraper {
	s := &DirectScraper{
		fetchOpts: fetch.DefaultOptions(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape implements Scraper.
func (s *DirectScraper) Scrape(ctx context.Context, url string) types.ScrapedPage {
	markdown, err := s.scrape(ctx, url)
	return pageFrom(url, markdown, err)
}

func (s *DirectScraper) scrape(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", &Error{URL: url, Message: "No URL provided"}
	}

	result, err := fetch.URL(ctx, url, s.fetchOpts)
	if err != nil {
		return "", &Error{URL: url, Message: "Failed to scrape " + url, Cause: err}
	}

	content, err := fetch.ExtractContent(result.HTML, fetch.DefaultContentSelectors())
	if err != nil {
		return "", &Error{URL: url, Message: "Failed to parse " + url, Cause: err}
	}

	if s.renderer != nil && fetch.ShouldUseBrowser(content.Text) {
		s.logger.Debug("page text below threshold, rendering in browser",
			zap.String("url", url), zap.Int("text_len", len(content.Text)))
		rendered, renderErr := s.renderer.Render(ctx, url)
		if renderErr != nil {
			// Keep the plain HTTP content rather than failing the page.
			s.logger.Warn("browser render failed", zap.String("url", url), zap.Error(renderErr))
		} else if renderedContent, parseErr := fetch.ExtractContent(rendered, fetch.DefaultContentSelectors()); parseErr == nil {
			content = renderedContent
		}
	}

	return s.toMarkdown(content, url), nil
}

// toMarkdown converts the cleaned HTML, falling back to plain text.
func (s *DirectScraper) toMarkdown(content *fetch.Content, url string) string {
	markdown, err := s.converter.ConvertString(content.HTML, converter.WithDomain(url))
	if err != nil || strings.TrimSpace(markdown) == "" {
		return content.Text
	}
	markdown = strings.TrimSpace(markdown)
	if content.Title != "" && !strings.HasPrefix(markdown, "# ") {
		markdown = "# " + content.Title + "\n\n" + markdown
	}
	return markdown
}
