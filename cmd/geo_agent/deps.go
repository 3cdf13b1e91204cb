package main

import (
	"context"
	"fmt"

	"github.com/jonathan/geo-toolkit/internal/audit"
	"github.com/jonathan/geo-toolkit/internal/comparative"
	"github.com/jonathan/geo-toolkit/internal/factcheck"
	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/scrape"
	"github.com/jonathan/geo-toolkit/internal/search"
)

func newLLMClient(ctx context.Context) (llm.Client, error) {
	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func newAuditor(ctx context.Context, client llm.Client) (*audit.Auditor, error) {
	searcher, err := search.New(ctx, cfg.SearchSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}
	return audit.New(searcher, client,
		audit.WithLogger(logger.Named("audit")),
		audit.WithCallTimeout(cfg.CallTimeout),
	), nil
}

func newComparer(client llm.Client) (*comparative.Comparer, error) {
	scraper, err := scrape.New(cfg.ScrapeSettings(), logger.Named("scrape"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}
	return comparative.New(scraper, client,
		comparative.WithLogger(logger.Named("comparative")),
		comparative.WithCallTimeout(cfg.CallTimeout),
	), nil
}

func newChecker(client llm.Client) *factcheck.Checker {
	return factcheck.New(client,
		factcheck.WithLogger(logger.Named("factcheck")),
		factcheck.WithCallTimeout(cfg.CallTimeout),
	)
}
