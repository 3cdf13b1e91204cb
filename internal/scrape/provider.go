package scrape

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/fetch"
)

// Provider names a scrape backend.
const (
	ProviderFirecrawl = "firecrawl"
	ProviderDirect    = "direct"
)

// Settings selects and configures a backend.
type Settings struct {
	Provider        string
	FirecrawlAPIKey string
	UseBrowser      bool
	BrowserTimeout  time.Duration
}

// New builds the Scraper named by s.Provider. An empty provider means Firecrawl.
func New(s Settings, logger *zap.Logger) (Scraper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderFirecrawl:
		return NewFirecrawlClient(s.FirecrawlAPIKey), nil
	case ProviderDirect:
		opts := []DirectOption{WithLogger(logger)}
		if s.UseBrowser {
			opts = append(opts, WithRenderer(fetch.BrowserRenderer{Timeout: s.BrowserTimeout, Logger: logger}))
		}
		return NewDirectScraper(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scrape provider %q (expected %q or %q)", s.Provider, ProviderFirecrawl, ProviderDirect)
	}
}
