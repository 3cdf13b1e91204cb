package search

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a search backend.
const (
	ProviderTavily = "tavily"
	ProviderGoogle = "google"
)

// Settings selects and configures a backend.
type Settings struct {
	Provider     string
	TavilyAPIKey string
	GoogleAPIKey string
	GoogleCX     string
}

// New builds the Searcher named by s.Provider. An empty provider means Tavily.
func New(ctx context.Context, s Settings) (Searcher, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderTavily:
		return NewTavilyClient(s.TavilyAPIKey), nil
	case ProviderGoogle:
		return NewGoogleClient(ctx, s.GoogleAPIKey, s.GoogleCX)
	default:
		return nil, fmt.Errorf("unknown search provider %q (expected %q or %q)", s.Provider, ProviderTavily, ProviderGoogle)
	}
}
