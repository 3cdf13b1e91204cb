// Package search runs web searches for the audit pipeline.
// Tavily is the default backend; Google Custom Search is the alternative.
package search

import (
	"context"
	"fmt"

	"github.com/jonathan/geo-toolkit/internal/types"
)

// MaxResults is how many results a search asks the backend for.
const MaxResults = 5

// Searcher returns ranked web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.SearchResult, error)
}

// APIError represents a failed call to a search backend. Message is the
// text shown to the user.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// MissingKeyError reports a backend that was used without credentials.
type MissingKeyError struct {
	Provider string
	EnvVar   string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s API key is missing. Please set %s in .env", e.Provider, e.EnvVar)
}
