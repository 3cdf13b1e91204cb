// Package types provides the data contracts shared by the GEO pipelines.
//
//nolint:revive // types is a standard Go package name pattern
package types

// SearchResult is a single ranked web result returned by a search backend.
// Results are immutable once returned.
type SearchResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	ContentSnippet string  `json:"content"`
	RawContent     string  `json:"raw_content,omitempty"`
	RelevanceScore float64 `json:"score"`
}

// AnalysisText returns the text that should be sent for brand analysis:
// the raw page content when present, otherwise the snippet.
func (r SearchResult) AnalysisText() string {
	if r.RawContent != "" {
		return r.RawContent
	}
	return r.ContentSnippet
}

// ScrapedPage is the normalized markdown for one URL.
// Either Markdown is non-empty or Error is set.
type ScrapedPage struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the page carries usable content.
func (p ScrapedPage) OK() bool {
	return p.Error == "" && p.Markdown != ""
}
