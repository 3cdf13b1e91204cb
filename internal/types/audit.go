//nolint:revive // types is a standard Go package name pattern
package types

// Sentiment describes how a page portrays a brand.
type Sentiment string

// Sentiment values accepted from the analysis model.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// Sentiments lists every valid sentiment in schema order.
func Sentiments() []string {
	return []string{
		string(SentimentPositive),
		string(SentimentNeutral),
		string(SentimentNegative),
		string(SentimentMixed),
	}
}

// FallbackAnalysisSummary is the summary stored when analysis of a page fails.
const FallbackAnalysisSummary = "Failed to analyze this content."

// Analysis is the brand-mention judgement for one page.
type Analysis struct {
	Mentioned     bool      `json:"mentioned"`
	Sentiment     Sentiment `json:"sentiment"`
	Summary       string    `json:"summary"`
	AuthorName    string    `json:"authorName,omitempty"`
	AuthorEmail   string    `json:"authorEmail,omitempty"`
	OutreachEmail string    `json:"outreachEmail,omitempty"`
}

// Normalize enforces that outreach is only kept for missed mentions.
func (a *Analysis) Normalize() {
	if a.Mentioned {
		a.OutreachEmail = ""
	}
}

// FallbackAnalysis is substituted when the analysis call fails.
func FallbackAnalysis() Analysis {
	return Analysis{
		Mentioned: false,
		Sentiment: SentimentNeutral,
		Summary:   FallbackAnalysisSummary,
	}
}

// IsFallback reports whether a carries the deterministic failure value.
func (a Analysis) IsFallback() bool {
	return a == FallbackAnalysis()
}

// AuditItem is a search result after de-duplication.
// Rank is 1-based and assigned once; Analysis is nil until the page has been analyzed.
type AuditItem struct {
	SearchResult
	Rank     int       `json:"rank"`
	Analysis *Analysis `json:"analysis"`
}

// AuditStatus is the state of an audit run.
type AuditStatus string

// Audit run states. Transitions are idle → searching → analyzing → complete|error.
const (
	AuditIdle      AuditStatus = "idle"
	AuditSearching AuditStatus = "searching"
	AuditAnalyzing AuditStatus = "analyzing"
	AuditComplete  AuditStatus = "complete"
	AuditError     AuditStatus = "error"
)

// AuditRun is the full state of one brand audit.
type AuditRun struct {
	Generation uint64      `json:"generation"`
	Status     AuditStatus `json:"status"`
	Brand      string      `json:"brand,omitempty"`
	Query      string      `json:"query,omitempty"`
	Items      []AuditItem `json:"items"`
	Score      int         `json:"score"`
	Error      string      `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (r AuditRun) Clone() AuditRun {
	out := r
	if r.Items != nil {
		out.Items = make([]AuditItem, len(r.Items))
		for i, item := range r.Items {
			out.Items[i] = item
			if item.Analysis != nil {
				a := *item.Analysis
				out.Items[i].Analysis = &a
			}
		}
	}
	return out
}

// MentionCount returns how many analyzed items mention the brand.
func (r AuditRun) MentionCount() int {
	count := 0
	for _, item := range r.Items {
		if item.Analysis != nil && item.Analysis.Mentioned {
			count++
		}
	}
	return count
}

// Terminal reports whether the run has finished.
func (s AuditStatus) Terminal() bool {
	return s == AuditComplete || s == AuditError
}
