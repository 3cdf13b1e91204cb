//nolint:revive // types is a standard Go package name pattern
package types

// Data density bounds for ComparativeMetrics.DataDensityScore.
const (
	MinDataDensity = 1
	MaxDataDensity = 10
)

// ComparativeMetrics describes one side of a comparison.
type ComparativeMetrics struct {
	WordCount        int `json:"wordCount"`
	HeaderCount      int `json:"headerCount"`
	DataDensityScore int `json:"dataDensityScore"`
}

// ClampDensity forces DataDensityScore into [MinDataDensity, MaxDataDensity].
func (m *ComparativeMetrics) ClampDensity() {
	m.DataDensityScore = max(MinDataDensity, min(MaxDataDensity, m.DataDensityScore))
}

// PairedMetrics holds metrics for the client and competitor pages.
type PairedMetrics struct {
	Client     ComparativeMetrics `json:"client"`
	Competitor ComparativeMetrics `json:"competitor"`
}

// RecommendedFix is a copy-pasteable change for the client page.
type RecommendedFix struct {
	Description string `json:"description"`
	CodeBlock   string `json:"codeBlock"`
	Language    string `json:"language"`
}

// ComparativeResult is the outcome of comparing two pages.
type ComparativeResult struct {
	Metrics        PairedMetrics  `json:"metrics"`
	Verdict        string         `json:"verdict"`
	AnalysisPoints []string       `json:"analysisPoints"`
	RecommendedFix RecommendedFix `json:"recommendedFix"`
}

// ComparativeStatus is the state of a comparison run.
type ComparativeStatus string

// Comparison run states. Transitions are idle → scraping → analyzing → complete|error.
const (
	ComparativeIdle      ComparativeStatus = "idle"
	ComparativeScraping  ComparativeStatus = "scraping"
	ComparativeAnalyzing ComparativeStatus = "analyzing"
	ComparativeComplete  ComparativeStatus = "complete"
	ComparativeError     ComparativeStatus = "error"
)

// Terminal reports whether the run has finished.
func (s ComparativeStatus) Terminal() bool {
	return s == ComparativeComplete || s == ComparativeError
}

// ComparativeRun is the full state of one comparison.
// Result is only set once Status is complete.
type ComparativeRun struct {
	Generation    uint64             `json:"generation"`
	Status        ComparativeStatus  `json:"status"`
	ClientURL     string             `json:"clientUrl,omitempty"`
	CompetitorURL string             `json:"competitorUrl,omitempty"`
	Result        *ComparativeResult `json:"result,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (r ComparativeRun) Clone() ComparativeRun {
	out := r
	if r.Result != nil {
		res := *r.Result
		res.AnalysisPoints = append([]string(nil), r.Result.AnalysisPoints...)
		out.Result = &res
	}
	return out
}
