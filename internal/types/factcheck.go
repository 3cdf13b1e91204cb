//nolint:revive // types is a standard Go package name pattern
package types

// Fixed answers stored when a fact-check sub-step cannot produce text.
const (
	NaiveAnswerError       = "Error generating answer."
	NaiveAnswerEmpty       = "No answer generated."
	GroundTruthError       = "Error retrieving ground truth."
	GroundTruthEmpty       = "Could not find information."
	VerificationFailedText = "Verification failed due to error."
)

// Remediation tells a brand how to correct a hallucination.
type Remediation struct {
	Summary              string   `json:"summary"`
	Steps                []string `json:"steps"`
	PreventionTips       []string `json:"preventionTips"`
	SuggestedFAQQuestion string   `json:"suggestedFaqQuestion,omitempty"`
	SuggestedFAQAnswer   string   `json:"suggestedFaqAnswer,omitempty"`
}

// Empty reports whether the remediation carries no content.
func (r *Remediation) Empty() bool {
	return r == nil || (r.Summary == "" && len(r.Steps) == 0 && len(r.PreventionTips) == 0 &&
		r.SuggestedFAQQuestion == "" && r.SuggestedFAQAnswer == "")
}

// Verification compares a naive answer with the grounded answer.
// Remediation and Patch are only present when IsAccurate is false.
type Verification struct {
	IsAccurate  bool         `json:"isAccurate"`
	Reasoning   string       `json:"reasoning"`
	Patch       string       `json:"patch,omitempty"`
	Remediation *Remediation `json:"remediation,omitempty"`
}

// Normalize drops correction content from accurate verdicts and empty remediations.
func (v *Verification) Normalize() {
	if v.IsAccurate {
		v.Patch = ""
		v.Remediation = nil
		return
	}
	if v.Remediation.Empty() {
		v.Remediation = nil
	}
}

// FallbackVerification is used when the verification call fails.
// Unverifiable answers are treated as accurate so the run is never blocked.
func FallbackVerification() Verification {
	return Verification{IsAccurate: true, Reasoning: VerificationFailedText}
}

// ItemStatus is the progress of a single fact-check question.
type ItemStatus string

// Question states. Each question moves pending → loading → done (or error).
const (
	ItemPending ItemStatus = "pending"
	ItemLoading ItemStatus = "loading"
	ItemDone    ItemStatus = "done"
	ItemError   ItemStatus = "error"
)

// FactCheckQuestion is one generated question and its analysis.
type FactCheckQuestion struct {
	ID                 string        `json:"id"`
	QuestionText       string        `json:"question"`
	NaiveAnswer        *string       `json:"naiveAnswer"`
	GroundTruthAnswer  *string       `json:"groundTruthAnswer"`
	GroundTruthSources []string      `json:"groundTruthSources"`
	Verification       *Verification `json:"verification"`
	ItemStatus         ItemStatus    `json:"status"`
}

// FactCheckStatus is the state of a fact-check run.
type FactCheckStatus string

// Fact-check run states.
// Transitions are idle → generatingQuestions → analyzing → complete|error.
const (
	FactCheckIdle                FactCheckStatus = "idle"
	FactCheckGeneratingQuestions FactCheckStatus = "generatingQuestions"
	FactCheckAnalyzing           FactCheckStatus = "analyzing"
	FactCheckComplete            FactCheckStatus = "complete"
	FactCheckError               FactCheckStatus = "error"
)

// Terminal reports whether the run has finished.
func (s FactCheckStatus) Terminal() bool {
	return s == FactCheckComplete || s == FactCheckError
}

// FactCheckRun is the full state of one fact-check.
type FactCheckRun struct {
	Generation  uint64              `json:"generation"`
	Status      FactCheckStatus     `json:"status"`
	BrandName   string              `json:"brandName,omitempty"`
	OfficialURL string              `json:"officialUrl,omitempty"`
	Questions   []FactCheckQuestion `json:"questions"`
	Progress    string              `json:"progressMessage,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (r FactCheckRun) Clone() FactCheckRun {
	out := r
	if r.Questions != nil {
		out.Questions = make([]FactCheckQuestion, len(r.Questions))
		for i, q := range r.Questions {
			out.Questions[i] = q.clone()
		}
	}
	return out
}

// HallucinationCount returns how many verified questions were flagged.
func (r FactCheckRun) HallucinationCount() int {
	count := 0
	for _, q := range r.Questions {
		if q.Verification != nil && !q.Verification.IsAccurate {
			count++
		}
	}
	return count
}

func (q FactCheckQuestion) clone() FactCheckQuestion {
	out := q
	if q.NaiveAnswer != nil {
		s := *q.NaiveAnswer
		out.NaiveAnswer = &s
	}
	if q.GroundTruthAnswer != nil {
		s := *q.GroundTruthAnswer
		out.GroundTruthAnswer = &s
	}
	if q.GroundTruthSources != nil {
		out.GroundTruthSources = make([]string, len(q.GroundTruthSources))
		copy(out.GroundTruthSources, q.GroundTruthSources)
	}
	if q.Verification != nil {
		v := *q.Verification
		if q.Verification.Remediation != nil {
			r := *q.Verification.Remediation
			r.Steps = append([]string(nil), r.Steps...)
			r.PreventionTips = append([]string(nil), r.PreventionTips...)
			v.Remediation = &r
		}
		out.Verification = &v
	}
	return out
}
