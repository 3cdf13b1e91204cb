// Package factcheck implements the hallucination checker: generate the
// questions customers ask about a brand, answer each from model memory,
// answer it again from the brand's own site via grounded search, and
// compare the two.
package factcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/prompts"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// Run-level messages.
const (
	QuestionsFailedMessage = "Failed to generate questions. Please try again."
	CancelledMessage       = "Analysis was cancelled."
	GeneratingProgress     = "Simulating user questions..."
	CompleteProgress       = "Analysis Complete!"
	ErrorProgress          = "An error occurred during analysis."
)

// Limits of the memory-only answer. The output cap counts reasoning tokens
// on thinking models, so it must stay well above the thinking budget.
const (
	NaiveAnswerMaxTokens      = 2048
	NaiveAnswerThinkingBudget = 128
)

// progressPreviewChars is how much of a question the progress message shows.
const progressPreviewChars = 30

// Checker runs fact-checks. One Checker owns one run state.
type Checker struct {
	tracker     *runstate.Tracker[types.FactCheckRun]
	client      llm.Client
	logger      *zap.Logger
	callTimeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithCallTimeout bounds each model call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Checker) { c.callTimeout = d }
}

// New creates a Checker.
func New(client llm.Client, opts ...Option) *Checker {
	c := &Checker{
		tracker: runstate.NewTracker(types.FactCheckRun{Status: types.FactCheckIdle}),
		client:  client,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker exposes the run state for observers and snapshots.
func (c *Checker) Tracker() *runstate.Tracker[types.FactCheckRun] {
	return c.tracker
}

// Run fact-checks what models say about brandName against officialURL.
//
// Questions are processed one at a time, in generation order. Failures of
// a single step are stored as fixed answers and never stop later
// questions. Cancelling ctx marks the current question as failed and ends
// the run in the error state. When a newer run has begun, the loop stops
// before the next question and runstate.ErrSuperseded is returned.
func (c *Checker) Run(ctx context.Context, brandName, officialURL string) (types.FactCheckRun, error) {
	req := types.FactCheckRequest{BrandName: brandName, OfficialURL: officialURL}
	if err := req.Validate(); err != nil {
		return types.FactCheckRun{}, err
	}

	log := c.logger.With(zap.String("brand", req.BrandName), zap.String("official_url", req.OfficialURL))

	run := types.FactCheckRun{
		Status:      types.FactCheckGeneratingQuestions,
		BrandName:   req.BrandName,
		OfficialURL: req.OfficialURL,
		Questions:   []types.FactCheckQuestion{},
		Progress:    GeneratingProgress,
	}
	gen := c.tracker.Begin(func(gen uint64) types.FactCheckRun {
		run.Generation = gen
		return run
	})
	runstate.Announce(ctx, gen)
	log = log.With(zap.Uint64("generation", gen))
	log.Info("fact-check started")

	questions, err := c.generateQuestions(ctx, req.BrandName)
	if err != nil {
		log.Warn("question generation failed", zap.Error(err))
		run.Status = types.FactCheckError
		run.Error = QuestionsFailedMessage
		run.Progress = ErrorProgress
		return c.finish(gen, run)
	}

	for i, q := range questions {
		run.Questions = append(run.Questions, types.FactCheckQuestion{
			ID:                 fmt.Sprintf("q-%d", i),
			QuestionText:       q,
			GroundTruthSources: []string{},
			ItemStatus:         types.ItemPending,
		})
	}
	run.Status = types.FactCheckAnalyzing
	if !c.tracker.Publish(gen, run) {
		return run, runstate.ErrSuperseded
	}
	log.Debug("questions generated", zap.Int("count", len(run.Questions)))

	for i := range run.Questions {
		if !c.tracker.IsCurrent(gen) {
			log.Info("fact-check superseded, stopping", zap.Int("next_question", i))
			return run, runstate.ErrSuperseded
		}
		if ctx.Err() != nil {
			return c.cancel(gen, run, i, log)
		}

		q := &run.Questions[i]
		q.ItemStatus = types.ItemLoading
		run.Progress = progressMessage(i, len(run.Questions), q.QuestionText)
		c.tracker.Publish(gen, run)

		naive := c.naiveAnswer(ctx, req.BrandName, q.QuestionText, log)
		q.NaiveAnswer = &naive
		if ctx.Err() != nil {
			return c.cancel(gen, run, i, log)
		}
		c.tracker.Publish(gen, run)

		truth, sources := c.groundTruth(ctx, req.OfficialURL, q.QuestionText, log)
		q.GroundTruthAnswer = &truth
		q.GroundTruthSources = sources
		if ctx.Err() != nil {
			return c.cancel(gen, run, i, log)
		}
		c.tracker.Publish(gen, run)

		verification := c.verify(ctx, q.QuestionText, naive, truth, log)
		if ctx.Err() != nil {
			return c.cancel(gen, run, i, log)
		}
		q.Verification = &verification
		q.ItemStatus = types.ItemDone
		c.tracker.Publish(gen, run)
	}

	run.Status = types.FactCheckComplete
	run.Progress = CompleteProgress
	log.Info("fact-check complete",
		zap.Int("questions", len(run.Questions)),
		zap.Int("hallucinations", run.HallucinationCount()))
	return c.finish(gen, run)
}

// generateQuestions returns the non-blank generated questions, trimmed.
// A response with no text yields no questions.
func (c *Checker) generateQuestions(ctx context.Context, brand string) ([]string, error) {
	prompt, err := prompts.Render(prompts.FactCheck, prompts.FactQuestions, map[string]string{"Brand": brand})
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := llm.GenerateStructured[[]string](ctx, c.client, prompt, llm.TierStandard, QuestionsSchema())
	if errors.Is(err, llm.ErrEmptyResponse) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	questions := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// naiveAnswer asks the model from memory only, without grounding.
func (c *Checker) naiveAnswer(ctx context.Context, brand, question string, log *zap.Logger) string {
	prompt, err := prompts.Render(prompts.FactCheck, prompts.FactNaive, map[string]string{
		"Brand":    brand,
		"Question": question,
	})
	if err != nil {
		log.Error("failed to render naive answer prompt", zap.Error(err))
		return types.NaiveAnswerError
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	answer, err := c.client.GenerateContent(ctx, prompt, llm.TierStandard,
		llm.WithMaxOutputTokens(NaiveAnswerMaxTokens),
		llm.WithThinkingBudget(NaiveAnswerThinkingBudget))
	if errors.Is(err, llm.ErrEmptyResponse) {
		return types.NaiveAnswerEmpty
	}
	if err != nil {
		log.Warn("naive answer failed", zap.String("question", question), zap.Error(err))
		return types.NaiveAnswerError
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return types.NaiveAnswerEmpty
	}
	return answer
}

// groundTruth answers from the official site through grounded search and
// returns the de-duplicated source URLs.
func (c *Checker) groundTruth(ctx context.Context, officialURL, question string, log *zap.Logger) (string, []string) {
	prompt, err := prompts.Render(prompts.FactCheck, prompts.FactGrounded, map[string]string{
		"Question":    question,
		"OfficialURL": officialURL,
	})
	if err != nil {
		log.Error("failed to render ground truth prompt", zap.Error(err))
		return types.GroundTruthError, []string{}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GenerateGrounded(ctx, prompt, llm.TierAdvanced)
	if err != nil || resp == nil {
		log.Warn("grounded answer failed", zap.String("question", question), zap.Error(err))
		return types.GroundTruthError, []string{}
	}

	sources := DedupSources(resp.Sources)
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return types.GroundTruthEmpty, sources
	}
	return text, sources
}

// verdict is the wire shape of the verification call.
type verdict struct {
	Status      string             `json:"status"`
	Reasoning   string             `json:"reasoning"`
	Patch       string             `json:"patch"`
	Remediation *types.Remediation `json:"remediation"`
}

// verify compares the two answers. Any failure yields the fail-open fallback.
func (c *Checker) verify(ctx context.Context, question, naive, truth string, log *zap.Logger) types.Verification {
	prompt, err := prompts.Render(prompts.FactCheck, prompts.FactVerify, map[string]string{
		"Question":    question,
		"NaiveAnswer": naive,
		"GroundTruth": truth,
	})
	if err != nil {
		log.Error("failed to render verification prompt", zap.Error(err))
		return types.FallbackVerification()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	v, err := llm.GenerateStructured[verdict](ctx, c.client, prompt, llm.TierStandard, VerificationSchema())
	if err != nil {
		log.Warn("verification failed, treating answer as accurate", zap.String("question", question), zap.Error(err))
		return types.FallbackVerification()
	}

	out := types.Verification{
		IsAccurate:  v.Status == StatusAccurate,
		Reasoning:   v.Reasoning,
		Patch:       v.Patch,
		Remediation: v.Remediation,
	}
	out.Normalize()
	return out
}

// cancel marks question i failed and ends the run in error.
func (c *Checker) cancel(gen uint64, run types.FactCheckRun, i int, log *zap.Logger) (types.FactCheckRun, error) {
	log.Warn("fact-check cancelled", zap.Int("question", i))
	run.Questions[i].ItemStatus = types.ItemError
	run.Status = types.FactCheckError
	run.Error = CancelledMessage
	run.Progress = ErrorProgress
	return c.finish(gen, run)
}

func (c *Checker) finish(gen uint64, run types.FactCheckRun) (types.FactCheckRun, error) {
	if !c.tracker.Publish(gen, run) {
		c.logger.Info("fact-check superseded, final state discarded", zap.Uint64("generation", gen))
		return run, runstate.ErrSuperseded
	}
	return run, nil
}

func (c *Checker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// progressMessage describes which question is being analyzed.
func progressMessage(i, total int, question string) string {
	return fmt.Sprintf(`Analyzing question %d of %d: "%s..."`, i+1, total, llm.TruncateRunes(question, progressPreviewChars))
}

// DedupSources removes repeated URLs, keeping first-seen order.
func DedupSources(sources []string) []string {
	out := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
