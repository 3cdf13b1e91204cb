// Package audit implements the brand audit pipeline: search a query, analyze
// every ranking page for mentions of the brand and score the result.
package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/prompts"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/search"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// MaxContentChars is the character budget of page text sent for analysis.
const MaxContentChars = 10000

// NoResultsMessage is the run error when the search returns nothing.
const NoResultsMessage = "No results found for this query."

// Auditor runs brand audits. One Auditor owns one run state; starting a new
// run supersedes the previous one.
type Auditor struct {
	tracker     *runstate.Tracker[types.AuditRun]
	searcher    search.Searcher
	client      llm.Client
	logger      *zap.Logger
	callTimeout time.Duration
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Auditor) { a.logger = logger }
}

// WithCallTimeout bounds each external call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Auditor) { a.callTimeout = d }
}

// New creates an Auditor.
func New(searcher search.Searcher, client llm.Client, opts ...Option) *Auditor {
	a := &Auditor{
		tracker:  runstate.NewTracker(types.AuditRun{Status: types.AuditIdle}),
		searcher: searcher,
		client:   client,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tracker exposes the run state for observers and snapshots.
func (a *Auditor) Tracker() *runstate.Tracker[types.AuditRun] {
	return a.tracker
}

// Run audits how brand appears in the results for query.
//
// Invalid input returns a *types.ValidationError and leaves the state
// untouched. Search and analysis failures end the run in the error or
// fallback states and are not returned as errors. If a newer run began
// before this one finished, the final state is returned together with
// runstate.ErrSuperseded.
func (a *Auditor) Run(ctx context.Context, brand, query string) (types.AuditRun, error) {
	req := types.AuditRequest{Brand: brand, Query: query}
	if err := req.Validate(); err != nil {
		return types.AuditRun{}, err
	}

	log := a.logger.With(zap.String("brand", req.Brand), zap.String("query", req.Query))

	run := types.AuditRun{Status: types.AuditSearching, Brand: req.Brand, Query: req.Query}
	gen := a.tracker.Begin(func(gen uint64) types.AuditRun {
		run.Generation = gen
		return run
	})
	runstate.Announce(ctx, gen)
	log = log.With(zap.Uint64("generation", gen))
	log.Info("audit started")

	results, err := a.search(ctx, req.Query)
	if err != nil {
		log.Warn("search failed", zap.Error(err))
		return a.finish(gen, a.fail(run, searchMessage(err)))
	}
	if len(results) == 0 {
		log.Info("search returned no results")
		return a.finish(gen, a.fail(run, NoResultsMessage))
	}

	run.Status = types.AuditAnalyzing
	run.Items = Dedup(results)
	log.Debug("results deduplicated", zap.Int("raw", len(results)), zap.Int("unique", len(run.Items)))
	a.tracker.Publish(gen, run)

	run = a.analyzeAll(ctx, gen, run, log)

	run.Score = run.MentionCount()
	run.Status = types.AuditComplete
	log.Info("audit complete", zap.Int("score", run.Score), zap.Int("items", len(run.Items)))
	return a.finish(gen, run)
}

func (a *Auditor) search(ctx context.Context, query string) ([]types.SearchResult, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.searcher.Search(ctx, query)
}

// analyzeAll fans out one analysis per item and publishes each item as it
// settles. It returns once every item has an analysis.
func (a *Auditor) analyzeAll(ctx context.Context, gen uint64, run types.AuditRun, log *zap.Logger) types.AuditRun {
	brand := run.Brand
	var mu sync.Mutex
	// Per-item failures are absorbed, so the group never cancels siblings.
	var g errgroup.Group
	for i := range run.Items {
		item := run.Items[i]
		g.Go(func() error {
			analysis := a.analyze(ctx, brand, item, log)

			mu.Lock()
			defer mu.Unlock()
			run.Items[i].Analysis = &analysis
			a.tracker.Publish(gen, run)
			return nil
		})
	}
	_ = g.Wait()
	return run
}

// analyze returns the model's analysis of one item, or the fallback.
func (a *Auditor) analyze(ctx context.Context, brand string, item types.AuditItem, log *zap.Logger) types.Analysis {
	prompt, err := prompts.Render(prompts.Audit, prompts.AuditAnalyze, map[string]string{
		"Brand":   brand,
		"Content": llm.TruncateRunes(item.AnalysisText(), MaxContentChars),
	})
	if err != nil {
		log.Error("failed to render analysis prompt", zap.Error(err))
		return types.FallbackAnalysis()
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	analysis, err := llm.GenerateStructured[types.Analysis](ctx, a.client, prompt, llm.TierStandard, AnalysisSchema(),
		llm.WithSystemInstruction(prompts.MustGet(prompts.Audit, prompts.AuditSystem)))
	if err != nil {
		log.Warn("analysis failed, using fallback",
			zap.Int("rank", item.Rank), zap.String("url", item.URL), zap.Error(err))
		return types.FallbackAnalysis()
	}
	analysis.Normalize()
	return analysis
}

func (a *Auditor) fail(run types.AuditRun, message string) types.AuditRun {
	run.Status = types.AuditError
	run.Error = message
	run.Items = nil
	run.Score = 0
	return run
}

func (a *Auditor) finish(gen uint64, run types.AuditRun) (types.AuditRun, error) {
	if !a.tracker.Publish(gen, run) {
		a.logger.Info("audit superseded, final state discarded", zap.Uint64("generation", gen))
		return run, runstate.ErrSuperseded
	}
	return run, nil
}

func (a *Auditor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.callTimeout)
}

// searchMessage is the user-facing text for a search failure.
func searchMessage(err error) string {
	var apiErr *search.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// NormalizeURL is the dedup key of a result URL: the query string and
// trailing slashes are dropped and the rest is lowercased.
func NormalizeURL(raw string) string {
	u, _, _ := strings.Cut(raw, "?")
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}

// Dedup drops results whose normalized URL was already seen, keeping the
// search engine's order, and assigns contiguous 1-based ranks.
func Dedup(results []types.SearchResult) []types.AuditItem {
	seen := make(map[string]struct{}, len(results))
	items := make([]types.AuditItem, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, types.AuditItem{SearchResult: r, Rank: len(items) + 1})
	}
	return items
}
