// Package comparative implements the comparative analysis pipeline: scrape
// a client page and a competitor page, then ask the model which one is
// better prepared for AI answer engines.
package comparative

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/prompts"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/scrape"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// MaxMarkdownChars is the character budget of each page sent for analysis.
const MaxMarkdownChars = 15000

// AnalysisFailedMessage is the run error for any failure of the analysis call.
const AnalysisFailedMessage = "Failed to analyze content with Gemini."

// Run error prefixes naming the side whose scrape failed.
const (
	ClientErrorPrefix     = "Client URL Error: "
	CompetitorErrorPrefix = "Competitor URL Error: "
)

// Comparer runs comparisons. One Comparer owns one run state.
type Comparer struct {
	tracker     *runstate.Tracker[types.ComparativeRun]
	scraper     scrape.Scraper
	client      llm.Client
	logger      *zap.Logger
	callTimeout time.Duration
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Comparer) { c.logger = logger }
}

// WithCallTimeout bounds each external call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Comparer) { c.callTimeout = d }
}

// New creates a Comparer.
func New(scraper scrape.Scraper, client llm.Client, opts ...Option) *Comparer {
	c := &Comparer{
		tracker: runstate.NewTracker(types.ComparativeRun{Status: types.ComparativeIdle}),
		scraper: scraper,
		client:  client,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker exposes the run state for observers and snapshots.
func (c *Comparer) Tracker() *runstate.Tracker[types.ComparativeRun] {
	return c.tracker
}

// Run compares clientURL against competitorURL.
//
// Invalid input returns a *types.ValidationError and leaves the state
// untouched. Scrape and analysis failures end the run in the error state.
// A run overtaken by a newer one returns runstate.ErrSuperseded.
func (c *Comparer) Run(ctx context.Context, clientURL, competitorURL string) (types.ComparativeRun, error) {
	req := types.CompareRequest{ClientURL: clientURL, CompetitorURL: competitorURL}
	if err := req.Validate(); err != nil {
		return types.ComparativeRun{}, err
	}

	log := c.logger.With(zap.String("client_url", req.ClientURL), zap.String("competitor_url", req.CompetitorURL))

	run := types.ComparativeRun{
		Status:        types.ComparativeScraping,
		ClientURL:     req.ClientURL,
		CompetitorURL: req.CompetitorURL,
	}
	gen := c.tracker.Begin(func(gen uint64) types.ComparativeRun {
		run.Generation = gen
		return run
	})
	runstate.Announce(ctx, gen)
	log = log.With(zap.Uint64("generation", gen))
	log.Info("comparison started")

	clientPage, competitorPage := c.scrapeBoth(ctx, req.ClientURL, req.CompetitorURL)
	if !clientPage.OK() {
		log.Warn("client scrape failed", zap.String("error", clientPage.Error))
		return c.finish(gen, fail(run, ClientErrorPrefix+clientPage.Error))
	}
	if !competitorPage.OK() {
		log.Warn("competitor scrape failed", zap.String("error", competitorPage.Error))
		return c.finish(gen, fail(run, CompetitorErrorPrefix+competitorPage.Error))
	}

	run.Status = types.ComparativeAnalyzing
	c.tracker.Publish(gen, run)

	result, err := c.analyze(ctx, clientPage, competitorPage)
	if err != nil {
		log.Warn("comparison analysis failed", zap.Error(err))
		return c.finish(gen, fail(run, AnalysisFailedMessage))
	}

	run.Status = types.ComparativeComplete
	run.Result = result
	log.Info("comparison complete",
		zap.Int("client_density", result.Metrics.Client.DataDensityScore),
		zap.Int("competitor_density", result.Metrics.Competitor.DataDensityScore))
	return c.finish(gen, run)
}

// scrapeBoth scrapes both pages concurrently and waits for both.
func (c *Comparer) scrapeBoth(ctx context.Context, clientURL, competitorURL string) (types.ScrapedPage, types.ScrapedPage) {
	var clientPage, competitorPage types.ScrapedPage
	var g errgroup.Group
	g.Go(func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		clientPage = c.scraper.Scrape(ctx, clientURL)
		return nil
	})
	g.Go(func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		competitorPage = c.scraper.Scrape(ctx, competitorURL)
		return nil
	})
	_ = g.Wait()
	return clientPage, competitorPage
}

func (c *Comparer) analyze(ctx context.Context, clientPage, competitorPage types.ScrapedPage) (*types.ComparativeResult, error) {
	prompt, err := prompts.Render(prompts.Comparative, prompts.ComparePages, map[string]string{
		"ClientURL":          clientPage.URL,
		"ClientMarkdown":     llm.TruncateRunes(clientPage.Markdown, MaxMarkdownChars),
		"CompetitorURL":      competitorPage.URL,
		"CompetitorMarkdown": llm.TruncateRunes(competitorPage.Markdown, MaxMarkdownChars),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := llm.GenerateStructured[types.ComparativeResult](ctx, c.client, prompt, llm.TierStandard, ResultSchema())
	if err != nil {
		return nil, err
	}
	result.Metrics.Client.ClampDensity()
	result.Metrics.Competitor.ClampDensity()
	if result.AnalysisPoints == nil {
		result.AnalysisPoints = []string{}
	}
	return &result, nil
}

func fail(run types.ComparativeRun, message string) types.ComparativeRun {
	run.Status = types.ComparativeError
	run.Error = message
	run.Result = nil
	return run
}

func (c *Comparer) finish(gen uint64, run types.ComparativeRun) (types.ComparativeRun, error) {
	if !c.tracker.Publish(gen, run) {
		c.logger.Info("comparison superseded, final state discarded", zap.Uint64("generation", gen))
		return run, runstate.ErrSuperseded
	}
	return run, nil
}

func (c *Comparer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}
