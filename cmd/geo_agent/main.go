// Package main provides the entry point for the GEO toolkit CLI and HTTP API server.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/config"
	"github.com/jonathan/geo-toolkit/internal/observability"
)

var (
	configFile     string
	verbose        bool
	jsonOutput     bool
	searchProvider string
	scrapeProvider string
	useBrowser     bool
	callTimeout    time.Duration

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "geo_agent",
	Short: "Generative Engine Optimization toolkit",
	Long: `geo_agent measures how a brand shows up in AI-driven search.

  audit       search a query and check each result for the brand
  compare     compare a client page against a competitor page
  fact-check  find where an ungrounded model gets facts about a brand wrong
  serve       expose the three pipelines over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}

		// Flags win over file and environment values
		flags := config.Config{
			SearchProvider: strings.ToLower(searchProvider),
			ScrapeProvider: strings.ToLower(scrapeProvider),
			UseBrowser:     useBrowser,
			CallTimeout:    callTimeout,
			Verbose:        verbose,
		}
		merged := flags.MergeWithDefaults(*loaded)
		if err := merged.Validate(); err != nil {
			return err
		}
		cfg = &merged

		logger, err = observability.NewLogger(cfg.Verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a JSON or YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print each state transition and debug logs")
	flags.BoolVar(&jsonOutput, "json", false, "Print the final run as JSON")
	flags.StringVar(&searchProvider, "search-provider", "", "Search backend: tavily or google (overrides SEARCH_PROVIDER)")
	flags.StringVar(&scrapeProvider, "scrape-provider", "", "Scrape backend: firecrawl or direct (overrides SCRAPE_PROVIDER)")
	flags.BoolVar(&useBrowser, "use-browser", false, "Render thin pages with headless Chrome (direct scraper)")
	flags.DurationVar(&callTimeout, "call-timeout", 0, "Deadline for each external call (overrides CALL_TIMEOUT)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
