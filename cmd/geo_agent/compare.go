package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jonathan/geo-toolkit/internal/observability"
	"github.com/jonathan/geo-toolkit/internal/types"
)

var (
	compareClientURL     string
	compareCompetitorURL string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a client page with a competitor page",
	Long:  "Scrape both pages, then explain why an AI engine would prefer the competitor and suggest a structured-data fix for the client.",
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareClientURL, "client", "", "URL of the client page (required)")
	compareCmd.Flags().StringVar(&compareCompetitorURL, "competitor", "", "URL of the competitor page (required)")
	_ = compareCmd.MarkFlagRequired("client")
	_ = compareCmd.MarkFlagRequired("competitor")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	comparer, err := newComparer(client)
	if err != nil {
		return err
	}

	unwatch := watch(comparer.Tracker(), cmd.ErrOrStderr(), describeComparative)
	run, err := comparer.Run(ctx, compareClientURL, compareCompetitorURL)
	unwatch()
	if err != nil {
		return err
	}

	if err := writeRun(cmd.OutOrStdout(), run, func(p *observability.Printer) { p.PrintComparativeRun(&run) }); err != nil {
		return err
	}
	if run.Status == types.ComparativeError {
		return fmt.Errorf("comparison failed: %s", run.Error)
	}
	return nil
}
