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
	factCheckBrand string
	factCheckURL   string
)

var factCheckCmd = &cobra.Command{
	Use:   "fact-check",
	Short: "Find hallucinations about a brand",
	Long: `Generate the questions a prospective customer would ask, answer each from
model memory and from the official site, and flag the answers that disagree.
Press Ctrl+C to stop after the current step.`,
	RunE: runFactCheck,
}

func init() {
	factCheckCmd.Flags().StringVar(&factCheckBrand, "brand", "", "Brand name (required)")
	factCheckCmd.Flags().StringVar(&factCheckURL, "url", "", "Official site used as ground truth, e.g. acme.com (required)")
	_ = factCheckCmd.MarkFlagRequired("brand")
	_ = factCheckCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(factCheckCmd)
}

func runFactCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	checker := newChecker(client)

	unwatch := watch(checker.Tracker(), cmd.ErrOrStderr(), describeFactCheck)
	run, err := checker.Run(ctx, factCheckBrand, factCheckURL)
	unwatch()
	if err != nil {
		return err
	}

	if err := writeRun(cmd.OutOrStdout(), run, func(p *observability.Printer) { p.PrintFactCheckRun(&run) }); err != nil {
		return err
	}
	if run.Status == types.FactCheckError {
		return fmt.Errorf("fact-check failed: %s", run.Error)
	}
	return nil
}
