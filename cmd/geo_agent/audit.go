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
	auditBrand string
	auditQuery string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check how a brand appears in the search results for a query",
	Long:  "Search a query, analyze each result for mentions of the brand, and report the visibility score with outreach drafts for pages that leave it out.",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditBrand, "brand", "", "Brand name to look for (required)")
	auditCmd.Flags().StringVar(&auditQuery, "query", "", "Search query to audit (required)")
	_ = auditCmd.MarkFlagRequired("brand")
	_ = auditCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	auditor, err := newAuditor(ctx, client)
	if err != nil {
		return err
	}

	unwatch := watch(auditor.Tracker(), cmd.ErrOrStderr(), describeAudit)
	run, err := auditor.Run(ctx, auditBrand, auditQuery)
	unwatch()
	if err != nil {
		return err
	}

	if err := writeRun(cmd.OutOrStdout(), run, func(p *observability.Printer) { p.PrintAuditRun(&run) }); err != nil {
		return err
	}
	if run.Status == types.AuditError {
		return fmt.Errorf("audit failed: %s", run.Error)
	}
	return nil
}
