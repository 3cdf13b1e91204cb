// Package observability provides logging setup and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/geo-toolkit/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the human-readable CLI mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// shorten cuts s to at most n runes, marking the cut with "...".
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, shorten(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAuditRun outputs the ranked audit results and the visibility score.
func (p *Printer) PrintAuditRun(run *types.AuditRun) {
	if run == nil {
		return
	}
	if run.Status == types.AuditError {
		p.printBox("AUDIT FAILED", run.Error)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Brand:    %s\n", run.Brand))
	sb.WriteString(fmt.Sprintf("Query:    %s\n", run.Query))
	sb.WriteString(fmt.Sprintf("Score:    %d/%d mentioned\n", run.Score, len(run.Items)))

	for i, item := range run.Items {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("#%d  %s\n", item.Rank, item.Title))
		sb.WriteString(fmt.Sprintf("    %s\n", item.URL))
		if item.Analysis == nil {
			sb.WriteString("    (analyzing)\n")
			continue
		}
		mark := "✗"
		if item.Analysis.Mentioned {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("    %s mentioned, %s\n", mark, item.Analysis.Sentiment))
		sb.WriteString(fmt.Sprintf("    %s\n", shorten(item.Analysis.Summary, 50)))
		if item.Analysis.AuthorName != "" {
			sb.WriteString(fmt.Sprintf("    Author: %s", item.Analysis.AuthorName))
			if item.Analysis.AuthorEmail != "" {
				sb.WriteString(fmt.Sprintf(" <%s>", item.Analysis.AuthorEmail))
			}
			sb.WriteString("\n")
		}
		if item.Analysis.OutreachEmail != "" {
			sb.WriteString("    Outreach email drafted\n")
		}
		if i == maxItemsToShow-1 && len(run.Items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n... and %d more results\n", len(run.Items)-maxItemsToShow))
			break
		}
	}

	if len(run.Items) == 0 {
		sb.WriteString("\nNo results.\n")
	}

	p.printBox("BRAND VISIBILITY AUDIT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintComparativeRun outputs the side-by-side metrics, verdict and fix.
func (p *Printer) PrintComparativeRun(run *types.ComparativeRun) {
	if run == nil {
		return
	}
	if run.Status == types.ComparativeError || run.Result == nil {
		p.printBox("COMPARISON FAILED", run.Error)
		return
	}

	res := run.Result
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Client:      %s\n", run.ClientURL))
	sb.WriteString(fmt.Sprintf("Competitor:  %s\n", run.CompetitorURL))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-14s %10s %12s\n", "", "Client", "Competitor"))
	sb.WriteString(fmt.Sprintf("%-14s %10d %12d\n", "Words", res.Metrics.Client.WordCount, res.Metrics.Competitor.WordCount))
	sb.WriteString(fmt.Sprintf("%-14s %10d %12d\n", "Headers", res.Metrics.Client.HeaderCount, res.Metrics.Competitor.HeaderCount))
	sb.WriteString(fmt.Sprintf("%-14s %10d %12d\n", "Data density", res.Metrics.Client.DataDensityScore, res.Metrics.Competitor.DataDensityScore))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Verdict: %s\n", res.Verdict))

	if len(res.AnalysisPoints) > 0 {
		sb.WriteString("\nWhy:\n")
		count := min(len(res.AnalysisPoints), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", res.AnalysisPoints[i]))
		}
		if len(res.AnalysisPoints) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(res.AnalysisPoints)-maxItemsToShow))
		}
	}

	if res.RecommendedFix.Description != "" {
		sb.WriteString(fmt.Sprintf("\nFix: %s\n", res.RecommendedFix.Description))
		if res.RecommendedFix.Language != "" {
			sb.WriteString(fmt.Sprintf("  [%s snippet included]\n", res.RecommendedFix.Language))
		}
	}

	p.printBox("COMPARATIVE ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFactCheckRun outputs each question with its verdict.
func (p *Printer) PrintFactCheckRun(run *types.FactCheckRun) {
	if run == nil {
		return
	}
	if run.Status == types.FactCheckError {
		p.printBox("FACT CHECK FAILED", run.Error)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Brand:    %s\n", run.BrandName))
	sb.WriteString(fmt.Sprintf("Source:   %s\n", run.OfficialURL))
	sb.WriteString(fmt.Sprintf("Found %d hallucinations in %d questions\n", run.HallucinationCount(), len(run.Questions)))

	for _, q := range run.Questions {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Q: %s\n", q.QuestionText))
		switch {
		case q.ItemStatus == types.ItemError:
			sb.WriteString("  ⚠ error\n")
		case q.Verification == nil:
			sb.WriteString(fmt.Sprintf("  (%s)\n", q.ItemStatus))
		case q.Verification.IsAccurate:
			sb.WriteString("  ✓ accurate\n")
		default:
			sb.WriteString("  ⚠ hallucination\n")
			sb.WriteString(fmt.Sprintf("  %s\n", q.Verification.Reasoning))
			if q.Verification.Patch != "" {
				sb.WriteString(fmt.Sprintf("  Patch: %s\n", q.Verification.Patch))
			}
		}
		if len(q.GroundTruthSources) > 0 {
			sb.WriteString(fmt.Sprintf("  Sources: %d\n", len(q.GroundTruthSources)))
		}
	}

	p.printBox("HALLUCINATION CHECK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs a one-line state transition.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(stage, detail string) {
	if detail == "" {
		fmt.Fprintf(p.out, "→ %s\n", stage)
		return
	}
	fmt.Fprintf(p.out, "→ %s: %s\n", stage, detail)
}
