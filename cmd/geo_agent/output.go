package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/geo-toolkit/internal/observability"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// writeRun prints the final run as indented JSON or as a boxed summary.
func writeRun(w io.Writer, run any, box func(*observability.Printer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	box(observability.NewPrinter(w))
	return nil
}

// watch prints one line per accepted state while verbose is set.
// The returned function stops watching.
func watch[S runstate.Cloner[S]](tracker *runstate.Tracker[S], w io.Writer, describe func(S) (string, string)) func() {
	if !verbose {
		return func() {}
	}
	p := observability.NewPrinter(w)
	return tracker.Subscribe(func(u runstate.Update[S]) {
		stage, detail := describe(u.State)
		p.PrintProgress(stage, detail)
	})
}

func describeAudit(run types.AuditRun) (string, string) {
	switch run.Status {
	case types.AuditAnalyzing:
		done := 0
		for _, item := range run.Items {
			if item.Analysis != nil {
				done++
			}
		}
		return string(run.Status), fmt.Sprintf("%d of %d results analyzed", done, len(run.Items))
	case types.AuditError:
		return string(run.Status), run.Error
	default:
		return string(run.Status), ""
	}
}

func describeComparative(run types.ComparativeRun) (string, string) {
	if run.Status == types.ComparativeError {
		return string(run.Status), run.Error
	}
	return string(run.Status), ""
}

func describeFactCheck(run types.FactCheckRun) (string, string) {
	if run.Status == types.FactCheckError {
		return string(run.Status), run.Error
	}
	return string(run.Status), run.Progress
}
