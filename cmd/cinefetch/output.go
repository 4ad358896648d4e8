package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cinefetch/internal/assets"
)

type summaryView struct {
	RunID      string        `json:"run_id"`
	Records    int           `json:"records"`
	Jobs       int           `json:"jobs"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	DurationMS int64         `json:"duration_ms"`
	Failures   []failureView `json:"failures"`
}

type failureView struct {
	RecordID    string `json:"record_id"`
	Kind        string `json:"kind"`
	SourceURL   string `json:"source_url"`
	FailureKind string `json:"failure_kind"`
	HTTPStatus  int    `json:"http_status,omitempty"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error"`
}

func newSummaryView(summary assets.Summary) summaryView {
	view := summaryView{
		RunID:      summary.RunID,
		Records:    summary.Records,
		Jobs:       summary.Jobs,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		DurationMS: summary.Duration.Milliseconds(),
		Failures:   make([]failureView, 0, len(summary.Failures)),
	}
	for _, outcome := range summary.Failures {
		fv := failureView{
			RecordID:  outcome.Job.RecordID,
			Kind:      string(outcome.Job.Kind),
			SourceURL: outcome.Job.SourceURL,
			Attempts:  outcome.Attempts,
		}
		if outcome.Failure != nil {
			fv.FailureKind = string(outcome.Failure.Kind)
			fv.HTTPStatus = outcome.Failure.Status
			fv.Error = outcome.Failure.Error()
		}
		view.Failures = append(view.Failures, fv)
	}
	return view
}

func printSummary(cmd *cobra.Command, summary assets.Summary, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, newSummaryView(summary))
	}
	out := cmd.OutOrStdout()
	if isTerminal(out) {
		fmt.Fprintln(out, renderTable(
			[]string{"Run", "Records", "Jobs", "Succeeded", "Failed", "Skipped", "Duration"},
			[][]string{{
				summary.RunID,
				strconv.Itoa(summary.Records),
				strconv.Itoa(summary.Jobs),
				strconv.Itoa(summary.Succeeded),
				strconv.Itoa(summary.Failed),
				strconv.Itoa(summary.Skipped),
				summary.Duration.Round(time.Millisecond).String(),
			}},
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	} else {
		fmt.Fprintf(out, "Run: %s\n", summary.RunID)
		fmt.Fprintf(out, "Records: %d\n", summary.Records)
		fmt.Fprintf(out, "Jobs: %d (succeeded %d, failed %d, skipped %d)\n", summary.Jobs, summary.Succeeded, summary.Failed, summary.Skipped)
		fmt.Fprintf(out, "Duration: %s\n", summary.Duration.Round(time.Millisecond))
	}
	if len(summary.Failures) == 0 {
		return nil
	}
	fmt.Fprintln(out, "Failed jobs:")
	for _, outcome := range summary.Failures {
		detail := "unknown failure"
		if outcome.Failure != nil {
			detail = string(outcome.Failure.Kind)
			if outcome.Failure.Status != 0 {
				detail += " " + strconv.Itoa(outcome.Failure.Status)
			}
		}
		fmt.Fprintf(out, "  - %s %s: %s after %d attempt(s) (%s)\n",
			outcome.Job.RecordID, outcome.Job.Kind, detail, outcome.Attempts, outcome.Job.SourceURL)
	}
	return nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
