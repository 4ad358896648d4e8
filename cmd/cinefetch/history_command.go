package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cinefetch/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded batches, or show the jobs of one batch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("ledger is disabled (ledger.enabled = false)")
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, newRunView(run))
				}
				printRunDetail(cmd, run)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No batches recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					string(run.Mode),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(run.Records),
					strconv.Itoa(run.Succeeded),
					strconv.Itoa(run.Failed),
					run.Duration.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Mode", "Started", "Records", "OK", "Failed", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func printRunDetail(cmd *cobra.Command, run ledger.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s (%s)\n", run.ID, run.Mode)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Input:    %s\n", run.InputPath)
	fmt.Fprintf(out, "Output:   %s\n", run.OutputPath)
	fmt.Fprintf(out, "Images:   %s\n", run.ImagesDir)
	fmt.Fprintf(out, "Jobs:     %d (succeeded %d, failed %d, skipped %d)\n", run.Jobs, run.Succeeded, run.Failed, run.Skipped)
	if len(run.JobResults) == 0 {
		return
	}
	rows := make([][]string, 0, len(run.JobResults))
	for _, job := range run.JobResults {
		status := job.Status
		if job.FailureKind != "" {
			status += " (" + job.FailureKind
			if job.HTTPStatus != 0 {
				status += " " + strconv.Itoa(job.HTTPStatus)
			}
			status += ")"
		}
		rows = append(rows, []string{job.RecordID, job.Kind, status, strconv.Itoa(job.Attempts), strconv.FormatInt(job.Bytes, 10), job.SourceURL})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Record", "Kind", "Status", "Attempts", "Bytes", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

type runView struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	ImagesDir  string    `json:"images_dir"`
	Records    int       `json:"records"`
	Jobs       int       `json:"jobs"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	DurationMS int64     `json:"duration_ms"`
	JobResults []jobView `json:"job_results,omitempty"`
}

type jobView struct {
	RecordID    string `json:"record_id"`
	Kind        string `json:"kind"`
	SourceURL   string `json:"source_url"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	FailureKind string `json:"failure_kind,omitempty"`
	HTTPStatus  int    `json:"http_status,omitempty"`
	Error       string `json:"error,omitempty"`
	Bytes       int64  `json:"bytes"`
}

func newRunView(run ledger.Run) runView {
	view := runView{
		ID:         run.ID,
		Mode:       string(run.Mode),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Input:      run.InputPath,
		Output:     run.OutputPath,
		ImagesDir:  run.ImagesDir,
		Records:    run.Records,
		Jobs:       run.Jobs,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Skipped:    run.Skipped,
		DurationMS: run.Duration.Milliseconds(),
	}
	for _, job := range run.JobResults {
		view.JobResults = append(view.JobResults, jobView{
			RecordID:    job.RecordID,
			Kind:        job.Kind,
			SourceURL:   job.SourceURL,
			Destination: job.Destination,
			Status:      job.Status,
			Attempts:    job.Attempts,
			FailureKind: job.FailureKind,
			HTTPStatus:  job.HTTPStatus,
			Error:       job.ErrorMessage,
			Bytes:       job.Bytes,
		})
	}
	return view
}
