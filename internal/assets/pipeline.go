package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cinefetch/internal/catalog"
	"cinefetch/internal/ledger"
	"cinefetch/internal/logging"
	"cinefetch/internal/preflight"
	"cinefetch/internal/services"
)

// LockFileName is created inside the images directory while a batch runs.
const LockFileName = ".cinefetch.lock"

// ErrBatchLocked reports that another batch holds the images directory.
var ErrBatchLocked = errors.New("another batch is using the images directory")

// Recorder stores finished runs. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run ledger.Run) error
}

// Options configures a batch.
type Options struct {
	Input     string
	Output    string
	ImagesDir string
	// LocalOutput, when set, receives a second record set whose resource
	// paths point at the downloaded files.
	LocalOutput string
	// Localize rewrites resource paths in Output as well.
	Localize    bool
	LocalPrefix string

	Resolver    Resolver
	Fetcher     Fetcher
	Store       Store
	Observer    Observer
	Concurrency int

	Ledger Recorder
	Logger *slog.Logger
}

// Summary accounts for a finished batch.
type Summary struct {
	RunID     string
	Records   int
	Jobs      int
	Succeeded int
	Failed    int
	// Skipped counts record kinds with no resource path.
	Skipped  int
	Duration time.Duration
	Failures []Outcome
}

type batch struct {
	opts    Options
	logger  *slog.Logger
	runID   string
	started time.Time
	records []catalog.Record
	lock    *flock.Flock
}

// Run executes a full batch: setup, downloads, enrichment, outputs and the
// ledger entry. Errors returned are setup failures; job failures are only
// reported in the summary. Nothing is written when setup fails.
func Run(ctx context.Context, opts Options) (Summary, error) {
	b, err := setup(ctx, opts, true)
	if err != nil {
		return Summary{}, err
	}
	defer b.release()
	ctx = services.WithRunID(ctx, b.runID)

	jobs := Plan(b.records, opts.Resolver, opts.ImagesDir)
	b.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("records", len(b.records)),
		logging.Int("jobs", len(jobs)),
		logging.Int("concurrency", opts.Concurrency),
		logging.String("images_dir", opts.ImagesDir),
	)

	scheduler := &Scheduler{
		Fetcher:  opts.Fetcher,
		Store:    opts.Store,
		Observer: opts.Observer,
		Logger:   opts.Logger,
	}
	results := scheduler.RunAll(ctx, jobs, opts.Concurrency)

	localize := func(records []catalog.Enriched, refDir, prefix string) []catalog.Enriched {
		return LocalizeResults(records, results, refDir, prefix)
	}
	if err := b.writeOutputs(localize); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		RunID:     b.runID,
		Records:   len(b.records),
		Jobs:      len(jobs),
		Succeeded: results.Count(StatusSuccess),
		Failed:    results.Count(StatusFailed),
		Skipped:   len(b.records)*len(catalog.Kinds) - len(jobs),
		Duration:  time.Since(b.started),
		Failures:  results.Failures(),
	}
	b.record(ctx, ledger.ModeFetch, summary, jobs, results)
	b.logSummary(summary)
	return summary, nil
}

// LocalizeOnly rewrites resource paths from files already present in the
// images directory, without downloading anything.
func LocalizeOnly(ctx context.Context, opts Options) (Summary, error) {
	opts.Localize = true
	b, err := setup(ctx, opts, false)
	if err != nil {
		return Summary{}, err
	}
	ctx = services.WithRunID(ctx, b.runID)

	localize := func(records []catalog.Enriched, refDir, prefix string) []catalog.Enriched {
		return Localize(records, opts.ImagesDir, refDir, prefix)
	}
	if err := b.writeOutputs(localize); err != nil {
		return Summary{}, err
	}

	summary := Summary{RunID: b.runID, Records: len(b.records), Duration: time.Since(b.started)}
	for _, rec := range b.records {
		for _, kind := range catalog.Kinds {
			if _, ok := FindLocal(opts.ImagesDir, rec.ID, kind); ok {
				summary.Succeeded++
			} else {
				summary.Skipped++
			}
		}
	}
	b.record(ctx, ledger.ModeLocalize, summary, nil, nil)
	b.logSummary(summary)
	return summary, nil
}

func setup(ctx context.Context, opts Options, fetching bool) (*batch, error) {
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrSetup, "pipeline", "start", "batch canceled", err)
	}
	if opts.Input == "" || opts.Output == "" || opts.ImagesDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "options", "input, output and images dir are required", nil)
	}
	if fetching && opts.Fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "options", "fetcher is required", nil)
	}

	records, err := catalog.Load(opts.Input)
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "pipeline", "load input", opts.Input, err)
	}
	if err := catalog.CheckUnique(records); err != nil {
		return nil, services.Wrap(services.ErrSetup, "pipeline", "load input", opts.Input, err)
	}

	outputDirs := []string{filepath.Dir(opts.Output)}
	if opts.LocalOutput != "" {
		outputDirs = append(outputDirs, filepath.Dir(opts.LocalOutput))
	}
	dirs := outputDirs
	if fetching {
		dirs = append([]string{opts.ImagesDir}, outputDirs...)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrSetup, "pipeline", "create directory", dir, err)
		}
		if res := preflight.CheckDirectoryAccess(dir, dir); !res.Passed {
			return nil, services.Wrap(services.ErrSetup, "pipeline", "check directory", res.Detail, nil)
		}
	}

	b := &batch{
		opts:    opts,
		logger:  logger,
		runID:   uuid.NewString(),
		started: time.Now(),
		records: records,
	}
	b.logger = logger.With(logging.String(logging.FieldRunID, b.runID))

	if fetching {
		lock := flock.New(filepath.Join(opts.ImagesDir, LockFileName))
		ok, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrSetup, "pipeline", "acquire lock", opts.ImagesDir, err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrSetup, "pipeline", "acquire lock", opts.ImagesDir, ErrBatchLocked)
		}
		b.lock = lock
	}
	return b, nil
}

func (b *batch) release() {
	if b.lock == nil {
		return
	}
	if err := b.lock.Unlock(); err != nil {
		logging.WarnWithContext(b.logger, "failed to release batch lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+LockFileName+" if no batch is running"),
		)
	}
}

// localizeFunc rewrites resource paths relative to the directory of the
// output being written.
type localizeFunc func(records []catalog.Enriched, refDir, prefix string) []catalog.Enriched

func (b *batch) writeOutputs(localize localizeFunc) error {
	prefix := b.opts.LocalPrefix
	if prefix == "" {
		prefix = DefaultLocalPrefix
	}
	enriched := Enrich(b.records, b.opts.Resolver)

	primary := enriched
	if b.opts.Localize {
		primary = localize(enriched, filepath.Dir(b.opts.Output), prefix)
	}
	if err := catalog.Write(b.opts.Output, primary); err != nil {
		return services.Wrap(services.ErrWrite, "pipeline", "write output", b.opts.Output, err)
	}
	b.logger.Info("record set written",
		logging.String(logging.FieldEventType, "output_written"),
		logging.String("path", b.opts.Output),
		logging.Int("records", len(primary)),
	)

	if b.opts.LocalOutput == "" {
		return nil
	}
	local := localize(enriched, filepath.Dir(b.opts.LocalOutput), prefix)
	if err := catalog.Write(b.opts.LocalOutput, local); err != nil {
		return services.Wrap(services.ErrWrite, "pipeline", "write local output", b.opts.LocalOutput, err)
	}
	b.logger.Info("local record set written",
		logging.String(logging.FieldEventType, "output_written"),
		logging.String("path", b.opts.LocalOutput),
		logging.Int("records", len(local)),
	)
	return nil
}

func (b *batch) record(ctx context.Context, mode ledger.Mode, summary Summary, jobs []Job, results Results) {
	if b.opts.Ledger == nil {
		return
	}
	run := ledger.Run{
		ID:         b.runID,
		Mode:       mode,
		StartedAt:  b.started,
		FinishedAt: b.started.Add(summary.Duration),
		InputPath:  b.opts.Input,
		OutputPath: b.opts.Output,
		ImagesDir:  b.opts.ImagesDir,
		Records:    summary.Records,
		Jobs:       summary.Jobs,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Duration:   summary.Duration,
	}
	for _, job := range jobs {
		run.JobResults = append(run.JobResults, ledgerJob(results[job.Key()]))
	}

	// Cancellation must not prevent the history entry for a batch that ran.
	recordCtx := context.WithoutCancel(ctx)
	if err := b.opts.Ledger.Record(recordCtx, run); err != nil {
		logging.WarnWithContext(b.logger, "failed to record batch in ledger", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run cinefetch history to inspect the ledger or disable it in config"),
			logging.String(logging.FieldImpact, "batch outputs are complete but missing from history"),
		)
	}
}

func ledgerJob(outcome Outcome) ledger.Job {
	job := ledger.Job{
		RecordID:    outcome.Job.RecordID,
		Kind:        string(outcome.Job.Kind),
		SourceURL:   outcome.Job.SourceURL,
		Destination: outcome.Job.Destination,
		Status:      string(outcome.Status),
		Attempts:    outcome.Attempts,
		Bytes:       outcome.Bytes,
		Duration:    outcome.Duration,
	}
	if outcome.Failure != nil {
		job.FailureKind = string(outcome.Failure.Kind)
		job.HTTPStatus = outcome.Failure.Status
		job.ErrorMessage = outcome.Failure.Error()
	}
	return job
}

func (b *batch) logSummary(summary Summary) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_completed"),
		logging.Int("records", summary.Records),
		logging.Int("jobs", summary.Jobs),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
	}
	if summary.Failed > 0 {
		logging.WarnWithContext(b.logger, "batch completed with failed jobs", "batch_completed",
			append(attrs,
				logging.String(logging.FieldErrorHint, fmt.Sprintf("rerun to retry %d failed job(s)", summary.Failed)),
			)...,
		)
		return
	}
	b.logger.Info("batch completed", logging.Args(attrs...)...)
}
