package assets

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cinefetch/internal/fileutil"
	"cinefetch/internal/logging"
	"cinefetch/internal/services"
)

// DefaultConcurrency is the in-flight job ceiling when none is configured.
const DefaultConcurrency = 5

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the terminal result of a job.
type Outcome struct {
	Job      Job
	Status   Status
	Attempts int
	// Path is the written destination, set only on success.
	Path     string
	Bytes    int64
	Failure  *Failure
	Duration time.Duration
}

// Results maps job identity to outcome.
type Results map[JobKey]Outcome

// Succeeded reports whether the job for key was written.
func (r Results) Succeeded(key JobKey) bool {
	return r[key].Status == StatusSuccess
}

// Count returns the number of outcomes with status.
func (r Results) Count(status Status) int {
	n := 0
	for _, o := range r {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failures returns failed outcomes ordered by record id, then poster before
// backdrop. Numeric ids compare by value and sort ahead of other ids.
func (r Results) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		if c := compareRecordIDs(failed[i].Job.RecordID, failed[j].Job.RecordID); c != 0 {
			return c < 0
		}
		return failed[i].Job.Kind > failed[j].Job.Kind
	})
	return failed
}

func compareRecordIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// Store persists a downloaded payload.
type Store interface {
	Put(path string, data []byte) error
}

// FileStore writes payloads atomically to the local filesystem.
type FileStore struct{}

// Put replaces path with data via a synced temp file and rename.
func (FileStore) Put(path string, data []byte) error {
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Observer is notified when a job takes and releases a slot.
type Observer interface {
	JobStarted(job Job)
	JobDone(outcome Outcome)
}

// Scheduler drives jobs to completion under a concurrency ceiling.
type Scheduler struct {
	Fetcher  Fetcher
	Store    Store
	Observer Observer
	Logger   *slog.Logger
}

// RunAll runs every job and returns once all of them are terminal. At most
// limit jobs hold a slot at once; a slot is held across a job's retries.
// Job failures never cancel siblings. When ctx ends, jobs not yet started
// are marked failed without fetching.
func (s *Scheduler) RunAll(ctx context.Context, jobs []Job, limit int) Results {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	logger := logging.NewComponentLogger(s.Logger, "scheduler")
	store := s.Store
	if store == nil {
		store = FileStore{}
	}

	results := make(Results, len(jobs))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)

	for _, job := range jobs {
		g.Go(func() error {
			outcome := s.runJob(ctx, job, store)
			mu.Lock()
			results[job.Key()] = outcome
			mu.Unlock()
			logOutcome(ctx, logger, outcome)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) runJob(ctx context.Context, job Job, store Store) (outcome Outcome) {
	outcome = Outcome{Job: job, Status: StatusPending}
	if s.Observer != nil {
		s.Observer.JobStarted(job)
		defer func() { s.Observer.JobDone(outcome) }()
	}
	started := time.Now()
	defer func() { outcome.Duration = time.Since(started) }()

	if err := ctx.Err(); err != nil {
		outcome.Status = StatusFailed
		outcome.Failure = &Failure{Kind: FailureUnreachable, Err: err}
		return outcome
	}
	if s.Fetcher == nil {
		outcome.Status = StatusFailed
		outcome.Failure = &Failure{Kind: FailureUnreachable, Err: errors.New("no fetcher configured")}
		return outcome
	}

	fetched, err := s.Fetcher.Fetch(ctx, job.SourceURL)
	outcome.Attempts = fetched.Attempts
	if err != nil {
		outcome.Status = StatusFailed
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Kind: FailureUnreachable, Err: err}
		}
		outcome.Failure = failure
		outcome.Attempts = failure.Attempts
		return outcome
	}

	if err := store.Put(job.Destination, fetched.Body); err != nil {
		outcome.Status = StatusFailed
		outcome.Failure = &Failure{
			Kind:     FailureWriteError,
			Attempts: fetched.Attempts,
			Err:      services.Wrap(services.ErrWrite, "scheduler", "store payload", job.Destination, err),
		}
		return outcome
	}

	outcome.Status = StatusSuccess
	outcome.Path = job.Destination
	outcome.Bytes = int64(len(fetched.Body))
	return outcome
}

func logOutcome(ctx context.Context, logger *slog.Logger, outcome Outcome) {
	jobCtx := services.WithKind(services.WithRecordID(ctx, outcome.Job.RecordID), string(outcome.Job.Kind))
	logger = logging.WithContext(jobCtx, logger)
	if outcome.Status == StatusSuccess {
		logger.Info("asset stored",
			logging.String(logging.FieldEventType, "job_succeeded"),
			logging.String("path", outcome.Path),
			logging.Int64("bytes", outcome.Bytes),
			logging.Int("attempts", outcome.Attempts),
			logging.Duration("duration", outcome.Duration),
		)
		return
	}

	attrs := []logging.Attr{
		logging.String("source_url", outcome.Job.SourceURL),
		logging.Int("attempts", outcome.Attempts),
		logging.String("failure_kind", string(outcome.Failure.Kind)),
		logging.Error(outcome.Failure),
		logging.String(logging.FieldImpact, "record keeps its remote url and gets no local file"),
	}
	if outcome.Failure.Status != 0 {
		attrs = append(attrs, logging.Int("http_status", outcome.Failure.Status))
	}
	attrs = append(attrs, logging.String(logging.FieldErrorHint, failureHint(outcome.Failure.Kind)))
	logging.WarnWithContext(logger, "asset download failed", "job_failed", attrs...)
}

func failureHint(kind FailureKind) string {
	switch kind {
	case FailureHTTPError:
		return "check the resource path and image size token"
	case FailureWriteError:
		return "check free space and permissions on the images directory"
	default:
		return "check network connectivity to the image host"
	}
}
