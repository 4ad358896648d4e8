package assets_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cinefetch/internal/assets"
	"cinefetch/internal/catalog"
	"cinefetch/internal/logging"
)

// countingFetcher tracks how many fetches run at once and fails the test
// when the ceiling is exceeded on any transition.
type countingFetcher struct {
	t       *testing.T
	ceiling int32
	active  atomic.Int32
	peak    atomic.Int32
	hold    time.Duration
	fail    map[string]bool
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (assets.Fetched, error) {
	n := f.active.Add(1)
	if n > f.ceiling {
		f.t.Errorf("active fetches = %d, ceiling %d", n, f.ceiling)
	}
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(f.hold)
	if after := f.active.Add(-1); after < 0 {
		f.t.Errorf("active fetches after release = %d", after)
	}
	if f.fail[url] {
		return assets.Fetched{}, &assets.Failure{Kind: assets.FailureHTTPError, Status: 500, Attempts: 3, Err: errors.New("boom")}
	}
	return assets.Fetched{Body: []byte("payload:" + url), Attempts: 1}, nil
}

func makeJobs(dir string, n int) []assets.Job {
	jobs := make([]assets.Job, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprint(i)
		jobs = append(jobs, assets.Job{
			RecordID:    id,
			Kind:        catalog.KindPoster,
			SourceURL:   "https://img.example/w500/" + id + ".jpg",
			Destination: filepath.Join(dir, id+"_poster.jpg"),
		})
	}
	return jobs
}

func TestRunAllRespectsCeiling(t *testing.T) {
	for _, limit := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			dir := t.TempDir()
			fetcher := &countingFetcher{t: t, ceiling: int32(limit), hold: 5 * time.Millisecond}
			scheduler := &assets.Scheduler{Fetcher: fetcher, Logger: logging.NewNop()}

			jobs := makeJobs(dir, 20)
			results := scheduler.RunAll(context.Background(), jobs, limit)

			if len(results) != len(jobs) {
				t.Fatalf("expected %d outcomes, got %d", len(jobs), len(results))
			}
			if got := results.Count(assets.StatusSuccess); got != len(jobs) {
				t.Fatalf("succeeded = %d", got)
			}
			if peak := fetcher.peak.Load(); peak > int32(limit) {
				t.Fatalf("peak concurrency %d exceeds %d", peak, limit)
			}
			if fetcher.active.Load() != 0 {
				t.Fatalf("jobs still active after RunAll returned")
			}
		})
	}
}

func TestRunAllDefaultsCeiling(t *testing.T) {
	fetcher := &countingFetcher{t: t, ceiling: assets.DefaultConcurrency, hold: 2 * time.Millisecond}
	scheduler := &assets.Scheduler{Fetcher: fetcher}
	results := scheduler.RunAll(context.Background(), makeJobs(t.TempDir(), 12), 0)
	if results.Count(assets.StatusSuccess) != 12 {
		t.Fatalf("expected all jobs to succeed, got %+v", results)
	}
}

func TestRunAllWritesBeforeSuccess(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(dir, 3)
	fetcher := &countingFetcher{t: t, ceiling: 5, fail: map[string]bool{jobs[1].SourceURL: true}}
	scheduler := &assets.Scheduler{Fetcher: fetcher}

	results := scheduler.RunAll(context.Background(), jobs, 5)

	for _, job := range []assets.Job{jobs[0], jobs[2]} {
		outcome := results[job.Key()]
		if outcome.Status != assets.StatusSuccess || outcome.Path != job.Destination {
			t.Fatalf("unexpected outcome for %s: %+v", job.Key(), outcome)
		}
		data, err := os.ReadFile(job.Destination)
		if err != nil {
			t.Fatalf("read %s: %v", job.Destination, err)
		}
		if string(data) != "payload:"+job.SourceURL || outcome.Bytes != int64(len(data)) {
			t.Fatalf("unexpected payload %q (bytes=%d)", data, outcome.Bytes)
		}
	}

	failed := results[jobs[1].Key()]
	if failed.Status != assets.StatusFailed || failed.Failure == nil || failed.Failure.Kind != assets.FailureHTTPError {
		t.Fatalf("unexpected failed outcome: %+v", failed)
	}
	if failed.Path != "" || failed.Attempts != 3 {
		t.Fatalf("failed job should have no path and report attempts: %+v", failed)
	}
	if _, err := os.Stat(jobs[1].Destination); !os.IsNotExist(err) {
		t.Fatalf("failed job left a file behind: %v", err)
	}
	if got := results.Failures(); len(got) != 1 || got[0].Job != jobs[1] {
		t.Fatalf("Failures() = %+v", got)
	}
}

type failingStore struct{}

func (failingStore) Put(string, []byte) error { return errors.New("disk full") }

func TestRunAllStoreFailureIsWriteError(t *testing.T) {
	fetcher := &countingFetcher{t: t, ceiling: 5}
	scheduler := &assets.Scheduler{Fetcher: fetcher, Store: failingStore{}}

	results := scheduler.RunAll(context.Background(), makeJobs(t.TempDir(), 2), 2)
	for key, outcome := range results {
		if outcome.Status != assets.StatusFailed || outcome.Failure.Kind != assets.FailureWriteError {
			t.Fatalf("%s: expected write_error, got %+v", key, outcome)
		}
		if !strings.Contains(outcome.Failure.Error(), "disk full") {
			t.Fatalf("failure should carry cause: %v", outcome.Failure)
		}
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	started int
	done    []assets.Outcome
}

func (o *recordingObserver) JobStarted(assets.Job) {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *recordingObserver) JobDone(outcome assets.Outcome) {
	o.mu.Lock()
	o.done = append(o.done, outcome)
	o.mu.Unlock()
}

func TestRunAllCanceledMarksPendingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	observer := &recordingObserver{}
	fetcher := &countingFetcher{t: t, ceiling: 1}
	scheduler := &assets.Scheduler{Fetcher: fetcher, Observer: observer}

	jobs := makeJobs(t.TempDir(), 4)
	results := scheduler.RunAll(ctx, jobs, 1)

	if results.Count(assets.StatusFailed) != len(jobs) {
		t.Fatalf("expected every job failed, got %+v", results)
	}
	for _, outcome := range results {
		if outcome.Failure.Kind != assets.FailureUnreachable || !errors.Is(outcome.Failure, context.Canceled) {
			t.Fatalf("unexpected failure: %+v", outcome.Failure)
		}
	}
	if fetcher.peak.Load() != 0 {
		t.Fatalf("canceled batch should not fetch")
	}
	if observer.started != len(jobs) || len(observer.done) != len(jobs) {
		t.Fatalf("observer saw %d starts and %d completions", observer.started, len(observer.done))
	}
	for _, outcome := range observer.done {
		if outcome.Status == assets.StatusPending {
			t.Fatalf("observer received non-terminal outcome: %+v", outcome)
		}
	}
}

func TestFailuresOrderNumericIDsByValue(t *testing.T) {
	results := assets.Results{}
	add := func(id string, kind catalog.Kind, status assets.Status) {
		job := assets.Job{RecordID: id, Kind: kind}
		results[job.Key()] = assets.Outcome{Job: job, Status: status}
	}
	add("10", catalog.KindPoster, assets.StatusFailed)
	add("2", catalog.KindBackdrop, assets.StatusFailed)
	add("2", catalog.KindPoster, assets.StatusFailed)
	add("tt9", catalog.KindPoster, assets.StatusFailed)
	add("100", catalog.KindPoster, assets.StatusFailed)
	add("abc", catalog.KindPoster, assets.StatusFailed)
	add("3", catalog.KindPoster, assets.StatusSuccess)

	var got []string
	for _, o := range results.Failures() {
		got = append(got, o.Job.Key().String())
	}
	want := "2/poster,2/backdrop,10/poster,100/poster,abc/poster,tt9/poster"
	if strings.Join(got, ",") != want {
		t.Fatalf("Failures order = %v, want %s", got, want)
	}
}
