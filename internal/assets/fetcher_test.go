package assets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cinefetch/internal/assets"
	"cinefetch/internal/services"
)

// scriptedTransport replays a fixed list of results, one per attempt.
type scriptedTransport struct {
	mu      sync.Mutex
	results []error
	body    []byte
	calls   int
}

func (s *scriptedTransport) Get(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return nil, s.results[idx]
	}
	return s.body, nil
}

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestFetchSucceedsOnThirdAttempt(t *testing.T) {
	transport := &scriptedTransport{
		results: []error{errors.New("connection reset"), &assets.StatusError{Status: 502}},
		body:    []byte("jpeg"),
	}
	sleeper := &recordingSleep{}
	fetcher := &assets.RetryingFetcher{
		Transport:  transport,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		Sleep:      sleeper.Sleep,
	}

	got, err := fetcher.Fetch(context.Background(), "https://img.example/w500/a.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got.Body) != "jpeg" || got.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", sleeper.delays, want)
		}
		if i > 0 && sleeper.delays[i] < sleeper.delays[i-1] {
			t.Fatalf("delays decreased: %v", sleeper.delays)
		}
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	transport := &scriptedTransport{results: []error{
		&assets.StatusError{Status: 500},
		&assets.StatusError{Status: 500},
		&assets.StatusError{Status: 404},
	}}
	sleeper := &recordingSleep{}
	fetcher := &assets.RetryingFetcher{Transport: transport, MaxRetries: 2, BaseDelay: time.Millisecond, Sleep: sleeper.Sleep}

	_, err := fetcher.Fetch(context.Background(), "https://img.example/w500/missing.jpg")
	var failure *assets.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %T %v", err, err)
	}
	if failure.Kind != assets.FailureHTTPError || failure.Status != 404 || failure.Attempts != 3 {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if !errors.Is(err, services.ErrRetriesExhausted) || !errors.Is(err, services.ErrResponse) {
		t.Fatalf("expected exhausted response failure, got %v", err)
	}
	if transport.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", transport.calls)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected no sleep after final attempt, got %v", sleeper.delays)
	}
}

func TestFetchTransportFailureIsUnreachable(t *testing.T) {
	transport := &scriptedTransport{results: []error{errors.New("dial tcp: refused")}}
	fetcher := &assets.RetryingFetcher{Transport: transport, MaxRetries: 0, Sleep: (&recordingSleep{}).Sleep}

	_, err := fetcher.Fetch(context.Background(), "https://img.example/a.jpg")
	var failure *assets.Failure
	if !errors.As(err, &failure) || failure.Kind != assets.FailureUnreachable || failure.Attempts != 1 {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
}

func TestFetchRateLimitedBacksOffLonger(t *testing.T) {
	transport := &scriptedTransport{
		results: []error{
			&assets.StatusError{Status: http.StatusTooManyRequests},
			&assets.StatusError{Status: http.StatusTooManyRequests, RetryAfter: 7 * time.Second},
		},
		body: []byte("ok"),
	}
	sleeper := &recordingSleep{}
	fetcher := &assets.RetryingFetcher{
		Transport:       transport,
		MaxRetries:      2,
		BaseDelay:       100 * time.Millisecond,
		RateLimitFactor: 3,
		Sleep:           sleeper.Sleep,
	}

	if _, err := fetcher.Fetch(context.Background(), "https://img.example/a.jpg"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []time.Duration{300 * time.Millisecond, 7 * time.Second}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", sleeper.delays, want)
		}
	}
}

func TestFetchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := &scriptedTransport{results: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	fetcher := &assets.RetryingFetcher{
		Transport:  transport,
		MaxRetries: 2,
		BaseDelay:  time.Hour,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return assets.Sleep(ctx, d)
		},
	}

	_, err := fetcher.Fetch(ctx, "https://img.example/a.jpg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrRetriesExhausted) {
		t.Fatalf("cancellation must not report exhaustion: %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("expected 1 attempt before cancel, got %d", transport.calls)
	}
}

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "cinefetch/test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/w500/a.jpg":
			_, _ = w.Write([]byte("poster-bytes"))
		case "/w500/slow.jpg":
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	transport := assets.NewHTTPTransport(5*time.Second, "cinefetch/test")
	ctx := context.Background()

	body, err := transport.Get(ctx, srv.URL+"/w500/a.jpg")
	if err != nil || string(body) != "poster-bytes" {
		t.Fatalf("Get = (%q, %v)", body, err)
	}

	_, err = transport.Get(ctx, srv.URL+"/w500/slow.jpg")
	var statusErr *assets.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusTooManyRequests || statusErr.RetryAfter != 4*time.Second {
		t.Fatalf("unexpected error: %#v", err)
	}

	_, err = transport.Get(ctx, srv.URL+"/w500/missing.jpg")
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
}

func TestFetchDoesNotRetryValidationFailures(t *testing.T) {
	invalid := services.Wrap(services.ErrValidation, "fetcher", "build request", "", errors.New("bad url"))
	transport := &scriptedTransport{results: []error{invalid, nil}, body: []byte("jpeg")}
	sleeper := &recordingSleep{}
	fetcher := &assets.RetryingFetcher{Transport: transport, MaxRetries: 3, Sleep: sleeper.Sleep}

	_, err := fetcher.Fetch(context.Background(), "https://img.example/a.jpg")
	var failure *assets.Failure
	if !errors.As(err, &failure) || failure.Attempts != 1 {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.calls != 1 || len(sleeper.delays) != 0 {
		t.Fatalf("expected a single attempt without waiting, got %d calls %v", transport.calls, sleeper.delays)
	}
	if errors.Is(err, services.ErrRetriesExhausted) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation failure without exhaustion, got %v", err)
	}
}

func TestHTTPTransportRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	transport := assets.NewHTTPTransport(5*time.Second, "")
	transport.MaxBodyBytes = 10
	if body, err := transport.Get(context.Background(), srv.URL+"/w500/exact.jpg"); err != nil || len(body) != 10 {
		t.Fatalf("body at the limit must be accepted: (%q, %v)", body, err)
	}

	transport.MaxBodyBytes = 4
	fetcher := &assets.RetryingFetcher{Transport: transport, MaxRetries: 2, Sleep: (&recordingSleep{}).Sleep}
	_, err := fetcher.Fetch(context.Background(), srv.URL+"/w500/big.jpg")
	var failure *assets.Failure
	if !errors.As(err, &failure) || failure.Kind != assets.FailureHTTPError || failure.Attempts != 1 {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, assets.ErrPayloadTooLarge) {
		t.Fatalf("expected payload limit error, got %v", err)
	}
}
