package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cinefetch/internal/services"
)

// FailureKind classifies why a job did not succeed.
type FailureKind string

const (
	FailureUnreachable FailureKind = "unreachable"
	FailureHTTPError   FailureKind = "http_error"
	FailureWriteError  FailureKind = "write_error"
)

const (
	defaultMaxRetries      = 2
	defaultBaseDelay       = 500 * time.Millisecond
	defaultRateLimitFactor = 2.0
	maxRetryAfter          = 30 * time.Second

	// maxPayloadBytes bounds a single image body. TMDB originals stay well
	// below it.
	maxPayloadBytes = 32 << 20
)

// ErrPayloadTooLarge reports a response body above the transport's limit.
var ErrPayloadTooLarge = errors.New("payload too large")

// Failure is the terminal error of a job.
type Failure struct {
	Kind FailureKind
	// Status is the HTTP status of the last attempt, zero when none was received.
	Status   int
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	switch {
	case f.Status != 0:
		return fmt.Sprintf("%s (status %d) after %d attempt(s): %v", f.Kind, f.Status, f.Attempts, f.Err)
	case f.Attempts > 0:
		return fmt.Sprintf("%s after %d attempt(s): %v", f.Kind, f.Attempts, f.Err)
	default:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// StatusError reports a non-2xx response from the image host.
type StatusError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Status, http.StatusText(e.Status))
}

// Transport performs a single GET attempt and returns the full body.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// HTTPTransport is a Transport backed by net/http.
type HTTPTransport struct {
	Client    *http.Client
	UserAgent string
	// MaxBodyBytes caps the accepted body size; zero means maxPayloadBytes.
	MaxBodyBytes int64
}

// NewHTTPTransport returns a transport with the given per-request timeout.
func NewHTTPTransport(timeout time.Duration, userAgent string) *HTTPTransport {
	return &HTTPTransport{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Get issues one request. Non-2xx responses return *StatusError. Requests
// that cannot be built and oversized bodies are tagged services.ErrValidation
// and are not retried.
func (t *HTTPTransport) Get(ctx context.Context, url string) ([]byte, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetcher", "build request", "", err)
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &StatusError{Status: resp.StatusCode, RetryAfter: retryAfter}
	}
	limit := t.MaxBodyBytes
	if limit <= 0 {
		limit = maxPayloadBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, services.Wrap(services.ErrValidation, "fetcher", "read body",
			fmt.Sprintf("limit %d bytes", limit), ErrPayloadTooLarge)
	}
	return body, nil
}

// Fetched is the payload of a successful fetch.
type Fetched struct {
	Body     []byte
	Attempts int
}

// Fetcher performs one logical download including its retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Fetched, error)
}

// RetryingFetcher retries failed attempts with linear backoff. The delay
// before retry n (1-based) is BaseDelay*n, scaled by RateLimitFactor when the
// failed attempt was answered with 429.
type RetryingFetcher struct {
	Transport       Transport
	MaxRetries      int
	BaseDelay       time.Duration
	RateLimitFactor float64
	// Sleep waits between attempts. It must return ctx.Err() when ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingFetcher returns a fetcher using the default sleep.
func NewRetryingFetcher(transport Transport, maxRetries int, baseDelay time.Duration, rateLimitFactor float64) *RetryingFetcher {
	return &RetryingFetcher{
		Transport:       transport,
		MaxRetries:      maxRetries,
		BaseDelay:       baseDelay,
		RateLimitFactor: rateLimitFactor,
	}
}

// Fetch makes up to MaxRetries+1 sequential attempts. A failure after the last
// attempt wraps services.ErrRetriesExhausted; cancellation returns a Failure
// wrapping the context error instead. Failures that services.IsRetryable
// rejects end the fetch after the attempt that produced them.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (Fetched, error) {
	if f.Transport == nil {
		return Fetched{}, &Failure{Kind: FailureUnreachable, Err: errors.New("no transport configured")}
	}
	retries := f.MaxRetries
	if retries < 0 {
		retries = defaultMaxRetries
	}
	attempts := retries + 1

	var last *Failure
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Fetched{}, canceled(last, attempt, err)
		}
		body, err := f.Transport.Get(ctx, url)
		if err == nil {
			return Fetched{Body: body, Attempts: attempt + 1}, nil
		}
		last = classify(err, attempt+1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fetched{}, canceled(last, attempt+1, ctxErr)
		}
		if !services.IsRetryable(last.Err) {
			return Fetched{}, last
		}
		if attempt == attempts-1 {
			break
		}
		if err := f.sleep(ctx, f.delay(attempt, err)); err != nil {
			return Fetched{}, canceled(last, attempt+1, err)
		}
	}

	last.Err = fmt.Errorf("%w: %w", services.ErrRetriesExhausted, last.Err)
	return Fetched{}, last
}

func (f *RetryingFetcher) delay(attempt int, err error) time.Duration {
	base := f.BaseDelay
	if base < 0 {
		base = defaultBaseDelay
	}
	delay := base * time.Duration(attempt+1)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusTooManyRequests {
		factor := f.RateLimitFactor
		if factor < 1 {
			factor = defaultRateLimitFactor
		}
		delay = time.Duration(float64(delay) * factor)
		if retryAfter := min(statusErr.RetryAfter, maxRetryAfter); retryAfter > delay {
			delay = retryAfter
		}
	}
	return delay
}

func (f *RetryingFetcher) sleep(ctx context.Context, d time.Duration) error {
	if f.Sleep != nil {
		return f.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classify(err error, attempts int) *Failure {
	if errors.Is(err, services.ErrValidation) {
		kind := FailureUnreachable
		if errors.Is(err, ErrPayloadTooLarge) {
			kind = FailureHTTPError
		}
		return &Failure{Kind: kind, Attempts: attempts, Err: err}
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return &Failure{
			Kind:     FailureHTTPError,
			Status:   statusErr.Status,
			Attempts: attempts,
			Err:      services.Wrap(services.ErrResponse, "fetcher", "get", "", err),
		}
	}
	return &Failure{
		Kind:     FailureUnreachable,
		Attempts: attempts,
		Err:      services.Wrap(services.ErrTransport, "fetcher", "get", "", err),
	}
}

func canceled(last *Failure, attempts int, err error) *Failure {
	if last == nil {
		return &Failure{Kind: FailureUnreachable, Attempts: attempts, Err: err}
	}
	last.Attempts = attempts
	last.Err = fmt.Errorf("%w (last error: %w)", err, last.Err)
	return last
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
