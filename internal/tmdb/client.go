package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxPage is the highest page TMDB serves for list endpoints.
const maxPage = 500

// Movie is the projection of a popular-list entry written to the record set.
// Field order is the output key order.
type Movie struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
	PosterPath    *string `json:"poster_path"`
	BackdropPath  *string `json:"backdrop_path"`
}

// Response models the TMDB paginated list response.
type Response struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// PopularOptions narrows the popular-list request.
type PopularOptions struct {
	Region string
	// Page is the first page requested (1-based).
	Page int
	// Limit caps the number of movies returned. Further pages are requested
	// until the limit is reached or the list is exhausted.
	Limit int
}

// Lister defines the TMDB list operations used by the CLI.
type Lister interface {
	Popular(ctx context.Context, opts PopularOptions) ([]Movie, error)
}

// Client provides bearer-authenticated access to the TMDB v3 API.
type Client struct {
	token      string
	baseURL    string
	language   string
	userAgent  string
	httpClient *http.Client
}

var _ Lister = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// New creates a TMDB client using a v4 read access token.
func New(token, baseURL, language string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("tmdb token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Popular returns up to opts.Limit movies from /movie/popular starting at
// opts.Page.
func (c *Client) Popular(ctx context.Context, opts PopularOptions) ([]Movie, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	movies := make([]Movie, 0, limit)
	for len(movies) < limit && page <= maxPage {
		resp, err := c.popularPage(ctx, opts.Region, page)
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Results {
			if len(movies) == limit {
				break
			}
			movies = append(movies, m)
		}
		if len(resp.Results) == 0 || page >= resp.TotalPages {
			break
		}
		page++
	}
	return movies, nil
}

func (c *Client) popularPage(ctx context.Context, region string, page int) (*Response, error) {
	endpoint, err := url.Parse(c.baseURL + "/movie/popular")
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	if c.language != "" {
		params.Set("language", c.language)
	}
	if region = strings.TrimSpace(region); region != "" {
		params.Set("region", region)
	}
	params.Set("page", strconv.Itoa(page))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet)), Latency: latency}
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	return &payload, nil
}

// StatusError reports a non-200 TMDB response.
type StatusError struct {
	Status  int
	Body    string
	Latency time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tmdb popular returned %d (latency=%v)", e.Status, e.Latency)
	}
	return fmt.Sprintf("tmdb popular returned %d (latency=%v): %s", e.Status, e.Latency, e.Body)
}
