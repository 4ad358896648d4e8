package preflight

import (
	"context"
	"net/http"
	"path/filepath"

	"cinefetch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options tunes RunAll.
type Options struct {
	// SkipNetwork disables the image host probe.
	SkipNetwork bool
	HTTPClient  *http.Client
}

// RunAll executes the batch readiness checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableFile("Input record set", cfg.Paths.Input),
		CheckCreatableDirectory("Images directory", cfg.Paths.ImagesDir),
		CheckCreatableDirectory("Output directory", filepath.Dir(cfg.Paths.Output)),
	}
	if cfg.Paths.LocalOutput != "" {
		results = append(results, CheckCreatableDirectory("Local output directory", filepath.Dir(cfg.Paths.LocalOutput)))
	}

	if !opts.SkipNetwork {
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: cfg.FetchTimeout()}
		}
		results = append(results, CheckImageHost(ctx, client, cfg.Images.BaseURL, cfg.Fetch.UserAgent))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
