package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable for a download batch.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateTMDBSettings(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateTMDB reports whether the popular-list request can be issued.
// The download batch never needs a token, so this is checked separately.
func (c *Config) ValidateTMDB() error {
	if strings.TrimSpace(c.TMDB.Token) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cinefetch/config.toml"
		}
		return fmt.Errorf("tmdb.token is required. Set TMDB_TOKEN env var or edit %s (create with 'cinefetch config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Input == "" {
		return errors.New("paths.input must be set")
	}
	if c.Paths.Output == "" {
		return errors.New("paths.output must be set")
	}
	if c.Paths.ImagesDir == "" {
		return errors.New("paths.images_dir must be set")
	}
	if c.Paths.Output == c.Paths.Input {
		return errors.New("paths.output must differ from paths.input")
	}
	if c.Paths.LocalOutput != "" && (c.Paths.LocalOutput == c.Paths.Input || c.Paths.LocalOutput == c.Paths.Output) {
		return errors.New("paths.local_output must differ from paths.input and paths.output")
	}
	return nil
}

func (c *Config) validateImages() error {
	if err := validateHTTPURL("images.base_url", c.Images.BaseURL); err != nil {
		return err
	}
	if strings.ContainsAny(c.Images.PosterSize, "/ ") {
		return fmt.Errorf("images.poster_size %q must be a single size token", c.Images.PosterSize)
	}
	if strings.ContainsAny(c.Images.BackdropSize, "/ ") {
		return fmt.Errorf("images.backdrop_size %q must be a single size token", c.Images.BackdropSize)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must be >= 0")
	}
	if c.Fetch.BackoffMillis < 0 {
		return errors.New("fetch.backoff_ms must be >= 0")
	}
	if c.Fetch.RateLimitFactor < 1 {
		return errors.New("fetch.rate_limit_factor must be >= 1")
	}
	return nil
}

func (c *Config) validateTMDBSettings() error {
	if err := validateHTTPURL("tmdb.base_url", c.TMDB.BaseURL); err != nil {
		return err
	}
	if _, err := language.Parse(c.TMDB.Language); err != nil {
		return fmt.Errorf("tmdb.language %q: %w", c.TMDB.Language, err)
	}
	if c.TMDB.Region != "" {
		if _, err := language.ParseRegion(c.TMDB.Region); err != nil {
			return fmt.Errorf("tmdb.region %q: %w", c.TMDB.Region, err)
		}
	}
	if c.TMDB.Page > 500 {
		return errors.New("tmdb.page must be between 1 and 500")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s %q must use http or https", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s %q must include a host", field, raw)
	}
	return nil
}
