package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeImages()
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Input) == "" {
		c.Paths.Input = defaultInputPath
	}
	if c.Paths.Input, err = expandPath(c.Paths.Input); err != nil {
		return fmt.Errorf("paths.input: %w", err)
	}
	if strings.TrimSpace(c.Paths.Output) == "" {
		c.Paths.Output = defaultOutputPath
	}
	if c.Paths.Output, err = expandPath(c.Paths.Output); err != nil {
		return fmt.Errorf("paths.output: %w", err)
	}
	// An empty local_output disables the localized second output.
	if c.Paths.LocalOutput, err = expandPath(strings.TrimSpace(c.Paths.LocalOutput)); err != nil {
		return fmt.Errorf("paths.local_output: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		c.Paths.ImagesDir = defaultImagesDir
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if strings.TrimSpace(c.TMDB.Token) == "" {
		if value, ok := os.LookupEnv("TMDB_TOKEN"); ok {
			c.TMDB.Token = value
		}
	}
	c.TMDB.Token = strings.TrimSpace(c.TMDB.Token)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	c.TMDB.Region = strings.ToUpper(strings.TrimSpace(c.TMDB.Region))
	if c.TMDB.Page <= 0 {
		c.TMDB.Page = defaultTMDBPage
	}
	if c.TMDB.Limit <= 0 {
		c.TMDB.Limit = defaultTMDBLimit
	}
	if c.TMDB.RequestTimeout <= 0 {
		c.TMDB.RequestTimeout = defaultTMDBTimeout
	}
}

func (c *Config) normalizeImages() {
	c.Images.BaseURL = strings.TrimSpace(c.Images.BaseURL)
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = defaultImageBaseURL
	}
	// SIZE_POSTER and SIZE_BACKDROP select size tokens for a single run and
	// take precedence over the file.
	if value := strings.TrimSpace(os.Getenv("SIZE_POSTER")); value != "" {
		c.Images.PosterSize = value
	}
	if value := strings.TrimSpace(os.Getenv("SIZE_BACKDROP")); value != "" {
		c.Images.BackdropSize = value
	}
	c.Images.PosterSize = strings.TrimSpace(c.Images.PosterSize)
	if c.Images.PosterSize == "" {
		c.Images.PosterSize = defaultPosterSize
	}
	c.Images.BackdropSize = strings.TrimSpace(c.Images.BackdropSize)
	if c.Images.BackdropSize == "" {
		c.Images.BackdropSize = defaultBackdropSize
	}
	if c.Images.LocalPrefix == "" {
		c.Images.LocalPrefix = defaultLocalPrefix
	}
}

func (c *Config) normalizeFetch() error {
	if value, ok := os.LookupEnv("CINEFETCH_CONCURRENCY"); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("CINEFETCH_CONCURRENCY: %w", err)
		}
		c.Fetch.Concurrency = n
	}
	if value, ok := os.LookupEnv("CINEFETCH_MAX_RETRIES"); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("CINEFETCH_MAX_RETRIES: %w", err)
		}
		c.Fetch.MaxRetries = n
	}
	if c.Fetch.Concurrency < 1 {
		c.Fetch.Concurrency = 1
	}
	if c.Fetch.RateLimitFactor == 0 {
		c.Fetch.RateLimitFactor = defaultRateLimitFactor
	}
	if c.Fetch.RequestTimeout <= 0 {
		c.Fetch.RequestTimeout = defaultRequestTimeout
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
	return nil
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = ""
		return nil
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
