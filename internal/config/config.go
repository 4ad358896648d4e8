package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains batch input/output locations.
type Paths struct {
	Input       string `toml:"input"`
	Output      string `toml:"output"`
	LocalOutput string `toml:"local_output"`
	ImagesDir   string `toml:"images_dir"`
	StateDir    string `toml:"state_dir"`
}

// TMDB contains configuration for the upstream popular-list request.
type TMDB struct {
	Token          string `toml:"token"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	Region         string `toml:"region"`
	Page           int    `toml:"page"`
	Limit          int    `toml:"limit"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Images contains image host and size selection settings.
type Images struct {
	BaseURL      string `toml:"base_url"`
	PosterSize   string `toml:"poster_size"`
	BackdropSize string `toml:"backdrop_size"`
	// LocalPrefix is prepended to rewritten local paths (e.g. "./images/1_poster.jpg").
	LocalPrefix string `toml:"local_prefix"`
}

// Fetch contains download scheduling and retry settings.
type Fetch struct {
	Concurrency     int     `toml:"concurrency"`
	MaxRetries      int     `toml:"max_retries"`
	BackoffMillis   int     `toml:"backoff_ms"`
	RateLimitFactor float64 `toml:"rate_limit_factor"`
	RequestTimeout  int     `toml:"request_timeout"`
	UserAgent       string  `toml:"user_agent"`
}

// Ledger contains configuration for the batch run history database.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <state_dir>/ledger.db
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cinefetch.
//
// Configuration sections by subsystem:
//   - Paths: input record set, enriched outputs, image directory, state
//   - TMDB: upstream popular-list request
//   - Images: image host base URL and size tokens
//   - Fetch: concurrency ceiling, retries, backoff, HTTP timeouts
//   - Ledger: SQLite batch history
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	TMDB    TMDB    `toml:"tmdb"`
	Images  Images  `toml:"images"`
	Fetch   Fetch   `toml:"fetch"`
	Ledger  Ledger  `toml:"ledger"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinefetch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cinefetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for logs and the ledger.
// Batch output directories are created by the pipeline during setup so their
// failures surface as setup failures.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LogDir returns the directory that receives the cinefetch log file.
func (c *Config) LogDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "logs")
}

// LedgerPath returns the SQLite ledger location.
func (c *Config) LedgerPath() string {
	if p := strings.TrimSpace(c.Ledger.Path); p != "" {
		return p
	}
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// BackoffBase returns the linear backoff unit between retry attempts.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Fetch.BackoffMillis) * time.Millisecond
}

// FetchTimeout returns the per-attempt HTTP timeout for image downloads.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.RequestTimeout) * time.Second
}

// TMDBTimeout returns the HTTP timeout for the upstream catalog request.
func (c *Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDB.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
