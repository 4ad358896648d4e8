package testsupport

import (
	"path/filepath"
	"testing"

	"cinefetch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.Token = "test"
	cfgVal.Paths.Input = filepath.Join(base, "popular.json")
	cfgVal.Paths.Output = filepath.Join(base, "popular_with_images.json")
	cfgVal.Paths.LocalOutput = filepath.Join(base, "movies.local.json")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Fetch.BackoffMillis = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithImageHost points the image base URL at a test server.
func WithImageHost(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.BaseURL = baseURL
	}
}

// WithRecords writes a record set fixture to the config's input path.
func WithRecords(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Paths.Input, []byte(body))
	}
}

// WithoutLedger disables run history.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
