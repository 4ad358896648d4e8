package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cinefetch/internal/config"
	"cinefetch/internal/ledger"
	"cinefetch/internal/logging"
	"cinefetch/internal/services"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadDotEnv(".env"); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load .env", "", err)
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loadDotEnv reads KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ensureLogger builds the slog logger writing to the command's stderr and to
// the daily JSON log file. Old log files are pruned on first use.
func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := cfg.Logging.Level
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		var stderr io.Writer = os.Stderr
		if cmd != nil {
			stderr = cmd.ErrOrStderr()
		}
		opts := logging.Options{
			Level:  level,
			Format: cfg.Logging.Format,
			Writer: stderr,
		}
		if dir := cfg.LogDir(); dir != "" {
			opts.FilePath = logging.DailyLogPath(dir, time.Now())
		}
		logger, err := logging.New(opts)
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "cli", "build logger", "", err)
			return
		}
		logging.CleanupOldLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays, opts.FilePath)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openLedger opens the run history when enabled. It returns a nil store
// without error when the ledger is disabled.
func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
