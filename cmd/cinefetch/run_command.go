package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cinefetch/internal/assets"
	"cinefetch/internal/config"
	"cinefetch/internal/fileutil"
	"cinefetch/internal/logging"
)

type batchFlags struct {
	input       string
	output      string
	localOutput string
	images      string
	concurrency int
	retries     int
	noLocal     bool
	localize    bool
	jsonOut     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download artwork for every record and write the enriched record sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			effective, err := applyBatchFlags(cmd, *cfg, flags)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}

			transport := assets.NewHTTPTransport(effective.FetchTimeout(), effective.Fetch.UserAgent)
			opts := batchOptions(&effective, logger)
			opts.Localize = flags.localize
			opts.Fetcher = assets.NewRetryingFetcher(transport, effective.Fetch.MaxRetries, effective.BackoffBase(), effective.Fetch.RateLimitFactor)

			closeLedger := attachLedger(ctx, &opts, logger)
			defer closeLedger()

			summary, err := assets.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printSummary(cmd, summary, flags.jsonOut)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Input record set (overrides paths.input)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Enriched record set (overrides paths.output)")
	cmd.Flags().StringVar(&flags.localOutput, "local-output", "", "Record set with local paths (overrides paths.local_output)")
	cmd.Flags().StringVar(&flags.images, "images", "", "Image directory (overrides paths.images_dir)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Maximum concurrent downloads (overrides fetch.concurrency)")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "Retries per download after the first attempt (overrides fetch.max_retries)")
	cmd.Flags().BoolVar(&flags.noLocal, "no-local", false, "Skip the local-path record set")
	cmd.Flags().BoolVar(&flags.localize, "localize", false, "Also rewrite resource paths in the primary output")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

func newLocalizeCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "localize",
		Short: "Point resource paths at images already downloaded, without fetching",
		Long: "Reads the enriched record set (or the input record set when it does not exist) and\n" +
			"writes a copy whose poster_path/backdrop_path reference files found in the image\n" +
			"directory. Records without a local file keep their remote path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			effective := *cfg
			effective.Paths.Input = pickString(flags.input, defaultLocalizeInput(cfg))
			effective.Paths.Output = pickString(flags.output, cfg.Paths.LocalOutput)
			effective.Paths.ImagesDir = pickString(flags.images, cfg.Paths.ImagesDir)
			effective.Paths.LocalOutput = ""
			if effective.Paths.Output == "" {
				return errors.New("no destination: set paths.local_output or pass --output")
			}
			if samePath(effective.Paths.Output, effective.Paths.Input) {
				return errors.New("output must differ from input")
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}

			opts := batchOptions(&effective, logger)
			closeLedger := attachLedger(ctx, &opts, logger)
			defer closeLedger()

			summary, err := assets.LocalizeOnly(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printSummary(cmd, summary, true)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", effective.Paths.Output)
			fmt.Fprintf(out, "Local files: %d  Remote fallbacks: %d  Records: %d\n", summary.Succeeded, summary.Skipped, summary.Records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Record set to localize (defaults to paths.output, then paths.input)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Destination (defaults to paths.local_output)")
	cmd.Flags().StringVar(&flags.images, "images", "", "Image directory (overrides paths.images_dir)")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

func applyBatchFlags(cmd *cobra.Command, cfg config.Config, flags batchFlags) (config.Config, error) {
	cfg.Paths.Input = pickString(flags.input, cfg.Paths.Input)
	cfg.Paths.Output = pickString(flags.output, cfg.Paths.Output)
	cfg.Paths.LocalOutput = pickString(flags.localOutput, cfg.Paths.LocalOutput)
	cfg.Paths.ImagesDir = pickString(flags.images, cfg.Paths.ImagesDir)
	if flags.noLocal {
		cfg.Paths.LocalOutput = ""
	}
	if cmd.Flags().Changed("concurrency") {
		if flags.concurrency < 1 {
			return cfg, fmt.Errorf("--concurrency must be at least 1, got %d", flags.concurrency)
		}
		cfg.Fetch.Concurrency = flags.concurrency
	}
	if cmd.Flags().Changed("retries") {
		if flags.retries < 0 {
			return cfg, fmt.Errorf("--retries must not be negative, got %d", flags.retries)
		}
		cfg.Fetch.MaxRetries = flags.retries
	}
	if samePath(cfg.Paths.Output, cfg.Paths.Input) {
		return cfg, errors.New("output must differ from input")
	}
	if cfg.Paths.LocalOutput != "" && (samePath(cfg.Paths.LocalOutput, cfg.Paths.Input) || samePath(cfg.Paths.LocalOutput, cfg.Paths.Output)) {
		return cfg, errors.New("local output must differ from input and output")
	}
	return cfg, nil
}

func batchOptions(cfg *config.Config, logger *slog.Logger) assets.Options {
	return assets.Options{
		Input:       cfg.Paths.Input,
		Output:      cfg.Paths.Output,
		LocalOutput: cfg.Paths.LocalOutput,
		ImagesDir:   cfg.Paths.ImagesDir,
		LocalPrefix: cfg.Images.LocalPrefix,
		Resolver:    assets.NewResolver(cfg.Images.BaseURL, cfg.Images.PosterSize, cfg.Images.BackdropSize),
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      logger,
	}
}

// attachLedger wires the run history into opts. Failing to open it only
// disables history for this invocation.
func attachLedger(ctx *commandContext, opts *assets.Options, logger *slog.Logger) func() {
	store, err := ctx.openLedger()
	if err != nil {
		logging.WarnWithContext(logger, "ledger unavailable; batch will not be recorded", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the ledger file or set ledger.enabled = false"),
			logging.String(logging.FieldImpact, "this batch is missing from cinefetch history"),
		)
		return func() {}
	}
	if store == nil {
		return func() {}
	}
	opts.Ledger = store
	return func() { _ = store.Close() }
}

func defaultLocalizeInput(cfg *config.Config) string {
	if fileutil.Exists(cfg.Paths.Output) {
		return cfg.Paths.Output
	}
	return cfg.Paths.Input
}

// samePath reports whether a and b name the same file after cleaning and
// resolving against the working directory.
func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func pickString(flag, fallback string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return fallback
}
