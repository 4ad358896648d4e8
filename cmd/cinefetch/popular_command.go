package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cinefetch/internal/config"
	"cinefetch/internal/fileutil"
	"cinefetch/internal/logging"
	"cinefetch/internal/services"
	"cinefetch/internal/tmdb"
)

func newLister(cfg *config.Config) (tmdb.Lister, error) {
	return tmdb.New(cfg.TMDB.Token, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithTimeout(cfg.TMDBTimeout()),
		tmdb.WithUserAgent(cfg.Fetch.UserAgent),
	)
}

func newPopularCommand(ctx *commandContext) *cobra.Command {
	var output string
	var region string
	var page int
	var limit int

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Fetch the TMDB popular list and write it as the input record set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateTMDB(); err != nil {
				return services.Wrap(services.ErrConfiguration, "popular", "validate", "", err)
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "tmdb")

			opts := tmdb.PopularOptions{
				Region: pickString(region, cfg.TMDB.Region),
				Page:   cfg.TMDB.Page,
				Limit:  cfg.TMDB.Limit,
			}
			if cmd.Flags().Changed("page") {
				opts.Page = page
			}
			if cmd.Flags().Changed("limit") {
				opts.Limit = limit
			}
			if opts.Page < 1 || opts.Limit < 1 {
				return errors.New("--page and --limit must be at least 1")
			}
			target := pickString(output, cfg.Paths.Input)

			client, err := newLister(cfg)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "popular", "build client", "", err)
			}
			movies, err := client.Popular(cmd.Context(), opts)
			if err != nil {
				return services.Wrap(services.ErrSetup, "popular", "fetch list", "", err)
			}

			data, err := encodeMovies(movies)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				return services.Wrap(services.ErrWrite, "popular", "write record set", target, err)
			}
			logger.Info("popular list written",
				logging.String(logging.FieldEventType, "popular_written"),
				logging.String("path", target),
				logging.Int("records", len(movies)),
				logging.String("region", opts.Region),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", len(movies), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination (defaults to paths.input)")
	cmd.Flags().StringVar(&region, "region", "", "Region code (overrides tmdb.region)")
	cmd.Flags().IntVar(&page, "page", 1, "First page to request (overrides tmdb.page)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of records to keep (overrides tmdb.limit)")
	return cmd
}

func encodeMovies(movies []tmdb.Movie) ([]byte, error) {
	if movies == nil {
		movies = []tmdb.Movie{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(movies); err != nil {
		return nil, fmt.Errorf("encode popular list: %w", err)
	}
	return buf.Bytes(), nil
}
