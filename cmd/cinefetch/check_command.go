package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinefetch/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify paths and image host reachability before a batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipNetwork: offline})

			out := cmd.OutOrStdout()
			if isTerminal(out) {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "OK", "Detail"}, rows, nil))
			} else {
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(out, "%-24s %-4s %s\n", r.Name, status, r.Detail)
				}
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the image host probe")
	return cmd
}
