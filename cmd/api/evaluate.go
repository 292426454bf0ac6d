package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	var date string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one portfolio evaluation outside the nightly schedule",
		Long: `Evaluate every active, delinquent and defaulted loan as of a date.
Loans already evaluated for that date are left unchanged, so the command is
safe to re-run after a partial failure.

Examples:
  api evaluate
  api evaluate --date 2026-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := util.Today()
			if date != "" {
				d, err := util.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				asOf = d
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			eng := newEngine(cfg, pool, nil)
			summary, err := eng.worker.RunOnce(ctx, asOf)
			if err != nil {
				return err
			}
			if summary.Errors > 0 {
				log.Warn().Int("errors", summary.Errors).Msg("Some loans failed to evaluate")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "evaluation date as YYYY-MM-DD, defaults to today in Kampala")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "upper bound for the run")
	return cmd
}
