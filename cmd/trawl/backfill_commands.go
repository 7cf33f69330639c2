package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trawl/internal/backfill"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Run repair sweeps over the catalog",
	}
	backfillCmd.AddCommand(newBackfillSweepCommand(ctx, "ratings",
		"Fill in critic ratings for entities with an IMDb id",
		func(ctx context.Context, sweeper *backfill.Sweeper) (*backfill.Stats, error) {
			return sweeper.Ratings(ctx)
		}))
	backfillCmd.AddCommand(newBackfillSweepCommand(ctx, "metadata",
		"Complete catalog metadata for stub entities",
		func(ctx context.Context, sweeper *backfill.Sweeper) (*backfill.Stats, error) {
			return sweeper.Metadata(ctx)
		}))
	return backfillCmd
}

func newBackfillSweepCommand(ctx *commandContext, use, short string, run func(context.Context, *backfill.Sweeper) (*backfill.Stats, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			stats, err := run(cmd.Context(), deps.Sweeper)
			if err != nil {
				return fmt.Errorf("backfill %s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d entities: %d updated, %d unchanged or failed\n",
				stats.Scanned, stats.Updated, stats.Failed)
			return nil
		},
	}
}
