package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trawl/internal/store"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a trending sync job",
	}
	syncCmd.AddCommand(newSyncKindCommand(ctx, "shows", store.JobTrendingShows))
	syncCmd.AddCommand(newSyncKindCommand(ctx, "movies", store.JobTrendingMovies))
	return syncCmd
}

func newSyncKindCommand(ctx *commandContext, use string, kind store.JobKind) *cobra.Command {
	var enqueueOnly bool

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Fetch trending %s and process the queue", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			job, err := deps.Coordinator.Run(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("enqueue trending %s: %w", use, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d: fetched %d candidates, queued %d tasks\n", job.ID, job.TrendingFetched, job.TasksQueued)
			if enqueueOnly {
				return nil
			}

			for {
				stats, err := deps.Processor.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("process tasks: %w", err)
				}
				if stats.Claimed == 0 && stats.Skipped == 0 {
					break
				}
				fmt.Fprintf(out, "Processed %d tasks: %d succeeded, %d failed\n", stats.Claimed, stats.Succeeded, stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&enqueueOnly, "enqueue-only", false, "Create the job and queue tasks without processing them")
	return cmd
}
