package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Airing calendar maintenance",
	}

	calendarCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Fetch the upcoming airing window for tracked shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			stats, err := deps.Calendar.Sync(cmd.Context())
			if err != nil {
				return fmt.Errorf("calendar sync: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d airings: %d inserted, %d updated\n",
				stats.Processed, stats.Inserted, stats.Updated)
			return nil
		},
	})

	calendarCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove airings for shows that are no longer tracked",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			deleted, err := deps.Calendar.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("calendar prune: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d stale airings\n", deleted)
			return nil
		},
	})

	return calendarCmd
}
