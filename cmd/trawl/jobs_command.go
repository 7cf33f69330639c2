package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent sync jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			jobs, err := deps.Store.ListJobs(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Kind),
					string(job.Status),
					strconv.Itoa(job.TrendingFetched),
					strconv.Itoa(job.TasksQueued),
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Status", "Fetched", "Queued", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	jobsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")

	jobsCmd.AddCommand(newJobTasksCommand(ctx))
	return jobsCmd
}

func newJobTasksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <job-id>",
		Short: "List the tasks of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			deps, err := ctx.buildComponents()
			if err != nil {
				return err
			}
			defer deps.Close()

			tasks, err := deps.Store.TasksByJob(cmd.Context(), jobID)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks for this job")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				rows = append(rows, []string{
					strconv.FormatInt(task.ID, 10),
					strconv.FormatInt(task.ExternalID, 10),
					string(task.Status),
					strconv.Itoa(task.Attempts),
					truncate(task.LastError, 60),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "External", "Status", "Attempts", "Error"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-1] + "…"
}
