package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/cli"
	"github.com/undergrove/marktend/internal/model"
)

func checkpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect job checkpoints",
		Long: `Inspect the durable progress records the maintenance jobs leave behind.
A running checkpoint marks a job that will resume; completed and failed ones
are history.`,
	}

	cmd.AddCommand(checkpointsListCmd())
	cmd.AddCommand(checkpointsClearCmd())

	return cmd
}

func checkpointsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			checkpoints, err := store.ListCheckpoints(ctx)
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}
			if len(checkpoints) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No checkpoints found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.HeaderStyle.Render("JOB"),
				cli.HeaderStyle.Render("STATUS"),
				cli.HeaderStyle.Render("PROGRESS"),
				cli.HeaderStyle.Render("STARTED"),
				cli.HeaderStyle.Render("ERROR"),
			}, "\t"))

			for i := range checkpoints {
				cp := &checkpoints[i]
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
					cp.JobType,
					styleStatus(cp.Status),
					cp.ProcessedCount, cp.TotalItems,
					cli.FormatRelativeTime(cp.StartedAt),
					cli.SubtleStyle.Render(cp.Error))
			}
			return w.Flush()
		},
	}
}

func checkpointsClearCmd() *cobra.Command {
	var olderThan time.Duration
	var job string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete old terminal checkpoints",
		Long: `Delete completed and failed checkpoints. Running checkpoints are never
deleted; --job marks a job's running checkpoint completed instead, so a stuck
job will not resume.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if job != "" {
				jobType := model.JobType(job)
				if !jobType.Valid() {
					return fmt.Errorf("unknown job type %q", job)
				}
				if err := store.CompleteCheckpoints(ctx, jobType); err != nil {
					return fmt.Errorf("failed to clear running checkpoint: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Marked running %s checkpoint(s) completed", jobType)))
				return nil
			}

			deleted, err := store.CleanupStaleCheckpoints(ctx, time.Now().UTC().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("failed to clear checkpoints: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %d checkpoint(s)", deleted)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete checkpoints older than this (e.g. 168h)")
	cmd.Flags().StringVar(&job, "job", "", "Mark this job's running checkpoint completed instead of deleting history")
	return cmd
}

func styleStatus(status model.CheckpointStatus) string {
	switch status {
	case model.CheckpointRunning:
		return cli.InfoStyle.Render(string(status))
	case model.CheckpointCompleted:
		return cli.SuccessStyle.Render(string(status))
	case model.CheckpointFailed:
		return cli.ErrorStyle.Render(string(status))
	default:
		return string(status)
	}
}
