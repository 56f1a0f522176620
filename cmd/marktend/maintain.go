package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/engine"
	"github.com/undergrove/marktend/internal/model"
)

func maintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run a maintenance job to completion",
		Long: `Run one of the background maintenance jobs in the foreground. An
interrupted job leaves a checkpoint behind and picks up where it stopped on
the next invocation.`,
		Example: `  # Categorize the uncategorized backlog
  marktend maintain categorize

  # Archive stale and duplicated bookmarks
  marktend maintain archive

  # Mine the browsing-history export for frequently visited pages
  marktend maintain analyze

  # Refresh candidate visit windows and promote qualifiers
  marktend maintain recalculate`,
	}

	cmd.AddCommand(maintainJobCmd("categorize", "Categorize uncategorized bookmarks", model.JobCategorize))
	cmd.AddCommand(maintainJobCmd("archive", "Archive inactive and duplicate bookmarks", model.JobArchive))
	cmd.AddCommand(maintainJobCmd("analyze", "Analyze browsing history for bookmark candidates", model.JobHistoryAnalysis))
	cmd.AddCommand(maintainJobCmd("recalculate", "Recalculate candidate visit windows", model.JobRecalculate))

	return cmd
}

func maintainJobCmd(use, short string, jobType model.JobType) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := initEngine(store)

			var bar *progressbar.ProgressBar
			err = eng.Run(ctx, jobType, func(result engine.ChunkResult) {
				if bar == nil && result.TotalItems > 0 {
					bar = newJobBar(result.TotalItems, short)
				}
				if bar != nil {
					_ = bar.Set(result.ProcessedTotal)
				}
			})
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
			}
			if err != nil {
				return fmt.Errorf("%s job failed: %w", jobType, err)
			}
			return nil
		},
	}
}

func newJobBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}
