package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/undergrove/marktend/internal/scheduler"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the maintenance daemon",
		Long: `Run marktend in the foreground: interrupted jobs are resumed, then the
maintenance jobs run on their schedules until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := scheduler.DefaultConfig()
			if d := viper.GetDuration("schedule.categorize_every"); d > 0 {
				cfg.CategorizeInterval = d
			}
			if d := viper.GetDuration("schedule.archive_every"); d > 0 {
				cfg.ArchiveInterval = d
			}
			if d := viper.GetDuration("schedule.history_every"); d > 0 {
				cfg.HistoryInterval = d
			}
			if d := viper.GetDuration("schedule.recalculate_every"); d > 0 {
				cfg.RecalculateInterval = d
			}

			sched := scheduler.New(initEngine(store), cfg)
			sched.Start(ctx)

			<-ctx.Done()
			slog.Info("Shutting down")
			sched.Stop()
			return nil
		},
	}
}
