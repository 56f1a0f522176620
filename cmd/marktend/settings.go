package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/cli"
	"github.com/undergrove/marktend/internal/model"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage engine settings",
		Long: `Show or change the stored engine settings. Until settings are
initialized, auto-archiving and auto-bookmarking stay off.`,
	}

	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsInitCmd())
	cmd.AddCommand(settingsSetCmd())

	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			settings, found, err := store.GetSettings(ctx)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			if !found {
				fmt.Println(cli.FormatWarning("Settings not initialized; background features are disabled."))
				fmt.Println(cli.SubtleStyle.Render("Run 'marktend settings init' to enable them."))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Settings"))
			fmt.Printf("  auto-archive:          %v\n", settings.AutoArchive)
			fmt.Printf("  archive after:         %d days\n", settings.ArchiveThresholdDays)
			fmt.Printf("  auto-bookmark:         %v\n", settings.AutoBookmarkEnabled)
			fmt.Printf("  visit thresholds:      %d/week, %d/month, %d/quarter\n",
				settings.WeeklyVisitThreshold, settings.MonthlyVisitThreshold, settings.QuarterlyVisitThreshold)
			fmt.Printf("  excluded domains:      %s\n", formatList(settings.ExcludedDomains))
			if settings.LastHistoryAnalysis != nil {
				fmt.Printf("  last history analysis: %s\n", cli.FormatRelativeTime(*settings.LastHistoryAnalysis))
			} else {
				fmt.Printf("  last history analysis: %s\n", cli.SubtleStyle.Render("never"))
			}
			return nil
		},
	}
}

func settingsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize settings with defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, found, err := store.GetSettings(ctx); err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			} else if found {
				fmt.Println(cli.FormatWarning("Settings already initialized; leaving them untouched."))
				return nil
			}

			if err := store.SaveSettings(ctx, model.DefaultSettings()); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Println(cli.FormatSuccess("Settings initialized with defaults"))
			return nil
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		autoArchive   bool
		archiveDays   int
		autoBookmark  bool
		weekly        int
		monthly       int
		quarterly     int
		excludeDomain []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		Long: `Change stored settings. Only flags you pass are changed; everything else
keeps its current value.`,
		Example: `  marktend settings set --archive-days 120
  marktend settings set --auto-bookmark=false
  marktend settings set --exclude-domain bank.example.com --exclude-domain mail.example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			settings, found, err := store.GetSettings(ctx)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			if !found {
				settings = model.DefaultSettings()
			}

			if cmd.Flags().Changed("auto-archive") {
				settings.AutoArchive = autoArchive
			}
			if cmd.Flags().Changed("archive-days") {
				settings.ArchiveThresholdDays = archiveDays
			}
			if cmd.Flags().Changed("auto-bookmark") {
				settings.AutoBookmarkEnabled = autoBookmark
			}
			if cmd.Flags().Changed("weekly-visits") {
				settings.WeeklyVisitThreshold = weekly
			}
			if cmd.Flags().Changed("monthly-visits") {
				settings.MonthlyVisitThreshold = monthly
			}
			if cmd.Flags().Changed("quarterly-visits") {
				settings.QuarterlyVisitThreshold = quarterly
			}
			if cmd.Flags().Changed("exclude-domain") {
				settings.ExcludedDomains = excludeDomain
			}

			if err := store.SaveSettings(ctx, settings); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Println(cli.FormatSuccess("Settings updated"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoArchive, "auto-archive", true, "Archive inactive bookmarks automatically")
	cmd.Flags().IntVar(&archiveDays, "archive-days", 90, "Days of inactivity before archiving")
	cmd.Flags().BoolVar(&autoBookmark, "auto-bookmark", true, "Bookmark frequently visited pages automatically")
	cmd.Flags().IntVar(&weekly, "weekly-visits", 2, "Weekly visit threshold for promotion")
	cmd.Flags().IntVar(&monthly, "monthly-visits", 3, "Monthly visit threshold for promotion")
	cmd.Flags().IntVar(&quarterly, "quarterly-visits", 5, "Quarterly visit threshold for promotion")
	cmd.Flags().StringSliceVar(&excludeDomain, "exclude-domain", nil, "Domain to never auto-bookmark (repeatable, replaces the list)")

	return cmd
}

func formatList(items []string) string {
	if len(items) == 0 {
		return cli.SubtleStyle.Render("none")
	}
	return strings.Join(items, ", ")
}
