package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func visitCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "visit <url>",
		Short: "Record a page visit",
		Long: `Record one browsing visit. Visits to bookmarked pages update the
bookmark's visit stats; visits to new pages feed the auto-bookmark candidate
tracker, which promotes pages that cross a visit threshold. Browser
integrations call this on navigation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := initTracker(store).Track(ctx, args[0], title); err != nil {
				return fmt.Errorf("failed to record visit: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Page title")
	return cmd
}
