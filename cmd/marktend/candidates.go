package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/cli"
	"github.com/undergrove/marktend/internal/model"
)

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Manage auto-bookmark candidates",
		Long: `Inspect and act on the URLs marktend is watching for promotion to
bookmarks.`,
	}

	cmd.AddCommand(candidatesListCmd())
	cmd.AddCommand(candidatesDismissCmd())
	cmd.AddCommand(candidatesPromoteCmd())

	return cmd
}

func candidatesListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidate URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidates, err := store.ListCandidates(ctx, model.CandidateStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list candidates: %w", err)
			}
			if len(candidates) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No candidates found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("URL"),
				cli.HeaderStyle.Render("WEEK"),
				cli.HeaderStyle.Render("MONTH"),
				cli.HeaderStyle.Render("QUARTER"),
				cli.HeaderStyle.Render("LAST SEEN"),
			}, "\t"))

			for i := range candidates {
				c := &candidates[i]
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					c.ID, c.URL,
					c.WeeklyVisits, c.MonthlyVisits, c.QuarterlyVisits,
					cli.FormatRelativeTime(c.LastSeen))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(model.CandidateTracking),
		"Status to list (tracking, promoted, dismissed, excluded)")

	return cmd
}

func candidatesDismissCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a candidate so it is never auto-bookmarked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := initTracker(store).Dismiss(ctx, args[0], reason); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Dismissed " + args[0]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the candidate was dismissed")
	return cmd
}

func candidatesPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <id>",
		Short: "Promote a candidate to a bookmark now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidate, err := store.GetCandidate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load candidate: %w", err)
			}

			id, err := initTracker(store).Promote(ctx, candidate)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Promoted %s to bookmark %s",
				cli.InfoStyle.Render(candidate.URL), id)))
			return nil
		},
	}
}
