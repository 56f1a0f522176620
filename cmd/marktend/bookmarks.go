package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/classify"
	"github.com/undergrove/marktend/internal/cli"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/service"
)

func bookmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Manage bookmarks",
	}

	cmd.AddCommand(bookmarksAddCmd())
	cmd.AddCommand(bookmarksListCmd())
	cmd.AddCommand(bookmarksPinCmd())
	cmd.AddCommand(bookmarksArchiveCmd())

	return cmd
}

func bookmarksAddCmd() *cobra.Command {
	var title string
	var category string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a bookmark",
		Long: `Add a bookmark. Without an explicit category the bookmark is classified
immediately; a low-confidence result leaves it uncategorized for review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			bookmark := &model.Bookmark{
				URL:          url,
				CanonicalURL: canonical.Canonicalize(url),
				ContentHash:  canonical.ContentHash(url),
				Title:        title,
				Category:     category,
				Tags:         tags,
			}

			if bookmark.Category == "" {
				match := classify.NewDefault().Classify(*bookmark)
				if match.Accepted() {
					bookmark.Category = match.Category
				}
			}

			if err := store.CreateBookmark(ctx, bookmark); err != nil {
				return fmt.Errorf("failed to create bookmark: %w", err)
			}
			if bookmark.Categorized() {
				if err := store.IncrementCategoryCount(ctx, bookmark.Category); err != nil {
					return fmt.Errorf("failed to bump category counter: %w", err)
				}
			}

			label := bookmark.Category
			if label == "" {
				label = model.CategoryUncategorized
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s (%s)",
				cli.InfoStyle.Render(bookmark.URL), label)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Bookmark title")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category (skips classification)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags (repeatable)")

	return cmd
}

func bookmarksListCmd() *cobra.Command {
	var category string
	var archived bool
	var pinned bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.BookmarkFilter{Limit: limit}
			if category != "" {
				filter.Category = &category
			}
			if cmd.Flags().Changed("archived") {
				filter.Archived = &archived
			}
			if cmd.Flags().Changed("pinned") {
				filter.Pinned = &pinned
			}

			bookmarks, err := store.ListBookmarks(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list bookmarks: %w", err)
			}
			if len(bookmarks) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No bookmarks found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("URL"),
				cli.HeaderStyle.Render("CATEGORY"),
				cli.HeaderStyle.Render("VISITS"),
				cli.HeaderStyle.Render("LAST VISITED"),
				cli.HeaderStyle.Render("FLAGS"),
			}, "\t"))

			for i := range bookmarks {
				b := &bookmarks[i]
				flags := ""
				if b.Pinned {
					flags += "pinned "
				}
				if b.Archived {
					flags += "archived"
				}
				lastVisited := cli.SubtleStyle.Render("never")
				if b.LastVisited != nil {
					lastVisited = cli.FormatRelativeTime(*b.LastVisited)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					b.ID, b.URL, b.Category, b.VisitCount, lastVisited,
					cli.SubtleStyle.Render(strings.TrimSpace(flags)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category")
	cmd.Flags().BoolVar(&archived, "archived", false, "Filter by archived state")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "Filter by pinned state")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows (0 for all)")

	return cmd
}

func bookmarksPinCmd() *cobra.Command {
	var unpin bool

	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin a bookmark so it is never archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetBookmarkPinned(ctx, args[0], !unpin); err != nil {
				return fmt.Errorf("failed to update bookmark: %w", err)
			}
			verb := "Pinned"
			if unpin {
				verb = "Unpinned"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s %s", verb, args[0])))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unpin, "unpin", false, "Remove the pin instead")
	return cmd
}

func bookmarksArchiveCmd() *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a bookmark by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetBookmarkArchived(ctx, args[0], !restore); err != nil {
				return fmt.Errorf("failed to update bookmark: %w", err)
			}
			verb := "Archived"
			if restore {
				verb = "Restored"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s %s", verb, args[0])))
			return nil
		},
	}

	cmd.Flags().BoolVar(&restore, "restore", false, "Unarchive instead")
	return cmd
}
