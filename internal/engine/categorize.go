package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/undergrove/marktend/internal/model"
)

// beginCategorize measures the uncategorized backlog.
func (e *Engine) beginCategorize(ctx context.Context, cp *model.ProcessingCheckpoint) error {
	items, err := e.storage.GetUncategorizedBookmarks(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to count uncategorized bookmarks: %w", err)
	}
	cp.TotalItems = len(items)
	return nil
}

// categorizeChunk classifies one chunk of uncategorized bookmarks. Bookmarks
// whose best match clears the acceptance threshold get their category
// committed; the rest stay uncategorized and advance the checkpoint position
// so the next chunk examines fresh items instead of rescoring them.
func (e *Engine) categorizeChunk(ctx context.Context, cp *model.ProcessingCheckpoint) (int, bool, error) {
	items, err := e.storage.GetUncategorizedBookmarks(ctx, e.cfg.ChunkSize, cp.Position)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load uncategorized bookmarks: %w", err)
	}
	if len(items) == 0 {
		return 0, true, nil
	}

	processed := 0
	for i := range items {
		bookmark := items[i]
		processed++

		match := e.classifier.Classify(bookmark)
		if !match.Accepted() {
			// Below threshold: never overwrite, never rescore this run.
			cp.Position++
			continue
		}

		if err := e.storage.UpdateBookmarkCategory(ctx, bookmark.ID, match.Category, match.Confidence); err != nil {
			slog.Warn("Failed to categorize bookmark",
				"bookmark", bookmark.ID, "category", match.Category, "error", err)
			cp.Position++
			continue
		}
		if err := e.storage.IncrementCategoryCount(ctx, match.Category); err != nil {
			slog.Warn("Failed to bump category counter", "category", match.Category, "error", err)
		}
		slog.Debug("Categorized bookmark",
			"bookmark", bookmark.ID,
			"category", match.Category,
			"confidence", fmt.Sprintf("%.2f", match.Confidence))
	}

	done := len(items) < e.cfg.ChunkSize
	return processed, done, nil
}
