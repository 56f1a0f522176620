package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/undergrove/marktend/internal/model"
)

// beginArchive measures both phases of the archive job: inactive bookmarks
// past the threshold, then redundant members of duplicate groups.
func (e *Engine) beginArchive(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) error {
	cutoff := e.archiveCutoff(settings)
	inactive, err := e.storage.GetArchiveEligibleBookmarks(ctx, cutoff, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to count inactive bookmarks: %w", err)
	}
	groups, err := e.storage.GetDuplicateGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to count duplicate groups: %w", err)
	}

	total := len(inactive)
	for _, g := range groups {
		keeper := g.Keeper()
		for i := range g.Bookmarks {
			member := &g.Bookmarks[i]
			if member.Pinned || (keeper != nil && member.ID == keeper.ID) {
				continue
			}
			total++
		}
	}
	cp.TotalItems = total
	return cp.EncodePayload(&model.ArchiveProgress{})
}

// archiveChunk archives one chunk of bookmarks: inactive ones first, then
// duplicate-group members. Both phases share the chunk budget. Items that
// fail to archive bump the payload's skip counters so later chunks query past
// them rather than retrying forever; a fresh job run retries everything.
func (e *Engine) archiveChunk(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) (int, bool, error) {
	var progress model.ArchiveProgress
	if len(cp.Snapshot) > 0 {
		if err := cp.DecodePayload(&progress); err != nil {
			return 0, false, err
		}
	}

	cutoff := e.archiveCutoff(settings)
	budget := e.cfg.ChunkSize
	processed := 0

	inactive, err := e.storage.GetArchiveEligibleBookmarks(ctx, cutoff, budget, progress.SkippedInactive)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load inactive bookmarks: %w", err)
	}
	for i := range inactive {
		bookmark := inactive[i]
		processed++
		budget--
		if err := e.storage.SetBookmarkArchived(ctx, bookmark.ID, true); err != nil {
			slog.Warn("Failed to archive inactive bookmark", "bookmark", bookmark.ID, "error", err)
			progress.SkippedInactive++
			continue
		}
		slog.Debug("Archived inactive bookmark", "bookmark", bookmark.ID, "url", bookmark.URL)
	}

	// Only move on to duplicates once the inactive phase stopped filling its
	// budget; otherwise the next chunk continues it.
	inactiveDrained := len(inactive) < e.cfg.ChunkSize

	groupsDrained := false
	if inactiveDrained && budget > 0 {
		groups, err := e.storage.GetDuplicateGroups(ctx)
		if err != nil {
			return 0, false, fmt.Errorf("failed to load duplicate groups: %w", err)
		}

		idx := progress.SkippedGroups
		for idx < len(groups) && budget > 0 {
			group := groups[idx]
			keeper := group.Keeper()

			groupFailed := false
			for i := range group.Bookmarks {
				if budget <= 0 {
					break
				}
				member := &group.Bookmarks[i]
				// Pinned members are exempt from archiving even when
				// redundant; they cost no budget and stay out of the total.
				if member.Pinned {
					continue
				}
				if keeper != nil && member.ID == keeper.ID {
					continue
				}
				processed++
				budget--
				if err := e.storage.SetBookmarkArchived(ctx, member.ID, true); err != nil {
					slog.Warn("Failed to archive duplicate bookmark",
						"bookmark", member.ID, "keeper", keeper.ID, "error", err)
					groupFailed = true
				}
			}
			if budget <= 0 {
				// Ran out mid-phase; whatever remains of this group still
				// shows up as a duplicate group next chunk.
				break
			}
			if groupFailed {
				progress.SkippedGroups++
			}
			idx++
		}
		groupsDrained = idx >= len(groups)
	}

	if err := cp.EncodePayload(&progress); err != nil {
		return 0, false, err
	}
	return processed, inactiveDrained && groupsDrained, nil
}

func (e *Engine) archiveCutoff(settings model.Settings) time.Time {
	days := settings.ArchiveThresholdDays
	if days <= 0 {
		days = model.DefaultSettings().ArchiveThresholdDays
	}
	return e.clock().UTC().AddDate(0, 0, -days)
}
