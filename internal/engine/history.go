package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/service"
)

// historyWindow is how far back history analysis looks.
const historyWindow = 90 * 24 * time.Hour

// beginHistoryAnalysis queries the full analysis window once, aggregates it
// per canonical URL and snapshots the result into the checkpoint. The
// snapshot is what later chunks (and resumed runs) walk, so a slow or
// rate-limited history source is hit exactly once per job.
func (e *Engine) beginHistoryAnalysis(ctx context.Context, cp *model.ProcessingCheckpoint) error {
	if e.history == nil {
		return common.ErrHistoryUnavailable
	}

	now := e.clock().UTC()
	start := now.Add(-historyWindow)

	// The history source may be a file mid-export or a busy browser; retry
	// briefly before declaring the capability unavailable.
	var pages []service.VisitedPage
	err := common.WithRetry(ctx, func() error {
		var searchErr error
		pages, searchErr = e.history.Search(ctx, "", start, 0)
		return searchErr
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrHistoryUnavailable, err)
	}

	snapshot := aggregateHistory(pages, now)
	cp.TotalItems = len(snapshot.Entries)
	return cp.EncodePayload(snapshot)
}

// aggregateHistory folds visited pages into per-canonical-URL statistics.
// Each page entry carries its own visit count; the count is attributed to the
// time windows containing the entry's last visit. Entries are sorted by
// canonical URL so the walk order is stable across resumes.
func aggregateHistory(pages []service.VisitedPage, now time.Time) *model.HistorySnapshot {
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	byCanonical := make(map[string]*model.HistoryAggregate)
	for _, page := range pages {
		if page.URL == "" {
			continue
		}
		visits := page.VisitCount
		if visits <= 0 {
			visits = 1
		}
		canonicalURL := canonical.Canonicalize(page.URL)

		agg, ok := byCanonical[canonicalURL]
		if !ok {
			agg = &model.HistoryAggregate{
				URL:          page.URL,
				CanonicalURL: canonicalURL,
				Title:        page.Title,
			}
			byCanonical[canonicalURL] = agg
		}

		agg.TotalVisits += visits
		agg.QuarterlyVisits += visits
		if page.LastVisitTime.After(monthAgo) {
			agg.MonthlyVisits += visits
		}
		if page.LastVisitTime.After(weekAgo) {
			agg.WeeklyVisits += visits
		}
		if page.LastVisitTime.After(agg.LastVisit) {
			agg.LastVisit = page.LastVisitTime
			if page.Title != "" {
				agg.Title = page.Title
			}
		}
	}

	entries := make([]model.HistoryAggregate, 0, len(byCanonical))
	for _, agg := range byCanonical {
		entries = append(entries, *agg)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CanonicalURL < entries[j].CanonicalURL
	})
	return &model.HistorySnapshot{Entries: entries}
}

// historyChunk walks one chunk of the snapshot. Already-bookmarked URLs are
// skipped, excluded domains mark any existing candidate excluded, URLs over a
// visit threshold are promoted straight to bookmarks, and the rest become or
// refresh tracking candidates.
func (e *Engine) historyChunk(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) (int, bool, error) {
	var snapshot model.HistorySnapshot
	if err := cp.DecodePayload(&snapshot); err != nil {
		return 0, false, err
	}
	if cp.Position >= len(snapshot.Entries) {
		return 0, true, nil
	}

	end := cp.Position + e.cfg.HistoryChunkSize
	if end > len(snapshot.Entries) {
		end = len(snapshot.Entries)
	}

	processed := 0
	for _, entry := range snapshot.Entries[cp.Position:end] {
		processed++
		cp.Position++

		if err := e.analyzeHistoryEntry(ctx, entry, settings); err != nil {
			slog.Warn("Failed to analyze history entry", "url", entry.URL, "error", err)
		}
	}

	return processed, cp.Position >= len(snapshot.Entries), nil
}

func (e *Engine) analyzeHistoryEntry(ctx context.Context, entry model.HistoryAggregate, settings model.Settings) error {
	hash := canonical.ContentHash(entry.CanonicalURL)
	if _, err := e.storage.GetBookmarkByContentHash(ctx, hash); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up bookmark: %w", err)
	}

	if e.entryExcluded(settings, entry.URL, entry.Title) {
		if existing, err := e.storage.GetTrackingCandidate(ctx, entry.CanonicalURL); err == nil {
			return e.storage.UpdateCandidateStatus(ctx, existing.ID, model.CandidateExcluded)
		}
		return nil
	}

	candidate, err := e.storage.GetTrackingCandidate(ctx, entry.CanonicalURL)
	switch {
	case errors.Is(err, common.ErrNotFound):
		candidate = &model.CandidateURL{
			URL:          entry.URL,
			CanonicalURL: entry.CanonicalURL,
			Title:        entry.Title,
			Domain:       canonical.Domain(entry.URL),
			Status:       model.CandidateTracking,
			FirstSeen:    entry.LastVisit,
		}
	case err != nil:
		return fmt.Errorf("failed to look up candidate: %w", err)
	}

	// History is authoritative for the analysis window.
	if entry.TotalVisits > candidate.VisitCount {
		candidate.VisitCount = entry.TotalVisits
	}
	candidate.WeeklyVisits = entry.WeeklyVisits
	candidate.MonthlyVisits = entry.MonthlyVisits
	candidate.QuarterlyVisits = entry.QuarterlyVisits
	if entry.LastVisit.After(candidate.LastSeen) {
		candidate.LastSeen = entry.LastVisit
	}
	if entry.Title != "" {
		candidate.Title = entry.Title
	}

	if err := e.storage.SaveCandidate(ctx, candidate); err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}

	if e.promoter != nil &&
		candidate.MeetsThreshold(settings.WeeklyVisitThreshold, settings.MonthlyVisitThreshold, settings.QuarterlyVisitThreshold) {
		if _, err := e.promoter.Promote(ctx, candidate); err != nil {
			return fmt.Errorf("failed to promote candidate: %w", err)
		}
	}
	return nil
}

// entryExcluded applies the same exclusion check the tracker applies to live
// visits: the settings domain list first, then the preference rules with an
// include rule overriding an exclude.
func (e *Engine) entryExcluded(settings model.Settings, url, title string) bool {
	if settings.DomainExcluded(canonical.Domain(url)) {
		return true
	}
	if e.rules == nil {
		return false
	}
	return e.rules.ShouldExclude(url, title) && !e.rules.ShouldInclude(url, title)
}
