package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/undergrove/marktend/internal/model"
)

// candidateStaleAfter is how long a tracking candidate survives without being
// seen before recalculation deletes it.
const candidateStaleAfter = 90 * 24 * time.Hour

// beginRecalculate deletes stale candidates up front, then measures the
// surviving tracking set.
func (e *Engine) beginRecalculate(ctx context.Context, cp *model.ProcessingCheckpoint) error {
	cutoff := e.clock().UTC().Add(-candidateStaleAfter)
	deleted, err := e.storage.DeleteStaleCandidates(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete stale candidates: %w", err)
	}
	if deleted > 0 {
		slog.Info("Deleted stale candidates", "deleted", deleted)
	}

	candidates, err := e.storage.GetTrackingCandidates(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to count tracking candidates: %w", err)
	}
	cp.TotalItems = len(candidates)
	return nil
}

// recalculateChunk re-derives rolling window counts for one chunk of
// tracking candidates and promotes any that still clear a threshold.
// Promoted candidates leave the tracking set; everything else advances the
// checkpoint position.
func (e *Engine) recalculateChunk(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) (int, bool, error) {
	candidates, err := e.storage.GetTrackingCandidates(ctx, e.cfg.ChunkSize, cp.Position)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load tracking candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, true, nil
	}

	now := e.clock().UTC()
	processed := 0
	for i := range candidates {
		candidate := candidates[i]
		processed++

		changed := decayWindows(&candidate, now)
		if changed {
			if err := e.storage.SaveCandidate(ctx, &candidate); err != nil {
				slog.Warn("Failed to save recalculated candidate", "candidate", candidate.ID, "error", err)
				cp.Position++
				continue
			}
		}

		if e.promoter != nil &&
			candidate.MeetsThreshold(settings.WeeklyVisitThreshold, settings.MonthlyVisitThreshold, settings.QuarterlyVisitThreshold) {
			if _, err := e.promoter.Promote(ctx, &candidate); err != nil {
				slog.Warn("Failed to promote candidate during recalculation",
					"candidate", candidate.ID, "error", err)
				cp.Position++
			}
			// Promotion removes the candidate from the tracking set, so the
			// position stays put and the next chunk slides into its slot.
			continue
		}
		cp.Position++
	}

	done := len(candidates) < e.cfg.ChunkSize
	return processed, done, nil
}

// decayWindows expires rolling visit windows that have lapsed since the
// candidate was last seen. The store keeps no per-visit log, so this is an
// approximation: a window whose entire span predates the last visit drops to
// zero, and narrower windows never exceed wider ones. Reports whether the
// candidate changed.
func decayWindows(c *model.CandidateURL, now time.Time) bool {
	age := now.Sub(c.LastSeen)
	before := *c

	if age > 7*24*time.Hour {
		c.WeeklyVisits = 0
	}
	if age > 30*24*time.Hour {
		c.MonthlyVisits = 0
	}
	if age > candidateStaleAfter {
		c.QuarterlyVisits = 0
	}
	if c.WeeklyVisits > c.MonthlyVisits && c.MonthlyVisits > 0 {
		c.WeeklyVisits = c.MonthlyVisits
	}
	if c.MonthlyVisits > c.QuarterlyVisits && c.QuarterlyVisits > 0 {
		c.MonthlyVisits = c.QuarterlyVisits
	}

	return before.WeeklyVisits != c.WeeklyVisits ||
		before.MonthlyVisits != c.MonthlyVisits ||
		before.QuarterlyVisits != c.QuarterlyVisits
}
