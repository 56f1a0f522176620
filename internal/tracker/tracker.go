// Package tracker maintains the population of not-yet-bookmarked URLs being
// watched for promotion, and promotes them into bookmarks when visit
// thresholds are crossed.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/classify"
	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/service"
)

// candidateStaleAfter is how long an unseen tracking candidate survives
// before recalculation deletes it.
const candidateStaleAfter = 90 * 24 * time.Hour

// Tracker watches browsing activity and manages candidate URLs.
type Tracker struct {
	storage    service.Storage
	classifier *classify.Classifier
	rules      service.RuleEvaluator
	notifier   service.Notifier
	clock      func() time.Time
}

// New creates a candidate tracker.
func New(storage service.Storage, classifier *classify.Classifier, rules service.RuleEvaluator, notifier service.Notifier) *Tracker {
	return &Tracker{
		storage:    storage,
		classifier: classifier,
		rules:      rules,
		notifier:   notifier,
		clock:      time.Now,
	}
}

// Track handles one browsing-visit event. URLs already bookmarked get a
// visit recorded instead; excluded URLs mark any existing candidate
// excluded; everything else creates or advances a tracking candidate and is
// immediately checked against the promotion thresholds.
func (t *Tracker) Track(ctx context.Context, url, title string) error {
	settings, found, err := t.storage.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !found || !settings.AutoBookmarkEnabled {
		// Auto-bookmarking is off (or unconfigured): nothing to watch.
		return nil
	}

	now := t.clock().UTC()
	canonicalURL := canonical.Canonicalize(url)
	hash := canonical.ContentHash(url)

	if existing, err := t.storage.GetBookmarkByContentHash(ctx, hash); err == nil {
		if visitErr := t.storage.RecordBookmarkVisit(ctx, existing.ID, now); visitErr != nil {
			return fmt.Errorf("failed to record bookmark visit: %w", visitErr)
		}
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up bookmark: %w", err)
	}

	if t.Excluded(settings, url, title) {
		if existing, err := t.storage.GetTrackingCandidate(ctx, canonicalURL); err == nil {
			if stErr := t.storage.UpdateCandidateStatus(ctx, existing.ID, model.CandidateExcluded); stErr != nil {
				return fmt.Errorf("failed to exclude candidate: %w", stErr)
			}
		}
		return nil
	}

	candidate, err := t.storage.GetTrackingCandidate(ctx, canonicalURL)
	switch {
	case errors.Is(err, common.ErrNotFound):
		candidate = &model.CandidateURL{
			URL:             url,
			CanonicalURL:    canonicalURL,
			Title:           title,
			Domain:          canonical.Domain(url),
			Status:          model.CandidateTracking,
			VisitCount:      1,
			WeeklyVisits:    1,
			MonthlyVisits:   1,
			QuarterlyVisits: 1,
			FirstSeen:       now,
			LastSeen:        now,
		}
	case err != nil:
		return fmt.Errorf("failed to look up candidate: %w", err)
	default:
		candidate.VisitCount++
		candidate.WeeklyVisits++
		candidate.MonthlyVisits++
		candidate.QuarterlyVisits++
		candidate.LastSeen = now
		if title != "" {
			candidate.Title = title
		}
	}

	if err := t.storage.SaveCandidate(ctx, candidate); err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}

	if candidate.MeetsThreshold(settings.WeeklyVisitThreshold, settings.MonthlyVisitThreshold, settings.QuarterlyVisitThreshold) {
		if _, err := t.Promote(ctx, candidate); err != nil {
			// Promotion failure leaves the candidate tracking; the next
			// qualifying visit retries it.
			slog.Warn("Candidate promotion failed, will retry on next visit",
				"url", candidate.URL, "error", err)
		}
	}

	return nil
}

// Promote turns a candidate into a bookmark. It is idempotent: when a
// bookmark with the same canonical URL already exists the candidate is
// marked promoted and the existing bookmark's ID is returned. On creation
// failure the candidate stays in tracking state and an empty ID is returned
// with the error.
func (t *Tracker) Promote(ctx context.Context, candidate *model.CandidateURL) (string, error) {
	hash := canonical.ContentHash(candidate.CanonicalURL)

	existing, err := t.storage.GetBookmarkByContentHash(ctx, hash)
	if err == nil {
		if stErr := t.storage.UpdateCandidateStatus(ctx, candidate.ID, model.CandidatePromoted); stErr != nil {
			return "", fmt.Errorf("failed to mark candidate promoted: %w", stErr)
		}
		candidate.Status = model.CandidatePromoted
		return existing.ID, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("failed to look up bookmark: %w", err)
	}

	lastSeen := candidate.LastSeen
	bookmark := &model.Bookmark{
		URL:          candidate.URL,
		CanonicalURL: candidate.CanonicalURL,
		ContentHash:  hash,
		Title:        candidate.Title,
		VisitCount:   candidate.VisitCount,
		LastVisited:  &lastSeen,
		CreatedAt:    t.clock().UTC(),
	}

	match := t.classifier.Classify(*bookmark)
	if match.Accepted() {
		bookmark.Category = match.Category
	}

	if err := t.storage.CreateBookmark(ctx, bookmark); err != nil {
		return "", fmt.Errorf("failed to create bookmark for candidate %s: %w", candidate.ID, err)
	}

	if bookmark.Category != "" {
		if err := t.storage.IncrementCategoryCount(ctx, bookmark.Category); err != nil {
			slog.Warn("Failed to bump category counter", "category", bookmark.Category, "error", err)
		}
	}

	if err := t.storage.UpdateCandidateStatus(ctx, candidate.ID, model.CandidatePromoted); err != nil {
		// The bookmark exists, so a retried promotion resolves
		// idempotently; log and carry on.
		slog.Warn("Failed to mark candidate promoted", "candidate", candidate.ID, "error", err)
	}
	candidate.Status = model.CandidatePromoted

	t.notifier.Notify(ctx, "Bookmark created",
		fmt.Sprintf("%s was bookmarked after repeated visits", displayTitle(bookmark)))

	slog.Info("Promoted candidate to bookmark",
		"url", bookmark.URL,
		"category", bookmark.Category,
		"visits", candidate.VisitCount)

	return bookmark.ID, nil
}

// Dismiss marks a candidate as rejected by the user. Terminal.
func (t *Tracker) Dismiss(ctx context.Context, candidateID, reason string) error {
	if err := t.storage.UpdateCandidateStatus(ctx, candidateID, model.CandidateDismissed); err != nil {
		return fmt.Errorf("failed to dismiss candidate: %w", err)
	}
	if reason != "" {
		slog.Debug("Candidate dismissed", "candidate", candidateID, "reason", reason)
	}
	return nil
}

// Excluded reports whether a URL should not be tracked: its domain is on the
// settings exclusion list, or the preference rules exclude it without an
// include rule overriding.
func (t *Tracker) Excluded(settings model.Settings, url, title string) bool {
	if settings.DomainExcluded(canonical.Domain(url)) {
		return true
	}
	return t.rules.ShouldExclude(url, title) && !t.rules.ShouldInclude(url, title)
}

// StaleCutoff returns the lastSeen cutoff before which tracking candidates
// are deleted.
func (t *Tracker) StaleCutoff() time.Time {
	return t.clock().UTC().Add(-candidateStaleAfter)
}

func displayTitle(b *model.Bookmark) string {
	if b.Title != "" {
		return b.Title
	}
	return b.URL
}
