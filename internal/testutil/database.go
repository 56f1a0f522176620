// Package testutil provides shared test fixtures: a migrated temp-file
// database plus builders for the domain records most tests need.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/storage"
)

// NewStorage creates a migrated SQLite store in a per-test temp directory,
// closed automatically when the test finishes.
func NewStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// Bookmark builds a valid bookmark for url with canonical fields derived the
// way production code derives them.
func Bookmark(url string) *model.Bookmark {
	return &model.Bookmark{
		URL:          url,
		CanonicalURL: canonical.Canonicalize(url),
		ContentHash:  canonical.ContentHash(url),
		Title:        "test bookmark",
	}
}

// Candidate builds a valid tracking candidate for url, seen once at seen.
func Candidate(url string, seen time.Time) *model.CandidateURL {
	return &model.CandidateURL{
		URL:             url,
		CanonicalURL:    canonical.Canonicalize(url),
		Title:           "test candidate",
		Domain:          canonical.Domain(url),
		Status:          model.CandidateTracking,
		VisitCount:      1,
		WeeklyVisits:    1,
		MonthlyVisits:   1,
		QuarterlyVisits: 1,
		FirstSeen:       seen,
		LastSeen:        seen,
	}
}
