// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/undergrove/marktend/internal/model"
)

// BookmarkFilter defines filtering options for bookmark queries.
type BookmarkFilter struct {
	Category *string
	Archived *bool
	Pinned   *bool
	Limit    int
	Offset   int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Bookmark operations
	CreateBookmark(ctx context.Context, bookmark *model.Bookmark) error
	GetBookmark(ctx context.Context, id string) (*model.Bookmark, error)
	GetBookmarkByContentHash(ctx context.Context, hash string) (*model.Bookmark, error)
	ListBookmarks(ctx context.Context, filter BookmarkFilter) ([]model.Bookmark, error)
	UpdateBookmarkCategory(ctx context.Context, id, category string, confidence float64) error
	SetBookmarkArchived(ctx context.Context, id string, archived bool) error
	SetBookmarkPinned(ctx context.Context, id string, pinned bool) error
	RecordBookmarkVisit(ctx context.Context, id string, at time.Time) error
	DeleteBookmark(ctx context.Context, id string) error
	GetUncategorizedBookmarks(ctx context.Context, limit, offset int) ([]model.Bookmark, error)
	GetArchiveEligibleBookmarks(ctx context.Context, lastVisitedBefore time.Time, limit, offset int) ([]model.Bookmark, error)
	GetDuplicateGroups(ctx context.Context) ([]model.DuplicateGroup, error)

	// Category counters
	IncrementCategoryCount(ctx context.Context, category string) error
	GetCategoryCounts(ctx context.Context) (map[string]int, error)

	// Candidate operations
	SaveCandidate(ctx context.Context, candidate *model.CandidateURL) error
	GetTrackingCandidate(ctx context.Context, canonicalURL string) (*model.CandidateURL, error)
	GetCandidate(ctx context.Context, id string) (*model.CandidateURL, error)
	ListCandidates(ctx context.Context, status model.CandidateStatus) ([]model.CandidateURL, error)
	GetTrackingCandidates(ctx context.Context, limit, offset int) ([]model.CandidateURL, error)
	UpdateCandidateStatus(ctx context.Context, id string, status model.CandidateStatus) error
	DeleteStaleCandidates(ctx context.Context, unseenBefore time.Time) (int, error)

	// Checkpoint operations
	SaveCheckpoint(ctx context.Context, checkpoint *model.ProcessingCheckpoint) error
	GetRunningCheckpoint(ctx context.Context, jobType model.JobType) (*model.ProcessingCheckpoint, error)
	CompleteCheckpoints(ctx context.Context, jobType model.JobType) error
	FailCheckpoint(ctx context.Context, jobType model.JobType, reason string) error
	CleanupStaleCheckpoints(ctx context.Context, terminalBefore time.Time) (int, error)
	ListCheckpoints(ctx context.Context) ([]model.ProcessingCheckpoint, error)

	// Settings
	GetSettings(ctx context.Context) (model.Settings, bool, error)
	SaveSettings(ctx context.Context, settings model.Settings) error
	SetLastHistoryAnalysis(ctx context.Context, at time.Time) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// VisitedPage is one entry from the browsing-history collaborator.
type VisitedPage struct {
	LastVisitTime time.Time
	URL           string
	Title         string
	VisitCount    int
}

// HistorySource is the optional browsing-history capability. A nil
// HistorySource means the capability was not granted; history analysis then
// no-ops and visit tracking falls back to explicit visit events.
type HistorySource interface {
	Search(ctx context.Context, query string, startTime time.Time, maxResults int) ([]VisitedPage, error)
}

// RuleEvaluator is the natural-language preference collaborator, consulted
// before tracking or creating bookmarks. It is a black box returning
// booleans.
type RuleEvaluator interface {
	ShouldExclude(url, title string) bool
	ShouldInclude(url, title string) bool
}

// Notifier delivers passive user-visible notifications for successful
// high-confidence actions. Failures are never surfaced through it.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
