package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/service"
)

const bookmarkColumns = `id, url, canonical_url, content_hash, title, category, tags,
	description, favicon_url, visit_count, pinned, archived, created_at, last_visited`

// CreateBookmark inserts a new bookmark. When the ID is empty a new one is
// generated and written back to the bookmark.
func (s *SQLiteStorage) CreateBookmark(ctx context.Context, bookmark *model.Bookmark) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBookmark(bookmark); err != nil {
		return err
	}

	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := encodeTags(bookmark.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		bookmark.ID,
		bookmark.URL,
		bookmark.CanonicalURL,
		bookmark.ContentHash,
		bookmark.Title,
		bookmark.Category,
		tagsJSON,
		bookmark.Description,
		bookmark.FaviconURL,
		bookmark.VisitCount,
		bookmark.Pinned,
		bookmark.Archived,
		bookmark.CreatedAt,
		bookmark.LastVisited,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: bookmark %s", common.ErrDuplicateEntry, bookmark.ID)
		}
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

// GetBookmark retrieves a bookmark by ID.
func (s *SQLiteStorage) GetBookmark(ctx context.Context, id string) (*model.Bookmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?
	`, id)
	return scanBookmarkRow(row)
}

// GetBookmarkByContentHash retrieves the first bookmark whose canonical-URL
// content hash matches. Used for idempotent candidate promotion.
func (s *SQLiteStorage) GetBookmarkByContentHash(ctx context.Context, hash string) (*model.Bookmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks WHERE content_hash = ? LIMIT 1
	`, hash)
	return scanBookmarkRow(row)
}

// ListBookmarks returns bookmarks matching the filter.
func (s *SQLiteStorage) ListBookmarks(ctx context.Context, filter service.BookmarkFilter) ([]model.Bookmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE 1=1`
	args := make([]any, 0, 5)

	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	if filter.Archived != nil {
		query += ` AND archived = ?`
		args = append(args, *filter.Archived)
	}
	if filter.Pinned != nil {
		query += ` AND pinned = ?`
		args = append(args, *filter.Pinned)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBookmarks(rows)
}

// UpdateBookmarkCategory commits a category on a bookmark. The confidence is
// accepted for logging symmetry with the classifier but not persisted; the
// acceptance threshold is the caller's responsibility.
func (s *SQLiteStorage) UpdateBookmarkCategory(ctx context.Context, id, category string, _ float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE bookmarks SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return fmt.Errorf("failed to update bookmark category: %w", err)
	}
	return requireRowAffected(result, id)
}

// SetBookmarkArchived sets or clears the archived flag.
func (s *SQLiteStorage) SetBookmarkArchived(ctx context.Context, id string, archived bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE bookmarks SET archived = ? WHERE id = ?`, archived, id)
	if err != nil {
		return fmt.Errorf("failed to set archived flag: %w", err)
	}
	return requireRowAffected(result, id)
}

// SetBookmarkPinned sets or clears the pinned flag.
func (s *SQLiteStorage) SetBookmarkPinned(ctx context.Context, id string, pinned bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE bookmarks SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to set pinned flag: %w", err)
	}
	return requireRowAffected(result, id)
}

// RecordBookmarkVisit increments the visit count and advances lastVisited.
func (s *SQLiteStorage) RecordBookmarkVisit(ctx context.Context, id string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks
		SET visit_count = visit_count + 1,
		    last_visited = ?
		WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return requireRowAffected(result, id)
}

// DeleteBookmark removes a bookmark. Only called in response to an external
// delete event; the engine itself never deletes bookmarks.
func (s *SQLiteStorage) DeleteBookmark(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return requireRowAffected(result, id)
}

// GetUncategorizedBookmarks returns up to limit bookmarks with no committed
// category, in insertion order. This is the categorization job's work set,
// re-queried each chunk; offset skips over items already examined but left
// uncategorized, so a low-confidence bookmark cannot pin the job in place.
func (s *SQLiteStorage) GetUncategorizedBookmarks(ctx context.Context, limit, offset int) ([]model.Bookmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE category IS NULL OR category = '' OR category = ?
		ORDER BY created_at, rowid`
	args := []any{model.CategoryUncategorized}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uncategorized bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBookmarks(rows)
}

// GetArchiveEligibleBookmarks returns up to limit non-pinned, non-archived
// bookmarks whose last activity predates the cutoff. Bookmarks never visited
// fall back to their creation time. Offset skips items the archiving job
// already attempted and could not archive this run.
func (s *SQLiteStorage) GetArchiveEligibleBookmarks(ctx context.Context, lastVisitedBefore time.Time, limit, offset int) ([]model.Bookmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE pinned = 0 AND archived = 0
		  AND COALESCE(last_visited, created_at) < ?
		ORDER BY COALESCE(last_visited, created_at), rowid`
	args := []any{lastVisitedBefore.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive-eligible bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBookmarks(rows)
}

// GetDuplicateGroups returns all groups of non-archived bookmarks sharing a
// content hash. Member order within a group is whatever the query returns;
// the archiving job's lastVisited comparison decides the keeper, and exact
// ties resolve to the first row.
func (s *SQLiteStorage) GetDuplicateGroups(ctx context.Context) ([]model.DuplicateGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks
		WHERE archived = 0
		  AND content_hash IN (
			SELECT content_hash FROM bookmarks
			WHERE archived = 0
			GROUP BY content_hash
			HAVING COUNT(*) > 1
		  )
		ORDER BY content_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bookmarks, err := scanBookmarks(rows)
	if err != nil {
		return nil, err
	}

	var groups []model.DuplicateGroup
	for _, b := range bookmarks {
		if len(groups) == 0 || groups[len(groups)-1].ContentHash != b.ContentHash {
			groups = append(groups, model.DuplicateGroup{ContentHash: b.ContentHash})
		}
		g := &groups[len(groups)-1]
		g.Bookmarks = append(g.Bookmarks, b)
	}
	return groups, nil
}

// IncrementCategoryCount bumps the bookmark counter for a category.
func (s *SQLiteStorage) IncrementCategoryCount(ctx context.Context, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_counts (category, bookmark_count) VALUES (?, 1)
		ON CONFLICT(category) DO UPDATE SET bookmark_count = bookmark_count + 1
	`, category)
	if err != nil {
		return fmt.Errorf("failed to increment category count: %w", err)
	}
	return nil
}

// GetCategoryCounts returns the per-category bookmark counters.
func (s *SQLiteStorage) GetCategoryCounts(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, bookmark_count FROM category_counts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(scanner rowScanner) (*model.Bookmark, error) {
	var b model.Bookmark
	var title, category, tagsJSON, description, favicon sql.NullString
	var lastVisited sql.NullTime

	err := scanner.Scan(
		&b.ID,
		&b.URL,
		&b.CanonicalURL,
		&b.ContentHash,
		&title,
		&category,
		&tagsJSON,
		&description,
		&favicon,
		&b.VisitCount,
		&b.Pinned,
		&b.Archived,
		&b.CreatedAt,
		&lastVisited,
	)
	if err != nil {
		return nil, err
	}

	b.Title = title.String
	b.Category = category.String
	b.Description = description.String
	b.FaviconURL = favicon.String
	if lastVisited.Valid {
		t := lastVisited.Time
		b.LastVisited = &t
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &b.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for bookmark %s: %w", b.ID, err)
		}
	}
	return &b, nil
}

func scanBookmarkRow(row *sql.Row) (*model.Bookmark, error) {
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bookmark", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookmark: %w", err)
	}
	return b, nil
}

func scanBookmarks(rows *sql.Rows) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks, rows.Err()
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}
	return nil
}
