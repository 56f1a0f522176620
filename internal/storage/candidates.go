package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
)

const candidateColumns = `id, url, canonical_url, title, domain, status, visit_count,
	weekly_visits, monthly_visits, quarterly_visits, first_seen, last_seen`

// SaveCandidate upserts a candidate URL by ID. When the ID is empty a new one
// is generated and written back.
func (s *SQLiteStorage) SaveCandidate(ctx context.Context, candidate *model.CandidateURL) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCandidate(candidate); err != nil {
		return err
	}

	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidate_urls (`+candidateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			visit_count = excluded.visit_count,
			weekly_visits = excluded.weekly_visits,
			monthly_visits = excluded.monthly_visits,
			quarterly_visits = excluded.quarterly_visits,
			last_seen = excluded.last_seen
	`,
		candidate.ID,
		candidate.URL,
		candidate.CanonicalURL,
		candidate.Title,
		candidate.Domain,
		string(candidate.Status),
		candidate.VisitCount,
		candidate.WeeklyVisits,
		candidate.MonthlyVisits,
		candidate.QuarterlyVisits,
		candidate.FirstSeen.UTC(),
		candidate.LastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	return nil
}

// GetTrackingCandidate returns the tracking candidate for a canonical URL,
// or common.ErrNotFound. The unique partial index guarantees at most one.
func (s *SQLiteStorage) GetTrackingCandidate(ctx context.Context, canonicalURL string) (*model.CandidateURL, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(canonicalURL, "canonicalURL"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+candidateColumns+` FROM candidate_urls
		WHERE canonical_url = ? AND status = ?
	`, canonicalURL, string(model.CandidateTracking))
	return scanCandidateRow(row)
}

// GetCandidate retrieves a candidate by ID.
func (s *SQLiteStorage) GetCandidate(ctx context.Context, id string) (*model.CandidateURL, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+candidateColumns+` FROM candidate_urls WHERE id = ?
	`, id)
	return scanCandidateRow(row)
}

// ListCandidates returns all candidates with the given status, most recently
// seen first.
func (s *SQLiteStorage) ListCandidates(ctx context.Context, status model.CandidateStatus) ([]model.CandidateURL, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+candidateColumns+` FROM candidate_urls
		WHERE status = ?
		ORDER BY last_seen DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.CandidateURL
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// GetTrackingCandidates returns up to limit tracking candidates in a stable
// order for chunked recalculation. Offset skips candidates already examined
// this run that stayed in the tracking set.
func (s *SQLiteStorage) GetTrackingCandidates(ctx context.Context, limit, offset int) ([]model.CandidateURL, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + candidateColumns + ` FROM candidate_urls
		WHERE status = ?
		ORDER BY first_seen, id`
	args := []any{string(model.CandidateTracking)}
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
		return nil, fmt.Errorf("failed to query tracking candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.CandidateURL
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// UpdateCandidateStatus transitions a candidate to a new status.
func (s *SQLiteStorage) UpdateCandidateStatus(ctx context.Context, id string, status model.CandidateStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE candidate_urls SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update candidate status: %w", err)
	}
	return requireRowAffected(result, id)
}

// DeleteStaleCandidates deletes tracking candidates last seen before the
// cutoff and returns how many were removed.
func (s *SQLiteStorage) DeleteStaleCandidates(ctx context.Context, unseenBefore time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM candidate_urls
		WHERE status = ? AND last_seen < ?
	`, string(model.CandidateTracking), unseenBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale candidates: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

func scanCandidate(scanner rowScanner) (*model.CandidateURL, error) {
	var c model.CandidateURL
	var title, domain sql.NullString
	var status string

	err := scanner.Scan(
		&c.ID,
		&c.URL,
		&c.CanonicalURL,
		&title,
		&domain,
		&status,
		&c.VisitCount,
		&c.WeeklyVisits,
		&c.MonthlyVisits,
		&c.QuarterlyVisits,
		&c.FirstSeen,
		&c.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	c.Title = title.String
	c.Domain = domain.String
	c.Status = model.CandidateStatus(status)
	return &c, nil
}

func scanCandidateRow(row *sql.Row) (*model.CandidateURL, error) {
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: candidate", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}
	return c, nil
}
