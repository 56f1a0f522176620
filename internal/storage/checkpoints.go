package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/undergrove/marktend/internal/model"
)

const checkpointColumns = `id, job_type, status, total_items, processed_count,
	position, snapshot, error, started_at, updated_at`

// SaveCheckpoint upserts a processing checkpoint by ID. UpdatedAt is
// refreshed on every save.
func (s *SQLiteStorage) SaveCheckpoint(ctx context.Context, checkpoint *model.ProcessingCheckpoint) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCheckpoint(checkpoint); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (`+checkpointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_items = excluded.total_items,
			processed_count = excluded.processed_count,
			position = excluded.position,
			snapshot = excluded.snapshot,
			error = excluded.error,
			updated_at = excluded.updated_at
	`,
		checkpoint.ID,
		string(checkpoint.JobType),
		string(checkpoint.Status),
		checkpoint.TotalItems,
		checkpoint.ProcessedCount,
		checkpoint.Position,
		checkpoint.Snapshot,
		checkpoint.Error,
		checkpoint.StartedAt.UTC(),
		checkpoint.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// GetRunningCheckpoint returns the running checkpoint for a job type, or nil
// when none exists. Should multiple running checkpoints exist for one type
// (a bug, not expected), the most recently started wins.
func (s *SQLiteStorage) GetRunningCheckpoint(ctx context.Context, jobType model.JobType) (*model.ProcessingCheckpoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateJobType(jobType); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+checkpointColumns+` FROM checkpoints
		WHERE job_type = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, string(jobType), string(model.CheckpointRunning))

	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}
	return cp, nil
}

// CompleteCheckpoints transitions all running checkpoints of a job type to
// completed.
func (s *SQLiteStorage) CompleteCheckpoints(ctx context.Context, jobType model.JobType) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJobType(jobType); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE checkpoints SET status = ?, updated_at = ?
		WHERE job_type = ? AND status = ?
	`, string(model.CheckpointCompleted), time.Now().UTC(), string(jobType), string(model.CheckpointRunning))
	if err != nil {
		return fmt.Errorf("failed to complete checkpoints: %w", err)
	}
	return nil
}

// FailCheckpoint transitions the running checkpoint of a job type to failed
// and records the reason for diagnostics.
func (s *SQLiteStorage) FailCheckpoint(ctx context.Context, jobType model.JobType, reason string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJobType(jobType); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE checkpoints SET status = ?, error = ?, updated_at = ?
		WHERE job_type = ? AND status = ?
	`, string(model.CheckpointFailed), reason, time.Now().UTC(), string(jobType), string(model.CheckpointRunning))
	if err != nil {
		return fmt.Errorf("failed to fail checkpoint: %w", err)
	}
	return nil
}

// CleanupStaleCheckpoints deletes terminal checkpoints last updated before
// the cutoff and returns how many were removed.
func (s *SQLiteStorage) CleanupStaleCheckpoints(ctx context.Context, terminalBefore time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE status IN (?, ?) AND updated_at < ?
	`, string(model.CheckpointCompleted), string(model.CheckpointFailed), terminalBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up checkpoints: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

// ListCheckpoints returns all checkpoints, newest first.
func (s *SQLiteStorage) ListCheckpoints(ctx context.Context) ([]model.ProcessingCheckpoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkpointColumns+` FROM checkpoints
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checkpoints []model.ProcessingCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, *cp)
	}
	return checkpoints, rows.Err()
}

func scanCheckpoint(scanner rowScanner) (*model.ProcessingCheckpoint, error) {
	var cp model.ProcessingCheckpoint
	var jobType, status string
	var errMsg sql.NullString
	var snapshot []byte

	err := scanner.Scan(
		&cp.ID,
		&jobType,
		&status,
		&cp.TotalItems,
		&cp.ProcessedCount,
		&cp.Position,
		&snapshot,
		&errMsg,
		&cp.StartedAt,
		&cp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cp.JobType = model.JobType(jobType)
	cp.Status = model.CheckpointStatus(status)
	cp.Error = errMsg.String
	cp.Snapshot = snapshot
	return &cp, nil
}
