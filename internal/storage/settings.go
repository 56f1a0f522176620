package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/undergrove/marktend/internal/model"
)

// GetSettings returns the single settings record. The second return value is
// false when no record exists; settings-dependent jobs treat that as
// "feature disabled" and no-op.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (model.Settings, bool, error) {
	if err := validateContext(ctx); err != nil {
		return model.Settings{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT excluded_domains, archive_threshold_days, auto_archive,
		       auto_bookmark_enabled, weekly_visit_threshold,
		       monthly_visit_threshold, quarterly_visit_threshold,
		       last_history_analysis
		FROM settings WHERE id = 1
	`)

	var settings model.Settings
	var excludedJSON sql.NullString
	var lastAnalysis sql.NullTime

	err := row.Scan(
		&excludedJSON,
		&settings.ArchiveThresholdDays,
		&settings.AutoArchive,
		&settings.AutoBookmarkEnabled,
		&settings.WeeklyVisitThreshold,
		&settings.MonthlyVisitThreshold,
		&settings.QuarterlyVisitThreshold,
		&lastAnalysis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Settings{}, false, nil
	}
	if err != nil {
		return model.Settings{}, false, fmt.Errorf("failed to read settings: %w", err)
	}

	if excludedJSON.Valid && excludedJSON.String != "" {
		if err := json.Unmarshal([]byte(excludedJSON.String), &settings.ExcludedDomains); err != nil {
			// A malformed domain list disables exclusion rather than
			// erroring the caller out of its job.
			settings.ExcludedDomains = nil
		}
	}
	if lastAnalysis.Valid {
		t := lastAnalysis.Time
		settings.LastHistoryAnalysis = &t
	}
	return settings, true, nil
}

// SaveSettings writes the single settings record, creating it if absent.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var excludedJSON string
	if len(settings.ExcludedDomains) > 0 {
		data, err := json.Marshal(settings.ExcludedDomains)
		if err != nil {
			return fmt.Errorf("failed to encode excluded domains: %w", err)
		}
		excludedJSON = string(data)
	}

	var lastAnalysis any
	if settings.LastHistoryAnalysis != nil {
		lastAnalysis = settings.LastHistoryAnalysis.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (
			id, excluded_domains, archive_threshold_days, auto_archive,
			auto_bookmark_enabled, weekly_visit_threshold,
			monthly_visit_threshold, quarterly_visit_threshold,
			last_history_analysis
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			excluded_domains = excluded.excluded_domains,
			archive_threshold_days = excluded.archive_threshold_days,
			auto_archive = excluded.auto_archive,
			auto_bookmark_enabled = excluded.auto_bookmark_enabled,
			weekly_visit_threshold = excluded.weekly_visit_threshold,
			monthly_visit_threshold = excluded.monthly_visit_threshold,
			quarterly_visit_threshold = excluded.quarterly_visit_threshold,
			last_history_analysis = excluded.last_history_analysis
	`,
		excludedJSON,
		settings.ArchiveThresholdDays,
		settings.AutoArchive,
		settings.AutoBookmarkEnabled,
		settings.WeeklyVisitThreshold,
		settings.MonthlyVisitThreshold,
		settings.QuarterlyVisitThreshold,
		lastAnalysis,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SetLastHistoryAnalysis records when history analysis last completed. No-op
// when no settings record exists.
func (s *SQLiteStorage) SetLastHistoryAnalysis(ctx context.Context, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET last_history_analysis = ? WHERE id = 1
	`, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record history analysis time: %w", err)
	}
	return nil
}
