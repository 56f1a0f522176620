package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Bookmarks and candidate URLs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS bookmarks (
					id TEXT PRIMARY KEY,
					url TEXT NOT NULL,
					canonical_url TEXT NOT NULL,
					content_hash TEXT NOT NULL,
					title TEXT,
					category TEXT,
					tags TEXT,
					description TEXT,
					favicon_url TEXT,
					visit_count INTEGER DEFAULT 0,
					pinned BOOLEAN DEFAULT 0,
					archived BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					last_visited DATETIME
				)`,
				`CREATE INDEX idx_bookmarks_content_hash ON bookmarks(content_hash)`,
				`CREATE INDEX idx_bookmarks_category ON bookmarks(category)`,
				`CREATE INDEX idx_bookmarks_last_visited ON bookmarks(last_visited)`,

				`CREATE TABLE IF NOT EXISTS candidate_urls (
					id TEXT PRIMARY KEY,
					url TEXT NOT NULL,
					canonical_url TEXT NOT NULL,
					title TEXT,
					domain TEXT,
					status TEXT NOT NULL DEFAULT 'tracking',
					visit_count INTEGER DEFAULT 0,
					weekly_visits INTEGER DEFAULT 0,
					monthly_visits INTEGER DEFAULT 0,
					quarterly_visits INTEGER DEFAULT 0,
					first_seen DATETIME NOT NULL,
					last_seen DATETIME NOT NULL
				)`,
				// At most one tracking candidate per canonical URL.
				`CREATE UNIQUE INDEX idx_candidates_tracking_canonical
					ON candidate_urls(canonical_url) WHERE status = 'tracking'`,
				`CREATE INDEX idx_candidates_status ON candidate_urls(status)`,
				`CREATE INDEX idx_candidates_last_seen ON candidate_urls(last_seen)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Processing checkpoints for resumable jobs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS checkpoints (
					id TEXT PRIMARY KEY,
					job_type TEXT NOT NULL,
					status TEXT NOT NULL,
					total_items INTEGER DEFAULT 0,
					processed_count INTEGER DEFAULT 0,
					position INTEGER DEFAULT 0,
					snapshot BLOB,
					error TEXT,
					started_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_checkpoints_type_status ON checkpoints(job_type, status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Settings record and per-category bookmark counters",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS settings (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					excluded_domains TEXT,
					archive_threshold_days INTEGER NOT NULL DEFAULT 90,
					auto_archive BOOLEAN NOT NULL DEFAULT 1,
					auto_bookmark_enabled BOOLEAN NOT NULL DEFAULT 1,
					weekly_visit_threshold INTEGER NOT NULL DEFAULT 2,
					monthly_visit_threshold INTEGER NOT NULL DEFAULT 3,
					quarterly_visit_threshold INTEGER NOT NULL DEFAULT 5,
					last_history_analysis DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS category_counts (
					category TEXT PRIMARY KEY,
					bookmark_count INTEGER NOT NULL DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	final, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected %d", final, ExpectedSchemaVersion)
	}

	return nil
}
