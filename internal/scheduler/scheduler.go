// Package scheduler drives the maintenance jobs on their intervals while the
// daemon runs: frequent categorization sweeps, daily archiving and history
// analysis, hourly candidate recalculation, and checkpoint garbage
// collection.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/undergrove/marktend/internal/engine"
	"github.com/undergrove/marktend/internal/model"
)

// JobRunner is the engine surface the scheduler needs.
type JobRunner interface {
	Run(ctx context.Context, jobType model.JobType, onChunk func(engine.ChunkResult)) error
	ResumeRunning(ctx context.Context) error
	CleanupCheckpoints(ctx context.Context, olderThan time.Duration) (int, error)
}

// Config sets the job intervals. Zero values fall back to defaults.
type Config struct {
	CategorizeInterval  time.Duration
	ArchiveInterval     time.Duration
	HistoryInterval     time.Duration
	RecalculateInterval time.Duration
	CleanupInterval     time.Duration
	// CheckpointRetention is how long terminal checkpoints are kept for
	// inspection before cleanup deletes them.
	CheckpointRetention time.Duration
}

// DefaultConfig returns the production schedule.
func DefaultConfig() Config {
	return Config{
		CategorizeInterval:  15 * time.Minute,
		ArchiveInterval:     24 * time.Hour,
		HistoryInterval:     24 * time.Hour,
		RecalculateInterval: time.Hour,
		CleanupInterval:     24 * time.Hour,
		CheckpointRetention: 7 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CategorizeInterval <= 0 {
		c.CategorizeInterval = d.CategorizeInterval
	}
	if c.ArchiveInterval <= 0 {
		c.ArchiveInterval = d.ArchiveInterval
	}
	if c.HistoryInterval <= 0 {
		c.HistoryInterval = d.HistoryInterval
	}
	if c.RecalculateInterval <= 0 {
		c.RecalculateInterval = d.RecalculateInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.CheckpointRetention <= 0 {
		c.CheckpointRetention = d.CheckpointRetention
	}
	return c
}

// Scheduler owns the background job goroutines. Start launches them, Stop
// waits for them to drain. A Scheduler must not be restarted after Stop.
type Scheduler struct {
	runner JobRunner
	cfg    Config
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler over the given engine.
func New(runner JobRunner, cfg Config) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg.withDefaults(),
		stopCh: make(chan struct{}),
	}
}

// Start resumes any interrupted jobs, then launches the periodic loops.
// Resumption failures are logged, not fatal; the periodic runs retry the
// work.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.runner.ResumeRunning(ctx); err != nil {
		slog.Error("Failed to resume interrupted jobs", "error", err)
	}

	s.launchJob(ctx, model.JobCategorize, s.cfg.CategorizeInterval)
	s.launchJob(ctx, model.JobArchive, s.cfg.ArchiveInterval)
	s.launchJob(ctx, model.JobHistoryAnalysis, s.cfg.HistoryInterval)
	s.launchJob(ctx, model.JobRecalculate, s.cfg.RecalculateInterval)
	s.launchCleanup(ctx)

	slog.Info("Scheduler started",
		"categorize_every", s.cfg.CategorizeInterval,
		"archive_every", s.cfg.ArchiveInterval,
		"history_every", s.cfg.HistoryInterval,
		"recalculate_every", s.cfg.RecalculateInterval)
}

// Stop signals all loops and blocks until they exit. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) launchJob(ctx context.Context, jobType model.JobType, interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.runner.Run(ctx, jobType, nil); err != nil {
					slog.Error("Scheduled job failed", "job", jobType, "error", err)
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) launchCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.runner.CleanupCheckpoints(ctx, s.cfg.CheckpointRetention); err != nil {
					slog.Error("Checkpoint cleanup failed", "error", err)
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}
