// Package engine runs the background maintenance jobs as chunked,
// checkpoint-resumable work: categorization, archiving, history analysis and
// candidate recalculation. Each job processes a bounded chunk per invocation
// and records durable progress, so a crash or shutdown mid-job resumes where
// it left off instead of starting over.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/service"
)

// Config tunes chunking and pacing. Zero values fall back to defaults.
type Config struct {
	// ChunkSize is the number of items processed per chunk for the
	// categorization, archiving and recalculation jobs.
	ChunkSize int
	// HistoryChunkSize is the per-chunk budget for history analysis, which
	// does more work per item.
	HistoryChunkSize int
	// YieldInterval is how long Run sleeps between chunks so a job never
	// monopolizes the process.
	YieldInterval time.Duration
}

// DefaultConfig returns the production chunk sizes and pacing.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        100,
		HistoryChunkSize: 50,
		YieldInterval:    250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.HistoryChunkSize <= 0 {
		c.HistoryChunkSize = d.HistoryChunkSize
	}
	if c.YieldInterval <= 0 {
		c.YieldInterval = d.YieldInterval
	}
	return c
}

// ChunkResult reports the outcome of one chunk invocation.
type ChunkResult struct {
	JobType        model.JobType
	Processed      int // items handled by this chunk
	ProcessedTotal int // cumulative items handled by this job instance
	TotalItems     int // work-set size measured when the job started
	Done           bool
}

// Engine coordinates the maintenance jobs over shared storage. History and
// promoter are optional capabilities: a nil HistorySource disables history
// analysis, a nil Promoter disables promotion during history analysis and
// recalculation (candidates still accumulate). A nil RuleEvaluator excludes
// nothing.
type Engine struct {
	storage    service.Storage
	classifier Classifier
	rules      service.RuleEvaluator
	history    service.HistorySource
	promoter   Promoter
	cfg        Config
	clock      func() time.Time

	// Serializes chunk execution per job type within this process. The
	// running-checkpoint row guards across processes; this guards
	// overlapping ticker fires and concurrent CLI invocations sharing one
	// engine.
	mu       sync.Mutex
	jobLocks map[model.JobType]*sync.Mutex
}

// New creates an engine. classifier must be non-nil; rules, history and
// promoter may be nil to disable the corresponding capabilities.
func New(storage service.Storage, classifier Classifier, rules service.RuleEvaluator, history service.HistorySource, promoter Promoter, cfg Config) *Engine {
	return &Engine{
		storage:    storage,
		classifier: classifier,
		rules:      rules,
		history:    history,
		promoter:   promoter,
		cfg:        cfg.withDefaults(),
		clock:      time.Now,
		jobLocks:   make(map[model.JobType]*sync.Mutex),
	}
}

func (e *Engine) lockFor(jobType model.JobType) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.jobLocks[jobType]
	if !ok {
		l = &sync.Mutex{}
		e.jobLocks[jobType] = l
	}
	return l
}

// RunChunk executes one chunk of the given job. On the first invocation it
// measures the work set, creates a running checkpoint and processes the first
// chunk; later invocations pick the checkpoint up where it stopped, including
// checkpoints left behind by a previous process. Any chunk error marks the
// checkpoint failed before returning, so a checkpoint is never left running
// after its job has died.
func (e *Engine) RunChunk(ctx context.Context, jobType model.JobType) (ChunkResult, error) {
	result := ChunkResult{JobType: jobType}
	if !jobType.Valid() {
		return result, fmt.Errorf("%w: %s", common.ErrUnknownJobType, jobType)
	}

	lock := e.lockFor(jobType)
	lock.Lock()
	defer lock.Unlock()

	settings, found, err := e.storage.GetSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load settings: %w", err)
	}

	cp, err := e.storage.GetRunningCheckpoint(ctx, jobType)
	if err != nil {
		return result, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cp == nil {
		if !e.jobEnabled(jobType, settings, found) {
			slog.Debug("Job disabled, skipping", "job", jobType)
			result.Done = true
			return result, nil
		}

		cp = &model.ProcessingCheckpoint{
			ID:        uuid.NewString(),
			JobType:   jobType,
			Status:    model.CheckpointRunning,
			StartedAt: e.clock().UTC(),
		}
		if err := e.beginJob(ctx, cp, settings); err != nil {
			return result, fmt.Errorf("failed to start %s job: %w", jobType, err)
		}
		if err := e.storage.SaveCheckpoint(ctx, cp); err != nil {
			return result, fmt.Errorf("failed to create checkpoint: %w", err)
		}
		slog.Info("Started job", "job", jobType, "total", cp.TotalItems)
	}

	processed, done, err := e.runJobChunk(ctx, cp, settings)
	if err != nil {
		reason := err.Error()
		if failErr := e.storage.FailCheckpoint(ctx, jobType, reason); failErr != nil {
			slog.Error("Failed to record job failure", "job", jobType, "error", failErr)
		}
		return result, fmt.Errorf("%w: %s: %v", common.ErrJobFailed, jobType, err)
	}

	cp.ProcessedCount += processed
	if done {
		cp.Status = model.CheckpointCompleted
	}
	if err := e.storage.SaveCheckpoint(ctx, cp); err != nil {
		return result, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	result.Processed = processed
	result.ProcessedTotal = cp.ProcessedCount
	result.TotalItems = cp.TotalItems
	result.Done = done

	if done {
		if err := e.finishJob(ctx, jobType); err != nil {
			slog.Warn("Job completion hook failed", "job", jobType, "error", err)
		}
		slog.Info("Job completed", "job", jobType, "processed", cp.ProcessedCount)
	}
	return result, nil
}

// Run drives a job to completion, yielding between chunks. onChunk, when
// non-nil, observes every chunk for progress reporting.
func (e *Engine) Run(ctx context.Context, jobType model.JobType, onChunk func(ChunkResult)) error {
	for {
		result, err := e.RunChunk(ctx, jobType)
		if err != nil {
			return err
		}
		if onChunk != nil {
			onChunk(result)
		}
		if result.Done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.YieldInterval):
		}
	}
}

// ResumeRunning finds checkpoints left running by a previous process and
// drives their jobs to completion. Called once at startup.
func (e *Engine) ResumeRunning(ctx context.Context) error {
	var errs []error
	for _, jobType := range model.AllJobTypes() {
		cp, err := e.storage.GetRunningCheckpoint(ctx, jobType)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load %s checkpoint: %w", jobType, err))
			continue
		}
		if cp == nil {
			continue
		}
		slog.Info("Resuming interrupted job",
			"job", jobType,
			"processed", cp.ProcessedCount,
			"total", cp.TotalItems)
		if err := e.Run(ctx, jobType, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanupCheckpoints deletes terminal checkpoints older than the retention
// window. Running checkpoints are never touched.
func (e *Engine) CleanupCheckpoints(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := e.clock().UTC().Add(-olderThan)
	deleted, err := e.storage.CleanupStaleCheckpoints(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up checkpoints: %w", err)
	}
	if deleted > 0 {
		slog.Debug("Cleaned up old checkpoints", "deleted", deleted)
	}
	return deleted, nil
}

// jobEnabled gates job start on settings and optional capabilities. A job
// whose feature is switched off (or whose settings were never written) is a
// successful no-op, not an error.
func (e *Engine) jobEnabled(jobType model.JobType, settings model.Settings, found bool) bool {
	switch jobType {
	case model.JobArchive:
		return found && settings.AutoArchive
	case model.JobHistoryAnalysis:
		return found && settings.AutoBookmarkEnabled && e.history != nil
	case model.JobRecalculate:
		return found && settings.AutoBookmarkEnabled
	default:
		return true
	}
}

// beginJob measures the work set and prepares the checkpoint payload before
// the first chunk runs.
func (e *Engine) beginJob(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) error {
	switch cp.JobType {
	case model.JobCategorize:
		return e.beginCategorize(ctx, cp)
	case model.JobArchive:
		return e.beginArchive(ctx, cp, settings)
	case model.JobHistoryAnalysis:
		return e.beginHistoryAnalysis(ctx, cp)
	case model.JobRecalculate:
		return e.beginRecalculate(ctx, cp)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownJobType, cp.JobType)
	}
}

// runJobChunk processes one chunk, converting panics into job failures so a
// bad item cannot leave the checkpoint running forever.
func (e *Engine) runJobChunk(ctx context.Context, cp *model.ProcessingCheckpoint, settings model.Settings) (processed int, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			processed, done = 0, false
			err = fmt.Errorf("panic in %s chunk: %v", cp.JobType, r)
		}
	}()

	switch cp.JobType {
	case model.JobCategorize:
		return e.categorizeChunk(ctx, cp)
	case model.JobArchive:
		return e.archiveChunk(ctx, cp, settings)
	case model.JobHistoryAnalysis:
		return e.historyChunk(ctx, cp, settings)
	case model.JobRecalculate:
		return e.recalculateChunk(ctx, cp, settings)
	default:
		return 0, false, fmt.Errorf("%w: %s", common.ErrUnknownJobType, cp.JobType)
	}
}

func (e *Engine) finishJob(ctx context.Context, jobType model.JobType) error {
	if jobType == model.JobHistoryAnalysis {
		return e.storage.SetLastHistoryAnalysis(ctx, e.clock().UTC())
	}
	return nil
}
