package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undergrove/marktend/internal/engine"
	"github.com/undergrove/marktend/internal/model"
)

// recordingRunner counts invocations per job type.
type recordingRunner struct {
	mu       sync.Mutex
	resumed  int
	cleanups int
	runs     map[model.JobType]int
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{runs: make(map[model.JobType]int)}
}

func (r *recordingRunner) Run(_ context.Context, jobType model.JobType, _ func(engine.ChunkResult)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[jobType]++
	return nil
}

func (r *recordingRunner) ResumeRunning(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed++
	return nil
}

func (r *recordingRunner) CleanupCheckpoints(context.Context, time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups++
	return 0, nil
}

func (r *recordingRunner) snapshot() (int, int, map[model.JobType]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make(map[model.JobType]int, len(r.runs))
	for k, v := range r.runs {
		runs[k] = v
	}
	return r.resumed, r.cleanups, runs
}

func TestSchedulerResumesThenTicks(t *testing.T) {
	runner := newRecordingRunner()
	cfg := Config{
		CategorizeInterval:  5 * time.Millisecond,
		ArchiveInterval:     5 * time.Millisecond,
		HistoryInterval:     5 * time.Millisecond,
		RecalculateInterval: 5 * time.Millisecond,
		CleanupInterval:     5 * time.Millisecond,
		CheckpointRetention: time.Hour,
	}

	s := New(runner, cfg)
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	resumed, cleanups, runs := runner.snapshot()
	assert.Equal(t, 1, resumed)
	assert.Positive(t, cleanups)
	for _, jobType := range model.AllJobTypes() {
		assert.Positive(t, runs[jobType], "job %s never ran", jobType)
	}
}

func TestSchedulerStopsBeforeFirstTick(t *testing.T) {
	runner := newRecordingRunner()
	s := New(runner, Config{}) // default intervals, far beyond test lifetime

	s.Start(context.Background())
	s.Stop()

	resumed, cleanups, runs := runner.snapshot()
	assert.Equal(t, 1, resumed)
	assert.Zero(t, cleanups)
	assert.Empty(t, runs)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	runner := newRecordingRunner()
	ctx, cancel := context.WithCancel(context.Background())

	s := New(runner, Config{
		CategorizeInterval:  5 * time.Millisecond,
		ArchiveInterval:     time.Hour,
		HistoryInterval:     time.Hour,
		RecalculateInterval: time.Hour,
		CleanupInterval:     time.Hour,
	})
	s.Start(ctx)
	cancel()

	// Loops exit on context cancellation; Stop just reaps them.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "scheduler goroutines did not exit on context cancel")
	}
}
