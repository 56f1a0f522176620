package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undergrove/marktend/internal/model"
)

func newCheckpoint(jobType model.JobType, startedAt time.Time) *model.ProcessingCheckpoint {
	return &model.ProcessingCheckpoint{
		ID:         uuid.NewString(),
		JobType:    jobType,
		Status:     model.CheckpointRunning,
		TotalItems: 10,
		StartedAt:  startedAt,
	}
}

func TestSaveAndGetRunningCheckpoint(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cp := newCheckpoint(model.JobCategorize, time.Now().UTC())
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	got, err := store.GetRunningCheckpoint(ctx, model.JobCategorize)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cp.ID, got.ID)
	assert.Equal(t, 10, got.TotalItems)
	assert.Equal(t, 0, got.ProcessedCount)

	// Other job types are unaffected.
	other, err := store.GetRunningCheckpoint(ctx, model.JobArchive)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestGetRunningCheckpointPrefersMostRecent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Two running checkpoints for one type should never happen; when it
	// does, the most recently started wins.
	older := newCheckpoint(model.JobArchive, now.Add(-time.Hour))
	newer := newCheckpoint(model.JobArchive, now)
	require.NoError(t, store.SaveCheckpoint(ctx, older))
	require.NoError(t, store.SaveCheckpoint(ctx, newer))

	got, err := store.GetRunningCheckpoint(ctx, model.JobArchive)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestCheckpointProgressUpdate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cp := newCheckpoint(model.JobCategorize, time.Now().UTC())
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	cp.ProcessedCount = 7
	cp.Position = 7
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	got, err := store.GetRunningCheckpoint(ctx, model.JobCategorize)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.ProcessedCount)
	assert.Equal(t, 7, got.Position)
}

func TestCompleteCheckpoints(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cp := newCheckpoint(model.JobRecalculate, time.Now().UTC())
	require.NoError(t, store.SaveCheckpoint(ctx, cp))
	require.NoError(t, store.CompleteCheckpoints(ctx, model.JobRecalculate))

	got, err := store.GetRunningCheckpoint(ctx, model.JobRecalculate)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CheckpointCompleted, all[0].Status)
}

func TestFailCheckpoint(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cp := newCheckpoint(model.JobHistoryAnalysis, time.Now().UTC())
	require.NoError(t, store.SaveCheckpoint(ctx, cp))
	require.NoError(t, store.FailCheckpoint(ctx, model.JobHistoryAnalysis, "history fetch failed"))

	got, err := store.GetRunningCheckpoint(ctx, model.JobHistoryAnalysis)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CheckpointFailed, all[0].Status)
	assert.Equal(t, "history fetch failed", all[0].Error)
}

func TestCleanupStaleCheckpoints(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := newCheckpoint(model.JobCategorize, now.AddDate(0, 0, -10))
	require.NoError(t, store.SaveCheckpoint(ctx, old))
	require.NoError(t, store.CompleteCheckpoints(ctx, model.JobCategorize))
	// Push the terminal timestamp into the past directly; SaveCheckpoint
	// always stamps now.
	_, err := store.db.ExecContext(ctx,
		`UPDATE checkpoints SET updated_at = ? WHERE id = ?`, now.AddDate(0, 0, -10), old.ID)
	require.NoError(t, err)

	running := newCheckpoint(model.JobArchive, now.AddDate(0, 0, -10))
	require.NoError(t, store.SaveCheckpoint(ctx, running))

	deleted, err := store.CleanupStaleCheckpoints(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// The running checkpoint survives regardless of age.
	got, err := store.GetRunningCheckpoint(ctx, model.JobArchive)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCheckpointSnapshotRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cp := newCheckpoint(model.JobHistoryAnalysis, time.Now().UTC())
	snap := &model.HistorySnapshot{
		Entries: []model.HistoryAggregate{
			{URL: "https://news.example.com", CanonicalURL: "https://news.example.com/", TotalVisits: 9, QuarterlyVisits: 9},
		},
	}
	require.NoError(t, cp.EncodePayload(snap))
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	got, err := store.GetRunningCheckpoint(ctx, model.JobHistoryAnalysis)
	require.NoError(t, err)
	require.NotNil(t, got)

	var decoded model.HistorySnapshot
	require.NoError(t, got.DecodePayload(&decoded))
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, 9, decoded.Entries[0].QuarterlyVisits)
}

func TestSaveCheckpointRejectsUnknownJobType(t *testing.T) {
	store := newTestStorage(t)

	cp := newCheckpoint(model.JobType("bogus"), time.Now().UTC())
	err := store.SaveCheckpoint(context.Background(), cp)
	assert.ErrorIs(t, err, ErrInvalidJobType)
}
