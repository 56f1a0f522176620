package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undergrove/marktend/internal/model"
)

func TestGetSettingsAbsent(t *testing.T) {
	store := newTestStorage(t)

	_, found, err := store.GetSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveAndGetSettings(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	settings := model.DefaultSettings()
	settings.ExcludedDomains = []string{"internal.corp.example", "localhost"}
	settings.ArchiveThresholdDays = 60
	require.NoError(t, store.SaveSettings(ctx, settings))

	got, found, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 60, got.ArchiveThresholdDays)
	assert.Equal(t, []string{"internal.corp.example", "localhost"}, got.ExcludedDomains)
	assert.True(t, got.AutoArchive)
	assert.True(t, got.AutoBookmarkEnabled)
	assert.Equal(t, 2, got.WeeklyVisitThreshold)
	assert.Equal(t, 3, got.MonthlyVisitThreshold)
	assert.Equal(t, 5, got.QuarterlyVisitThreshold)
	assert.Nil(t, got.LastHistoryAnalysis)
}

func TestSaveSettingsIsSingleRecord(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first := model.DefaultSettings()
	require.NoError(t, store.SaveSettings(ctx, first))

	second := model.DefaultSettings()
	second.AutoArchive = false
	require.NoError(t, store.SaveSettings(ctx, second))

	got, found, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.AutoArchive)
}

func TestSetLastHistoryAnalysis(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSettings(ctx, model.DefaultSettings()))

	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetLastHistoryAnalysis(ctx, at))

	got, found, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, got.LastHistoryAnalysis)
	assert.True(t, got.LastHistoryAnalysis.Equal(at))
}

func TestDomainExcluded(t *testing.T) {
	settings := model.Settings{ExcludedDomains: []string{"Example.com", "internal.corp"}}

	assert.True(t, settings.DomainExcluded("example.com"))
	assert.True(t, settings.DomainExcluded("sub.example.com"))
	assert.True(t, settings.DomainExcluded("internal.corp"))
	assert.False(t, settings.DomainExcluded("example.org"))
	assert.False(t, settings.DomainExcluded("notexample.com"))
}
