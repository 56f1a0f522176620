package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/classify"
	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/model"
	"github.com/undergrove/marktend/internal/notify"
	"github.com/undergrove/marktend/internal/rules"
	"github.com/undergrove/marktend/internal/service"
	"github.com/undergrove/marktend/internal/testutil"
	"github.com/undergrove/marktend/internal/tracker"
)

func newTestEngine(t *testing.T, store service.Storage, history service.HistorySource, cfg Config) *Engine {
	t.Helper()

	classifier := classify.NewDefault()
	evaluator := rules.NewAllowAll()
	promoter := tracker.New(store, classifier, evaluator, notify.New())
	return New(store, classifier, evaluator, history, promoter, cfg)
}

func saveDefaultSettings(t *testing.T, store service.Storage) {
	t.Helper()
	require.NoError(t, store.SaveSettings(context.Background(), model.DefaultSettings()))
}

func addBookmark(t *testing.T, store service.Storage, url, category string) *model.Bookmark {
	t.Helper()

	b := testutil.Bookmark(url)
	b.Category = category
	require.NoError(t, store.CreateBookmark(context.Background(), b))
	return b
}

// fakeHistory is an in-memory HistorySource.
type fakeHistory struct {
	pages []service.VisitedPage
	err   error
}

func (f *fakeHistory) Search(_ context.Context, _ string, startTime time.Time, _ int) ([]service.VisitedPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []service.VisitedPage
	for _, p := range f.pages {
		if p.LastVisitTime.After(startTime) {
			out = append(out, p)
		}
	}
	return out, nil
}

// panicClassifier blows up on first use, for failure-path tests.
type panicClassifier struct{}

func (panicClassifier) Classify(model.Bookmark) classify.Match {
	panic("classifier exploded")
}

func TestCategorizeJobCategorizesKnownDomains(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)

	dev := addBookmark(t, store, "https://github.com/golang/go", "")
	shop := addBookmark(t, store, "https://www.amazon.com/dp/B000", "")
	unknown := addBookmark(t, store, "https://example.org/misc", "")

	eng := newTestEngine(t, store, nil, Config{})
	require.NoError(t, eng.Run(ctx, model.JobCategorize, nil))

	got, err := store.GetBookmark(ctx, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, "development", got.Category)

	got, err = store.GetBookmark(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "shopping", got.Category)

	// No rule matched: stays uncategorized, never guessed.
	got, err = store.GetBookmark(ctx, unknown.ID)
	require.NoError(t, err)
	assert.False(t, got.Categorized())

	counts, err := store.GetCategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["development"])
	assert.Equal(t, 1, counts["shopping"])
}

func TestCategorizeJobResumesAcrossEngines(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)

	for i := 0; i < 5; i++ {
		addBookmark(t, store, "https://github.com/org/repo"+string(rune('a'+i)), "")
	}

	cfg := Config{ChunkSize: 2, YieldInterval: time.Millisecond}
	eng := newTestEngine(t, store, nil, cfg)

	// First chunk only.
	result, err := eng.RunChunk(ctx, model.JobCategorize)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 5, result.TotalItems)
	assert.False(t, result.Done)

	cp, err := store.GetRunningCheckpoint(ctx, model.JobCategorize)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, 2, cp.ProcessedCount)

	// A fresh engine over the same database picks the checkpoint up rather
	// than starting a second job.
	resumed := newTestEngine(t, store, nil, cfg)
	require.NoError(t, resumed.ResumeRunning(ctx))

	cp, err = store.GetRunningCheckpoint(ctx, model.JobCategorize)
	require.NoError(t, err)
	assert.Nil(t, cp)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CheckpointCompleted, all[0].Status)
	assert.Equal(t, 5, all[0].ProcessedCount)

	remaining, err := store.GetUncategorizedBookmarks(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRunChunkReusesRunningCheckpoint(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)

	for i := 0; i < 3; i++ {
		addBookmark(t, store, "https://github.com/org/repo"+string(rune('a'+i)), "")
	}

	eng := newTestEngine(t, store, nil, Config{ChunkSize: 1})
	_, err := eng.RunChunk(ctx, model.JobCategorize)
	require.NoError(t, err)
	_, err = eng.RunChunk(ctx, model.JobCategorize)
	require.NoError(t, err)

	// Two chunk invocations, still exactly one checkpoint.
	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CheckpointRunning, all[0].Status)
	assert.Equal(t, 2, all[0].ProcessedCount)
}

func TestJobFailureMarksCheckpointFailed(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	addBookmark(t, store, "https://github.com/org/repo", "")

	eng := New(store, panicClassifier{}, nil, nil, nil, Config{})
	_, err := eng.RunChunk(ctx, model.JobCategorize)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrJobFailed))

	running, err := store.GetRunningCheckpoint(ctx, model.JobCategorize)
	require.NoError(t, err)
	assert.Nil(t, running)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CheckpointFailed, all[0].Status)
	assert.Contains(t, all[0].Error, "classifier exploded")
}

func TestRunChunkRejectsUnknownJobType(t *testing.T) {
	store := testutil.NewStorage(t)
	eng := newTestEngine(t, store, nil, Config{})

	_, err := eng.RunChunk(context.Background(), model.JobType("bogus"))
	assert.ErrorIs(t, err, common.ErrUnknownJobType)
}

func TestArchiveJobDisabledWithoutSettings(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()

	// No settings record at all: archive must be a successful no-op.
	old := time.Now().UTC().AddDate(0, 0, -200)
	b := addBookmark(t, store, "https://example.com/ancient", "")
	require.NoError(t, store.RecordBookmarkVisit(ctx, b.ID, old))

	eng := newTestEngine(t, store, nil, Config{})
	result, err := eng.RunChunk(ctx, model.JobArchive)
	require.NoError(t, err)
	assert.True(t, result.Done)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	got, err := store.GetBookmark(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Archived)
}

func TestArchiveJobArchivesInactiveAndDuplicates(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	stale := addBookmark(t, store, "https://example.com/stale", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, stale.ID, now.AddDate(0, 0, -120)))

	pinned := addBookmark(t, store, "https://example.com/pinned", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, pinned.ID, now.AddDate(0, 0, -120)))
	require.NoError(t, store.SetBookmarkPinned(ctx, pinned.ID, true))

	fresh := addBookmark(t, store, "https://example.com/fresh", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, fresh.ID, now.AddDate(0, 0, -1)))

	// Two raw URLs with the same canonical form; the later-visited one is
	// the keeper.
	dupA := addBookmark(t, store, "https://example.com/article?utm_source=mail", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, dupA.ID, now.AddDate(0, 0, -2)))
	dupB := addBookmark(t, store, "https://example.com/article", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, dupB.ID, now.AddDate(0, 0, -1)))

	eng := newTestEngine(t, store, nil, Config{})
	require.NoError(t, eng.Run(ctx, model.JobArchive, nil))

	archivedIDs := map[string]bool{}
	for _, id := range []string{stale.ID, pinned.ID, fresh.ID, dupA.ID, dupB.ID} {
		got, err := store.GetBookmark(ctx, id)
		require.NoError(t, err)
		archivedIDs[id] = got.Archived
	}
	assert.True(t, archivedIDs[stale.ID])
	assert.False(t, archivedIDs[pinned.ID])
	assert.False(t, archivedIDs[fresh.ID])
	assert.True(t, archivedIDs[dupA.ID])
	assert.False(t, archivedIDs[dupB.ID])
}

func TestArchiveJobLeavesPinnedDuplicates(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	// Two bookmarks with the same canonical URL. The newer one is the keeper;
	// the older one would normally be archived, but it is pinned.
	pinned := addBookmark(t, store, "https://example.com/article?utm_source=mail", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, pinned.ID, now.AddDate(0, 0, -2)))
	require.NoError(t, store.SetBookmarkPinned(ctx, pinned.ID, true))

	keeper := addBookmark(t, store, "https://example.com/article", "news")
	require.NoError(t, store.RecordBookmarkVisit(ctx, keeper.ID, now.AddDate(0, 0, -1)))

	eng := newTestEngine(t, store, nil, Config{})
	require.NoError(t, eng.Run(ctx, model.JobArchive, nil))

	for _, id := range []string{pinned.ID, keeper.ID} {
		got, err := store.GetBookmark(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.Archived)
	}
}

func TestArchiveJobResumesAcrossChunks(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		b := addBookmark(t, store, "https://example.com/old"+string(rune('a'+i)), "news")
		require.NoError(t, store.RecordBookmarkVisit(ctx, b.ID, now.AddDate(0, 0, -120)))
	}

	cfg := Config{ChunkSize: 2, YieldInterval: time.Millisecond}
	eng := newTestEngine(t, store, nil, cfg)

	result, err := eng.RunChunk(ctx, model.JobArchive)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.False(t, result.Done)

	resumed := newTestEngine(t, store, nil, cfg)
	require.NoError(t, resumed.Run(ctx, model.JobArchive, nil))

	archivedFlag := true
	archived, err := store.ListBookmarks(ctx, service.BookmarkFilter{Archived: &archivedFlag})
	require.NoError(t, err)
	assert.Len(t, archived, 5)
}

func TestHistoryAnalysisPromotesAndTracks(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	existing := addBookmark(t, store, "https://docs.example.com/manual", "reference")

	history := &fakeHistory{pages: []service.VisitedPage{
		// Over the quarterly threshold: promoted immediately.
		{URL: "https://frequent.example.com/tool", Title: "Daily Tool", VisitCount: 6, LastVisitTime: now.AddDate(0, 0, -40)},
		// One visit: tracked, not promoted.
		{URL: "https://rare.example.com/post", Title: "Rare Post", VisitCount: 1, LastVisitTime: now.AddDate(0, 0, -40)},
		// Already bookmarked: left alone.
		{URL: "https://docs.example.com/manual", Title: "Manual", VisitCount: 9, LastVisitTime: now.AddDate(0, 0, -3)},
	}}

	eng := newTestEngine(t, store, history, Config{})
	require.NoError(t, eng.Run(ctx, model.JobHistoryAnalysis, nil))

	// The frequent URL became a bookmark and its candidate is promoted.
	promoted, err := store.GetBookmarkByContentHash(ctx, canonical.ContentHash("https://frequent.example.com/tool"))
	require.NoError(t, err)
	assert.Equal(t, "Daily Tool", promoted.Title)

	promotedCandidates, err := store.ListCandidates(ctx, model.CandidatePromoted)
	require.NoError(t, err)
	require.Len(t, promotedCandidates, 1)
	assert.Equal(t, canonical.Canonicalize("https://frequent.example.com/tool"), promotedCandidates[0].CanonicalURL)

	// The rare URL is only tracked.
	tracking, err := store.ListCandidates(ctx, model.CandidateTracking)
	require.NoError(t, err)
	require.Len(t, tracking, 1)
	assert.Equal(t, canonical.Canonicalize("https://rare.example.com/post"), tracking[0].CanonicalURL)
	assert.Equal(t, 1, tracking[0].QuarterlyVisits)

	// The bookmarked URL produced no candidate.
	_, err = store.GetTrackingCandidate(ctx, existing.CanonicalURL)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Completion stamps the analysis time.
	settings, found, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, settings.LastHistoryAnalysis)
	assert.WithinDuration(t, now, *settings.LastHistoryAnalysis, time.Minute)
}

func TestHistoryAnalysisRespectsExcludedDomains(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	settings := model.DefaultSettings()
	settings.ExcludedDomains = []string{"private.example.com"}
	require.NoError(t, store.SaveSettings(ctx, settings))

	history := &fakeHistory{pages: []service.VisitedPage{
		{URL: "https://private.example.com/secret", Title: "Secret", VisitCount: 20, LastVisitTime: now.AddDate(0, 0, -2)},
	}}

	eng := newTestEngine(t, store, history, Config{})
	require.NoError(t, eng.Run(ctx, model.JobHistoryAnalysis, nil))

	tracking, err := store.ListCandidates(ctx, model.CandidateTracking)
	require.NoError(t, err)
	assert.Empty(t, tracking)

	_, err = store.GetBookmarkByContentHash(ctx, canonical.ContentHash("https://private.example.com/secret"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHistoryAnalysisRespectsExclusionRules(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	history := &fakeHistory{pages: []service.VisitedPage{
		// Heavily visited, but matched by an exclude keyword.
		{URL: "https://example.com/newsletter/weekly", Title: "Weekly Newsletter", VisitCount: 9, LastVisitTime: now.AddDate(0, 0, -2)},
		// Same domain, no rule match: handled normally.
		{URL: "https://example.com/guides/setup", Title: "Setup Guide", VisitCount: 9, LastVisitTime: now.AddDate(0, 0, -2)},
	}}

	classifier := classify.NewDefault()
	evaluator := &rules.KeywordEvaluator{ExcludeKeywords: []string{"newsletter"}}
	promoter := tracker.New(store, classifier, evaluator, notify.New())
	eng := New(store, classifier, evaluator, history, promoter, Config{})
	require.NoError(t, eng.Run(ctx, model.JobHistoryAnalysis, nil))

	// The rule-matched URL was neither bookmarked nor tracked.
	_, err := store.GetBookmarkByContentHash(ctx, canonical.ContentHash("https://example.com/newsletter/weekly"))
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetTrackingCandidate(ctx, canonical.Canonicalize("https://example.com/newsletter/weekly"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The unmatched URL crossed the quarterly threshold and was promoted.
	_, err = store.GetBookmarkByContentHash(ctx, canonical.ContentHash("https://example.com/guides/setup"))
	require.NoError(t, err)
}

func TestHistoryAnalysisDisabledWithoutSource(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)

	eng := newTestEngine(t, store, nil, Config{})
	result, err := eng.RunChunk(ctx, model.JobHistoryAnalysis)
	require.NoError(t, err)
	assert.True(t, result.Done)

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoryAnalysisSnapshotSurvivesSourceLoss(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	pages := make([]service.VisitedPage, 0, 3)
	for _, host := range []string{"a", "b", "c"} {
		pages = append(pages, service.VisitedPage{
			URL:           "https://" + host + ".example.com/",
			VisitCount:    1,
			LastVisitTime: now.AddDate(0, 0, -5),
		})
	}

	cfg := Config{HistoryChunkSize: 1, YieldInterval: time.Millisecond}
	eng := newTestEngine(t, store, &fakeHistory{pages: pages}, cfg)
	_, err := eng.RunChunk(ctx, model.JobHistoryAnalysis)
	require.NoError(t, err)

	// The source starts failing mid-job; the snapshot already captured
	// everything, so the resumed run finishes without touching it.
	broken := newTestEngine(t, store, &fakeHistory{err: errors.New("history gone")}, cfg)
	require.NoError(t, broken.Run(ctx, model.JobHistoryAnalysis, nil))

	tracking, err := store.ListCandidates(ctx, model.CandidateTracking)
	require.NoError(t, err)
	assert.Len(t, tracking, 3)
}

func TestRecalculationPromotesAndDecays(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)
	now := time.Now().UTC()

	// Quarterly count at the threshold: promoted even though last seen over a
	// month ago.
	winner := &model.CandidateURL{
		URL:             "https://winner.example.com/",
		CanonicalURL:    canonical.Canonicalize("https://winner.example.com/"),
		Title:           "Winner",
		Domain:          "winner.example.com",
		Status:          model.CandidateTracking,
		VisitCount:      5,
		WeeklyVisits:    0,
		MonthlyVisits:   0,
		QuarterlyVisits: 5,
		FirstSeen:       now.AddDate(0, 0, -60),
		LastSeen:        now.AddDate(0, 0, -35),
	}
	require.NoError(t, store.SaveCandidate(ctx, winner))

	// Sparse visits long ago: windows decay, stays tracking.
	dormant := &model.CandidateURL{
		URL:             "https://dormant.example.com/",
		CanonicalURL:    canonical.Canonicalize("https://dormant.example.com/"),
		Title:           "Dormant",
		Domain:          "dormant.example.com",
		Status:          model.CandidateTracking,
		VisitCount:      1,
		WeeklyVisits:    1,
		MonthlyVisits:   1,
		QuarterlyVisits: 1,
		FirstSeen:       now.AddDate(0, 0, -40),
		LastSeen:        now.AddDate(0, 0, -40),
	}
	require.NoError(t, store.SaveCandidate(ctx, dormant))

	// Unseen past the retention window: deleted outright.
	stale := &model.CandidateURL{
		URL:             "https://stale.example.com/",
		CanonicalURL:    canonical.Canonicalize("https://stale.example.com/"),
		Title:           "Stale",
		Domain:          "stale.example.com",
		Status:          model.CandidateTracking,
		VisitCount:      1,
		WeeklyVisits:    1,
		MonthlyVisits:   1,
		QuarterlyVisits: 1,
		FirstSeen:       now.AddDate(0, 0, -120),
		LastSeen:        now.AddDate(0, 0, -100),
	}
	require.NoError(t, store.SaveCandidate(ctx, stale))

	eng := newTestEngine(t, store, nil, Config{})
	require.NoError(t, eng.Run(ctx, model.JobRecalculate, nil))

	_, err := store.GetBookmarkByContentHash(ctx, canonical.ContentHash(winner.CanonicalURL))
	require.NoError(t, err)

	got, err := store.GetCandidate(ctx, dormant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateTracking, got.Status)
	assert.Equal(t, 0, got.WeeklyVisits)
	assert.Equal(t, 0, got.MonthlyVisits)
	assert.Equal(t, 1, got.QuarterlyVisits)

	_, err = store.GetCandidate(ctx, stale.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCleanupCheckpointsKeepsRecentAndRunning(t *testing.T) {
	store := testutil.NewStorage(t)
	ctx := context.Background()
	saveDefaultSettings(t, store)

	// Complete a categorize run over an empty set to leave one terminal
	// checkpoint behind.
	eng := newTestEngine(t, store, nil, Config{})
	require.NoError(t, eng.Run(ctx, model.JobCategorize, nil))

	deleted, err := eng.CleanupCheckpoints(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	deleted, err = eng.CleanupCheckpoints(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
