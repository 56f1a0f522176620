package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExport(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0600))
	return path
}

func TestSearchFiltersByTimeAndQuery(t *testing.T) {
	export := `{"url":"https://go.dev/doc","title":"Go Docs","lastVisitTime":"2026-08-20T10:00:00Z","visitCount":4}
{"url":"https://example.com/old","title":"Old Page","lastVisitTime":"2026-01-01T10:00:00Z","visitCount":9}
{"url":"https://news.example.com","title":"News","lastVisitTime":"2026-08-25T10:00:00Z","visitCount":2}
`
	source := NewFileSource(writeExport(t, export))
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	pages, err := source.Search(context.Background(), "", start, 0)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	pages, err = source.Search(context.Background(), "go docs", start, 0)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "https://go.dev/doc", pages[0].URL)
	assert.Equal(t, 4, pages[0].VisitCount)
}

func TestSearchSkipsMalformedLines(t *testing.T) {
	export := `not json at all
{"url":"https://good.example.com","title":"Good","lastVisitTime":"2026-08-20T10:00:00Z","visitCount":1}

{"url":"","title":"no url","lastVisitTime":"2026-08-20T10:00:00Z","visitCount":1}
`
	source := NewFileSource(writeExport(t, export))

	pages, err := source.Search(context.Background(), "", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "https://good.example.com", pages[0].URL)
}

func TestSearchHonorsMaxResults(t *testing.T) {
	export := `{"url":"https://a.example.com","lastVisitTime":"2026-08-20T10:00:00Z","visitCount":1}
{"url":"https://b.example.com","lastVisitTime":"2026-08-21T10:00:00Z","visitCount":1}
{"url":"https://c.example.com","lastVisitTime":"2026-08-22T10:00:00Z","visitCount":1}
`
	source := NewFileSource(writeExport(t, export))

	pages, err := source.Search(context.Background(), "", time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestSearchMissingFile(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "nope.jsonl"))

	_, err := source.Search(context.Background(), "", time.Time{}, 0)
	assert.Error(t, err)
}
