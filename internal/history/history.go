// Package history implements the browsing-history capability over an
// exported history file. Browsers export history as JSON lines (one visit
// record per line); pointing marktend at such an export enables history
// analysis without direct browser integration.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/undergrove/marktend/internal/service"
)

// maxLineBytes bounds a single history record; real exports stay well under
// this even with data URLs in titles.
const maxLineBytes = 1 << 20

// record is the on-disk shape of one exported history entry.
type record struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	LastVisitTime time.Time `json:"lastVisitTime"`
	VisitCount    int       `json:"visitCount"`
}

// FileSource reads browsing history from a JSON-lines export file. The file
// is re-read on every search so a freshly exported file is picked up without
// restarting.
type FileSource struct {
	path string
}

// Compile-time interface check.
var _ service.HistorySource = (*FileSource)(nil)

// NewFileSource creates a history source over the given export file. The
// file does not need to exist yet; searches against a missing file return an
// error so callers can surface the capability as unavailable.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Search returns entries visited after startTime whose URL or title contains
// the query (empty query matches everything). maxResults <= 0 means
// unlimited. Lines that fail to parse are skipped and logged, never fatal; a
// partially corrupt export still yields its good entries.
func (f *FileSource) Search(ctx context.Context, query string, startTime time.Time, maxResults int) ([]service.VisitedPage, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history export: %w", err)
	}
	defer func() { _ = file.Close() }()

	lowerQuery := strings.ToLower(query)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var pages []service.VisitedPage
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			slog.Debug("Skipping malformed history line", "line", lineNo, "error", err)
			continue
		}
		if rec.URL == "" || !rec.LastVisitTime.After(startTime) {
			continue
		}
		if lowerQuery != "" &&
			!strings.Contains(strings.ToLower(rec.URL), lowerQuery) &&
			!strings.Contains(strings.ToLower(rec.Title), lowerQuery) {
			continue
		}

		pages = append(pages, service.VisitedPage{
			URL:           rec.URL,
			Title:         rec.Title,
			LastVisitTime: rec.LastVisitTime,
			VisitCount:    rec.VisitCount,
		})
		if maxResults > 0 && len(pages) >= maxResults {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history export: %w", err)
	}
	if skipped > 0 {
		slog.Warn("Skipped malformed history lines", "path", f.path, "skipped", skipped)
	}
	return pages, nil
}
