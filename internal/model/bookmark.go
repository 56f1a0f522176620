// Package model defines the core domain models used throughout the application.
package model

import "time"

// CategoryUncategorized is the category assigned when no rule matches a
// bookmark, and the marker the categorization job looks for when selecting
// its work set.
const CategoryUncategorized = "uncategorized"

// Bookmark represents a saved URL and the maintenance metadata the engine
// tracks for it. The ID is owned by the store and stable for the bookmark's
// lifetime.
type Bookmark struct {
	CreatedAt    time.Time
	LastVisited  *time.Time
	ID           string
	URL          string
	CanonicalURL string
	Title        string
	Category     string
	ContentHash  string // hash of the canonical URL, used for duplicate detection
	Description  string
	FaviconURL   string
	Tags         []string
	VisitCount   int
	Pinned       bool // exempt from archiving
	Archived     bool
}

// Categorized reports whether the bookmark carries a committed category.
func (b *Bookmark) Categorized() bool {
	return b.Category != "" && b.Category != CategoryUncategorized
}

// DuplicateGroup is a set of bookmarks sharing one canonical-URL content
// hash. Keeper is the most-recently-visited member; the rest are archive
// candidates.
type DuplicateGroup struct {
	ContentHash string
	Bookmarks   []Bookmark
}

// Keeper returns the bookmark in the group with the greatest lastVisited
// timestamp. When two members share a timestamp (or none have one), the
// first row returned by the store wins; that ordering is not guaranteed.
func (g *DuplicateGroup) Keeper() *Bookmark {
	if len(g.Bookmarks) == 0 {
		return nil
	}
	keeper := &g.Bookmarks[0]
	for i := 1; i < len(g.Bookmarks); i++ {
		b := &g.Bookmarks[i]
		if b.LastVisited != nil && (keeper.LastVisited == nil || b.LastVisited.After(*keeper.LastVisited)) {
			keeper = b
		}
	}
	return keeper
}
