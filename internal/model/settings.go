package model

import (
	"strings"
	"time"
)

// Settings is the single configuration record every job reads. Jobs receive
// it by value once per invocation; nothing mutates a shared copy.
type Settings struct {
	LastHistoryAnalysis     *time.Time
	ExcludedDomains         []string
	ArchiveThresholdDays    int
	WeeklyVisitThreshold    int
	MonthlyVisitThreshold   int
	QuarterlyVisitThreshold int
	AutoArchive             bool
	AutoBookmarkEnabled     bool
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		ArchiveThresholdDays:    90,
		WeeklyVisitThreshold:    2,
		MonthlyVisitThreshold:   3,
		QuarterlyVisitThreshold: 5,
		AutoArchive:             true,
		AutoBookmarkEnabled:     true,
	}
}

// DomainExcluded reports whether host matches an excluded domain, including
// subdomains of one.
func (s *Settings) DomainExcluded(host string) bool {
	host = strings.ToLower(host)
	for _, d := range s.ExcludedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
