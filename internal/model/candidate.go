package model

import "time"

// CandidateStatus tracks where a candidate URL sits in its lifecycle.
type CandidateStatus string

// Candidate status constants.
const (
	CandidateTracking  CandidateStatus = "tracking"
	CandidatePromoted  CandidateStatus = "promoted"
	CandidateDismissed CandidateStatus = "dismissed"
	CandidateExcluded  CandidateStatus = "excluded"
)

// CandidateURL is a browsing-history URL that is not yet a bookmark but is
// being watched for promotion. At most one tracking candidate exists per
// canonical URL.
type CandidateURL struct {
	FirstSeen       time.Time
	LastSeen        time.Time
	ID              string
	URL             string
	CanonicalURL    string
	Title           string
	Domain          string
	Status          CandidateStatus
	VisitCount      int
	WeeklyVisits    int
	MonthlyVisits   int
	QuarterlyVisits int
}

// MeetsThreshold reports whether any visit window has reached its configured
// threshold. The windows are ORed: a candidate need only win on one axis.
func (c *CandidateURL) MeetsThreshold(weekly, monthly, quarterly int) bool {
	return c.WeeklyVisits >= weekly ||
		c.MonthlyVisits >= monthly ||
		c.QuarterlyVisits >= quarterly
}
