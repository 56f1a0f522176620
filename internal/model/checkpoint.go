package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobType identifies one of the background maintenance jobs.
type JobType string

// Known job types.
const (
	JobCategorize      JobType = "categorize"
	JobArchive         JobType = "archive"
	JobHistoryAnalysis JobType = "history-analysis"
	JobRecalculate     JobType = "candidate-recalculation"
)

// AllJobTypes lists every job type the engine knows how to resume.
func AllJobTypes() []JobType {
	return []JobType{JobCategorize, JobArchive, JobHistoryAnalysis, JobRecalculate}
}

// Valid reports whether t names a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobCategorize, JobArchive, JobHistoryAnalysis, JobRecalculate:
		return true
	}
	return false
}

// CheckpointStatus is the lifecycle state of a processing checkpoint.
type CheckpointStatus string

// Checkpoint status constants.
const (
	CheckpointRunning   CheckpointStatus = "running"
	CheckpointCompleted CheckpointStatus = "completed"
	CheckpointFailed    CheckpointStatus = "failed"
)

// Terminal reports whether the status is an end state eligible for cleanup.
func (s CheckpointStatus) Terminal() bool {
	return s == CheckpointCompleted || s == CheckpointFailed
}

// ProcessingCheckpoint is the durable resumption record for one job
// instance. TotalItems is fixed when the job starts; ProcessedCount only
// increases. At most one checkpoint per job type may be running at a time.
type ProcessingCheckpoint struct {
	StartedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	JobType        JobType
	Status         CheckpointStatus
	Error          string
	Snapshot       []byte // job-specific resume payload, JSON-encoded per job type
	TotalItems     int
	ProcessedCount int
	Position       int // resume index into the job's work set or snapshot
}

// HistorySnapshot is the history-analysis job's checkpoint payload: the
// immutable aggregation computed once at job start, walked chunk by chunk.
// History is immutable for the analysis window, so snapshotting once beats
// re-querying per chunk.
type HistorySnapshot struct {
	Entries []HistoryAggregate `json:"entries"`
}

// ArchiveProgress is the archiving job's checkpoint payload: counts of items
// attempted but not archived this run, used as query offsets so the job
// never re-examines them.
type ArchiveProgress struct {
	SkippedInactive int `json:"skippedInactive"`
	SkippedGroups   int `json:"skippedGroups"`
}

// HistoryAggregate holds per-canonical-URL visit statistics derived from the
// last quarter of browsing history.
type HistoryAggregate struct {
	LastVisit       time.Time `json:"lastVisit"`
	URL             string    `json:"url"`
	CanonicalURL    string    `json:"canonicalUrl"`
	Title           string    `json:"title"`
	TotalVisits     int       `json:"totalVisits"`
	WeeklyVisits    int       `json:"weeklyVisits"`
	MonthlyVisits   int       `json:"monthlyVisits"`
	QuarterlyVisits int       `json:"quarterlyVisits"`
}

// EncodePayload stores a job-specific resume payload into the checkpoint.
// Each job type owns one payload variant (HistorySnapshot for history
// analysis, ArchiveProgress for archiving).
func (c *ProcessingCheckpoint) EncodePayload(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint payload: %w", err)
	}
	c.Snapshot = data
	return nil
}

// DecodePayload restores the job-specific resume payload.
func (c *ProcessingCheckpoint) DecodePayload(payload any) error {
	if len(c.Snapshot) == 0 {
		return fmt.Errorf("checkpoint %s has no payload", c.ID)
	}
	if err := json.Unmarshal(c.Snapshot, payload); err != nil {
		return fmt.Errorf("failed to decode checkpoint payload: %w", err)
	}
	return nil
}
