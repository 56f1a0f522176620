// Package storage provides the data persistence layer for the marktend
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/undergrove/marktend/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidBookmark   = errors.New("invalid bookmark")
	ErrInvalidCandidate  = errors.New("invalid candidate")
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidStatus     = errors.New("invalid status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateJobType ensures the job type is one of the known enumeration.
func validateJobType(jobType model.JobType) error {
	if !jobType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobType, jobType)
	}
	return nil
}

// validateBookmark validates a bookmark before persistence.
func validateBookmark(b *model.Bookmark) error {
	if b == nil {
		return fmt.Errorf("%w: bookmark", ErrNilParameter)
	}
	if b.URL == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidBookmark)
	}
	if b.CanonicalURL == "" {
		return fmt.Errorf("%w: missing canonical URL", ErrInvalidBookmark)
	}
	if b.ContentHash == "" {
		return fmt.Errorf("%w: missing content hash", ErrInvalidBookmark)
	}
	if b.VisitCount < 0 {
		return fmt.Errorf("%w: negative visit count", ErrInvalidBookmark)
	}
	return nil
}

// validateCandidate validates a candidate URL before persistence.
func validateCandidate(c *model.CandidateURL) error {
	if c == nil {
		return fmt.Errorf("%w: candidate", ErrNilParameter)
	}
	if c.URL == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidCandidate)
	}
	if c.CanonicalURL == "" {
		return fmt.Errorf("%w: missing canonical URL", ErrInvalidCandidate)
	}
	switch c.Status {
	case model.CandidateTracking, model.CandidatePromoted, model.CandidateDismissed, model.CandidateExcluded:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.FirstSeen.IsZero() || c.LastSeen.IsZero() {
		return fmt.Errorf("%w: missing seen timestamps", ErrInvalidCandidate)
	}
	return nil
}

// validateCheckpoint validates a processing checkpoint before persistence.
func validateCheckpoint(cp *model.ProcessingCheckpoint) error {
	if cp == nil {
		return fmt.Errorf("%w: checkpoint", ErrNilParameter)
	}
	if cp.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCheckpoint)
	}
	if err := validateJobType(cp.JobType); err != nil {
		return err
	}
	switch cp.Status {
	case model.CheckpointRunning, model.CheckpointCompleted, model.CheckpointFailed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, cp.Status)
	}
	if cp.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidCheckpoint)
	}
	if cp.ProcessedCount < 0 || cp.TotalItems < 0 {
		return fmt.Errorf("%w: negative counters", ErrInvalidCheckpoint)
	}
	return nil
}
