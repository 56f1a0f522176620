package engine

import (
	"context"

	"github.com/undergrove/marktend/internal/classify"
	"github.com/undergrove/marktend/internal/model"
)

// Classifier scores a bookmark against the categorization rules.
type Classifier interface {
	Classify(bookmark model.Bookmark) classify.Match
}

// Promoter turns a qualifying candidate into a bookmark. The tracker's
// Promote satisfies this; jobs go through the interface so promotion
// semantics (idempotence, notification, counter bumps) live in one place.
type Promoter interface {
	Promote(ctx context.Context, candidate *model.CandidateURL) (string, error)
}
