package store

import (
	"context"
	"errors"

	"github.com/mlawson/shepard/internal/model"
)

// ErrNotFound is returned when an opinion is missing from the store
var ErrNotFound = errors.New("opinion not found")

// GraphStore provides access to the citation graph. CitedIDs ordering is
// deterministic so per-level truncation is reproducible.
type GraphStore interface {
	HasOpinion(ctx context.Context, id int64) (bool, error)
	OpinionText(ctx context.Context, id int64) (string, error)
	CitedIDs(ctx context.Context, id int64) ([]int64, error)
	Parentheticals(ctx context.Context, describedID int64) ([]model.Parenthetical, error)
}

// VerdictStore persists per-opinion quality verdicts keyed by
// (opinion, version). Get returns (nil, nil) when absent; Put upserts.
type VerdictStore interface {
	GetVerdict(ctx context.Context, opinionID int64, version int) (*model.Verdict, error)
	PutVerdict(ctx context.Context, v *model.Verdict) error
}

// TreeStore persists analysis trees keyed by (root, maxDepth). Load
// returns (nil, nil) when absent; Save upserts a full snapshot so a
// reader never observes a half-written tree.
type TreeStore interface {
	LoadTree(ctx context.Context, rootID int64, maxDepth int) (*model.AnalysisTree, error)
	SaveTree(ctx context.Context, tree *model.AnalysisTree) error
}
