package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/store"
)

// GraphBackend is a graph store the fetcher can also write into
type GraphBackend interface {
	store.GraphStore
	AddOpinion(ctx context.Context, id int64, caseName, plainText string) error
	AddCitations(ctx context.Context, citingID int64, citedIDs []int64) error
}

// EnsuringGraph serves graph reads from the local store and pulls
// missing opinions from the remote API on demand, so a traversal can
// walk edges the local database has never seen. Opinions the API does
// not have surface as absent, not as errors.
type EnsuringGraph struct {
	local   GraphBackend
	fetcher *Fetcher
}

// NewEnsuringGraph wraps a local graph backend with remote fetching
func NewEnsuringGraph(local GraphBackend, fetcher *Fetcher) *EnsuringGraph {
	return &EnsuringGraph{local: local, fetcher: fetcher}
}

func (g *EnsuringGraph) ensure(ctx context.Context, id int64) error {
	_, err := g.fetcher.Ensure(ctx, id, g.local)
	return err
}

func (g *EnsuringGraph) HasOpinion(ctx context.Context, id int64) (bool, error) {
	err := g.ensure(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *EnsuringGraph) OpinionText(ctx context.Context, id int64) (string, error) {
	if err := g.ensure(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("ensure opinion %d: %w", id, err)
	}
	return g.local.OpinionText(ctx, id)
}

func (g *EnsuringGraph) CitedIDs(ctx context.Context, id int64) ([]int64, error) {
	if err := g.ensure(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ensure opinion %d: %w", id, err)
	}
	return g.local.CitedIDs(ctx, id)
}

// Parentheticals are local-only: the remote opinion endpoint does not
// carry them.
func (g *EnsuringGraph) Parentheticals(ctx context.Context, describedID int64) ([]model.Parenthetical, error) {
	return g.local.Parentheticals(ctx, describedID)
}
