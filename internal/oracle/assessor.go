package oracle

import (
	"context"
	"fmt"

	"github.com/mlawson/shepard/internal/classify"
	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/store"
)

// NodeAssessor assembles the full assessment request for one opinion
// (text plus treatment summary) and evaluates it through the cached
// oracle. It is the per-node capability the traversal engine plugs in.
type NodeAssessor struct {
	graph      store.GraphStore
	classifier *classify.Classifier
	cached     *Cached
}

// NewNodeAssessor creates a node assessor over the given graph and
// cached oracle
func NewNodeAssessor(graph store.GraphStore, cached *Cached) *NodeAssessor {
	return &NodeAssessor{
		graph:      graph,
		classifier: classify.NewClassifier(),
		cached:     cached,
	}
}

// Available reports whether the underlying oracle can serve requests
func (a *NodeAssessor) Available(ctx context.Context) bool {
	return a.cached.Available(ctx)
}

// Assess returns the quality verdict for one opinion, with a flag
// reporting whether it was served from cache. Opinion text and the
// treatment summary are assembled lazily, so a cache hit never touches
// the graph or the classifier.
func (a *NodeAssessor) Assess(ctx context.Context, opinionID int64) (*model.Verdict, bool, error) {
	return a.cached.Assess(ctx, opinionID, func(ctx context.Context) (Request, error) {
		text, err := a.graph.OpinionText(ctx, opinionID)
		if err != nil && err != store.ErrNotFound {
			return Request{}, fmt.Errorf("opinion text: %w", err)
		}

		parens, err := a.graph.Parentheticals(ctx, opinionID)
		if err != nil {
			return Request{}, fmt.Errorf("parentheticals: %w", err)
		}

		var treatment *model.TreatmentSummary
		if len(parens) > 0 {
			summary := a.classifier.AnalyzeTreatment(opinionID, parens)
			treatment = &summary
		}

		return Request{
			OpinionID: opinionID,
			Text:      text,
			Treatment: treatment,
		}, nil
	})
}
