package oracle

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/store"
)

// countingGraph wraps a memory store and counts read operations
type countingGraph struct {
	*store.Memory
	reads int64
}

func (g *countingGraph) OpinionText(ctx context.Context, id int64) (string, error) {
	atomic.AddInt64(&g.reads, 1)
	return g.Memory.OpinionText(ctx, id)
}

func (g *countingGraph) Parentheticals(ctx context.Context, describedID int64) ([]model.Parenthetical, error) {
	atomic.AddInt64(&g.reads, 1)
	return g.Memory.Parentheticals(ctx, describedID)
}

func TestNodeAssessor_HitSkipsGraph(t *testing.T) {
	ctx := context.Background()
	graph := &countingGraph{Memory: store.NewMemory()}
	graph.AddOpinion(1, "the opinion text")
	graph.AddParenthetical(model.Parenthetical{
		DescribedID:  1,
		DescribingID: 9,
		Text:         "holding that the rule applies",
	})

	inner := &countingOracle{}
	a := NewNodeAssessor(graph, NewCached(inner, store.NewMemory(), nil, 1))

	if _, fromCache, err := a.Assess(ctx, 1); err != nil || fromCache {
		t.Fatalf("first assess: fromCache=%v err=%v", fromCache, err)
	}
	missReads := atomic.LoadInt64(&graph.reads)
	if missReads == 0 {
		t.Fatal("expected graph reads on a miss")
	}

	if _, fromCache, err := a.Assess(ctx, 1); err != nil || !fromCache {
		t.Fatalf("second assess: fromCache=%v err=%v", fromCache, err)
	}
	if got := atomic.LoadInt64(&graph.reads); got != missReads {
		t.Errorf("cache hit touched the graph: %d reads, want %d", got, missReads)
	}
	if got := atomic.LoadInt64(&inner.calls); got != 1 {
		t.Errorf("oracle invoked %d times, want 1", got)
	}
}
