package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/risk"
	"github.com/mlawson/shepard/internal/store"
	"github.com/mlawson/shepard/internal/worker"
)

const (
	minDepth = 1
	maxDepth = 5
)

var (
	// ErrInvalidDepth is returned for a requested depth outside 1-5
	ErrInvalidDepth = errors.New("max depth must be between 1 and 5")

	// ErrOpinionNotFound is returned when the root opinion is unknown
	ErrOpinionNotFound = errors.New("opinion not found")

	// ErrOracleUnavailable is returned when the quality oracle cannot
	// serve requests; no partial tree is persisted in that case
	ErrOracleUnavailable = errors.New("quality oracle unavailable")

	// ErrTraversalFailed is returned when too many nodes in one level
	// fail; the persisted tree remains resumable
	ErrTraversalFailed = errors.New("traversal failed")
)

// Assessor is the per-node quality capability the engine traverses with.
// Implementations must be safe for concurrent use.
type Assessor interface {
	Available(ctx context.Context) bool
	Assess(ctx context.Context, opinionID int64) (*model.Verdict, bool, error)
}

// Analyzer walks a citation graph breadth-first from a root opinion,
// assessing every reachable node level by level and folding the results
// into a persisted analysis tree. Traversals are resumable: the tree
// record carries the last completed depth, so a deeper request or a
// restart continues where the previous run stopped.
type Analyzer struct {
	graph      store.GraphStore
	trees      store.TreeStore
	assessor   Assessor
	aggregator *risk.Aggregator
	cfg        model.EngineConfig
	verbose    bool
}

// NewAnalyzer creates an analyzer with the given stores and assessor
func NewAnalyzer(graph store.GraphStore, trees store.TreeStore, assessor Assessor, cfg model.EngineConfig) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxCitationsPerLevel <= 0 {
		cfg.MaxCitationsPerLevel = 100
	}

	return &Analyzer{
		graph:      graph,
		trees:      trees,
		assessor:   assessor,
		aggregator: risk.NewAggregator(cfg.HighRiskThreshold),
		cfg:        cfg,
	}
}

// SetVerbose enables progress logging to stderr
func (a *Analyzer) SetVerbose(v bool) {
	a.verbose = v
}

// AnalyzeTree analyzes the citation tree rooted at rootID down to depth
// levels. A completed tree for the same (root, depth) is returned
// unchanged unless forceRefresh is set; a completed shallower tree is
// extended from its last depth rather than re-traversed.
func (a *Analyzer) AnalyzeTree(ctx context.Context, rootID int64, depth int, forceRefresh bool) (*model.AnalysisTree, error) {
	if depth < minDepth || depth > maxDepth {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}

	exists, err := a.graph.HasOpinion(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("check root opinion: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: opinion %d", ErrOpinionNotFound, rootID)
	}

	if !a.assessor.Available(ctx) {
		return nil, ErrOracleUnavailable
	}

	tree, err := a.prepareTree(ctx, rootID, depth, forceRefresh)
	if err != nil {
		return nil, err
	}
	if tree.Status == model.TreeCompleted {
		a.logf("tree for opinion %d at depth %d already complete", rootID, depth)
		return tree, nil
	}

	return a.traverse(ctx, tree)
}

// prepareTree loads or builds the tree record this run works on and
// leaves it in InProgress state with CurrentDepth at the resume point.
func (a *Analyzer) prepareTree(ctx context.Context, rootID int64, depth int, forceRefresh bool) (*model.AnalysisTree, error) {
	if !forceRefresh {
		existing, err := a.trees.LoadTree(ctx, rootID, depth)
		if err != nil {
			return nil, fmt.Errorf("load tree: %w", err)
		}
		if existing != nil {
			// A completed tree for the exact same request is final,
			// even when it stopped early on an empty level.
			if existing.Status == model.TreeCompleted {
				return existing, nil
			}
			// Failed or interrupted run for the same request: resume
			// from its last completed level.
			a.logf("resuming tree for opinion %d from depth %d", rootID, existing.CurrentDepth+1)
			existing.Status = model.TreeInProgress
			existing.Error = ""
			existing.CompletedAt = nil
			return existing, nil
		}

		// A completed shallower tree extends instead of restarting.
		for d := depth - 1; d >= minDepth; d-- {
			prior, err := a.trees.LoadTree(ctx, rootID, d)
			if err != nil {
				return nil, fmt.Errorf("load tree: %w", err)
			}
			if prior == nil || !prior.Extendable(depth) {
				continue
			}
			a.logf("extending depth-%d tree for opinion %d to depth %d", prior.CurrentDepth, rootID, depth)
			return extendTree(prior, depth), nil
		}
	}

	return &model.AnalysisTree{
		RootID:           rootID,
		MaxDepth:         depth,
		Status:           model.TreeInProgress,
		CitationsByDepth: make(map[int][]model.Citation),
		StartedAt:        time.Now().UTC(),
	}, nil
}

// extendTree clones a completed shallower tree into a new record for
// the deeper request, keeping everything already analyzed.
func extendTree(prior *model.AnalysisTree, depth int) *model.AnalysisTree {
	byDepth := make(map[int][]model.Citation, len(prior.CitationsByDepth))
	for d, level := range prior.CitationsByDepth {
		byDepth[d] = append([]model.Citation(nil), level...)
	}

	tree := &model.AnalysisTree{
		RootID:           prior.RootID,
		MaxDepth:         depth,
		CurrentDepth:     prior.CurrentDepth,
		Status:           model.TreeInProgress,
		CitationsByDepth: byDepth,
		CacheHits:        prior.CacheHits,
		CacheMisses:      prior.CacheMisses,
		Truncated:        prior.Truncated,
		StartedAt:        time.Now().UTC(),
	}
	tree.RecountCategories()
	return tree
}

func (a *Analyzer) traverse(ctx context.Context, tree *model.AnalysisTree) (*model.AnalysisTree, error) {
	visited := make(map[int64]bool)
	visited[tree.RootID] = true
	for _, level := range tree.CitationsByDepth {
		for _, c := range level {
			visited[c.OpinionID] = true
		}
	}

	frontier := a.resumeFrontier(tree)

	for depth := tree.CurrentDepth + 1; depth <= tree.MaxDepth; depth++ {
		// Cancellation is honored between levels only, so the tree is
		// never left with a half-assessed level.
		if err := ctx.Err(); err != nil {
			return a.failTree(tree, fmt.Sprintf("aborted before depth %d: %v", depth, err), err)
		}

		ids, lookupFailures, truncated := a.collectFrontier(ctx, frontier, visited, depth)
		if truncated {
			tree.Truncated = true
		}
		if len(ids) == 0 && lookupFailures == 0 {
			a.logf("no citations at depth %d, stopping early", depth)
			break
		}

		a.logf("analyzing depth %d (%d opinions)", depth, len(ids))

		citations, assessFailures := a.assessLevel(ctx, ids, depth)

		failures := lookupFailures + assessFailures
		attempted := len(ids) + lookupFailures
		if attempted > 0 && float64(failures)/float64(attempted) > a.cfg.MaxFailureFraction {
			msg := fmt.Sprintf("depth %d: %d of %d nodes failed", depth, failures, attempted)
			return a.failTree(tree, msg, ErrTraversalFailed)
		}

		if len(citations) == 0 {
			break
		}

		tree.CitationsByDepth[depth] = citations
		tree.CurrentDepth = depth
		for _, c := range citations {
			if c.FromCache {
				tree.CacheHits++
			} else {
				tree.CacheMisses++
			}
		}
		tree.RecountCategories()

		// Persist after every level so a crash or abort resumes here.
		if err := a.trees.SaveTree(ctx, tree); err != nil {
			return nil, fmt.Errorf("save tree: %w", err)
		}

		frontier = make([]int64, 0, len(citations))
		for _, c := range citations {
			frontier = append(frontier, c.OpinionID)
		}
	}

	a.annotateHighRiskParents(tree)

	all := a.orderedCitations(tree)
	tree.Risk = a.aggregator.Aggregate(all)
	tree.HighRisk = a.aggregator.HighRisk(all)
	tree.Status = model.TreeCompleted
	now := time.Now().UTC()
	tree.CompletedAt = &now

	if err := a.trees.SaveTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("save tree: %w", err)
	}

	a.logf("completed tree for opinion %d: %d citations, risk %.1f (%s)",
		tree.RootID, tree.TotalCitations, tree.Risk.Score, tree.Risk.Level)
	return tree, nil
}

// resumeFrontier rebuilds the expansion frontier for the next level:
// the nodes at the last completed depth, or the root for a fresh run.
func (a *Analyzer) resumeFrontier(tree *model.AnalysisTree) []int64 {
	if tree.CurrentDepth == 0 {
		return []int64{tree.RootID}
	}

	level := tree.CitationsByDepth[tree.CurrentDepth]
	frontier := make([]int64, 0, len(level))
	for _, c := range level {
		frontier = append(frontier, c.OpinionID)
	}
	return frontier
}

// collectFrontier gathers the unvisited cited ids for one level. It
// runs serially so the visited set stays consistent and truncation is
// deterministic: the first MaxCitationsPerLevel ids in graph-store
// order win. Returns the ids, the count of frontier nodes whose
// citation lookup failed, and whether the level hit the cap.
func (a *Analyzer) collectFrontier(ctx context.Context, frontier []int64, visited map[int64]bool, depth int) ([]int64, int, bool) {
	var ids []int64
	failures := 0

	for _, id := range frontier {
		cited, err := a.graph.CitedIDs(ctx, id)
		if err != nil {
			a.logf("warning: citations for opinion %d: %v", id, err)
			failures++
			continue
		}

		for _, citedID := range cited {
			if visited[citedID] {
				continue
			}
			if len(ids) >= a.cfg.MaxCitationsPerLevel {
				a.logf("warning: depth %d hit the %d citation cap, truncating", depth, a.cfg.MaxCitationsPerLevel)
				return ids, failures, true
			}
			visited[citedID] = true
			ids = append(ids, citedID)
		}
	}

	return ids, failures, false
}

// assessLevel runs the per-node assessments for one level concurrently
// and returns the successful citations in the frontier's id order.
func (a *Analyzer) assessLevel(ctx context.Context, ids []int64, depth int) ([]model.Citation, int) {
	pool := worker.NewPool(a.cfg.Workers)
	pool.Start()

	for _, id := range ids {
		pool.Submit(&assessJob{
			assessor: a.assessor,
			parent:   ctx,
			id:       id,
			timeout:  a.cfg.NodeTimeout,
		})
	}

	order := make(map[int64]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}

	var citations []model.Citation
	failures := 0

	for _, res := range pool.Wait() {
		r := res.(*assessResult)
		if r.err != nil {
			a.logf("warning: assess opinion %d: %v", r.id, r.err)
			failures++
			continue
		}
		citations = append(citations, model.Citation{
			OpinionID:    r.id,
			Depth:        depth,
			Assessment:   r.verdict.Assessment,
			Confidence:   r.verdict.Confidence,
			RiskScore:    r.verdict.RiskScore,
			IsOverruled:  r.verdict.IsOverruled,
			IsQuestioned: r.verdict.IsQuestioned,
			IsCriticized: r.verdict.IsCriticized,
			Summary:      r.verdict.Summary,
			FromCache:    r.fromCache,
		})
	}

	sort.Slice(citations, func(i, j int) bool {
		return order[citations[i].OpinionID] < order[citations[j].OpinionID]
	})

	return citations, failures
}

// annotateHighRiskParents marks depth-1/2 citations when any citation
// at depth 3 or deeper carries a risk score at or above the re-eval
// threshold. Presentation only: the per-node verdicts in the shared
// cache are never touched, since they hold across trees.
func (a *Analyzer) annotateHighRiskParents(tree *model.AnalysisTree) {
	found := false
	for d, level := range tree.CitationsByDepth {
		if d < 3 {
			continue
		}
		for _, c := range level {
			if c.RiskScore >= a.cfg.ReEvalThreshold {
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return
	}

	for d := 1; d <= 2; d++ {
		level := tree.CitationsByDepth[d]
		for i := range level {
			level[i].HasHighRiskDescendant = true
		}
	}
}

// orderedCitations flattens the tree in depth order for deterministic
// aggregation and top-N selection.
func (a *Analyzer) orderedCitations(tree *model.AnalysisTree) []model.Citation {
	var all []model.Citation
	for d := 1; d <= tree.CurrentDepth; d++ {
		all = append(all, tree.CitationsByDepth[d]...)
	}
	return all
}

// failTree marks the traversal failed at the last completed depth and
// persists it so a later run can resume.
func (a *Analyzer) failTree(tree *model.AnalysisTree, msg string, cause error) (*model.AnalysisTree, error) {
	tree.Status = model.TreeFailed
	tree.Error = msg

	if err := a.trees.SaveTree(context.Background(), tree); err != nil {
		a.logf("warning: persist failed tree: %v", err)
	}

	if errors.Is(cause, ErrTraversalFailed) {
		return tree, fmt.Errorf("%w: %s", ErrTraversalFailed, msg)
	}
	return tree, fmt.Errorf("%w: %s: %v", ErrTraversalFailed, msg, cause)
}

func (a *Analyzer) logf(format string, args ...interface{}) {
	if a.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// assessJob assesses one opinion under the per-node deadline
type assessJob struct {
	assessor Assessor
	parent   context.Context
	id       int64
	timeout  time.Duration
}

type assessResult struct {
	id        int64
	verdict   *model.Verdict
	fromCache bool
	err       error
}

func (r *assessResult) GetError() error { return r.err }

func (j *assessJob) Execute(ctx context.Context) worker.Result {
	nodeCtx := j.parent
	if j.timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(j.parent, j.timeout)
		defer cancel()
	}

	verdict, fromCache, err := j.assessor.Assess(nodeCtx, j.id)
	return &assessResult{id: j.id, verdict: verdict, fromCache: fromCache, err: err}
}
