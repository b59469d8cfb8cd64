package store

import (
	"context"
	"sync"

	"github.com/mlawson/shepard/internal/model"
)

// Memory is an in-process store used by tests and as a scratch backend.
// Citation ordering follows insertion order.
type Memory struct {
	mu             sync.RWMutex
	opinions       map[int64]string
	citations      map[int64][]int64
	parentheticals map[int64][]model.Parenthetical
	verdicts       map[verdictKey]model.Verdict
	trees          map[treeKey]model.AnalysisTree
}

type verdictKey struct {
	opinionID int64
	version   int
}

type treeKey struct {
	rootID   int64
	maxDepth int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		opinions:       make(map[int64]string),
		citations:      make(map[int64][]int64),
		parentheticals: make(map[int64][]model.Parenthetical),
		verdicts:       make(map[verdictKey]model.Verdict),
		trees:          make(map[treeKey]model.AnalysisTree),
	}
}

// AddOpinion stores an opinion's text
func (m *Memory) AddOpinion(id int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opinions[id] = text
}

// AddCitations stores the ordered outbound citations of one opinion
func (m *Memory) AddCitations(citingID int64, citedIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.citations[citingID] = append(m.citations[citingID], citedIDs...)
}

// AddParenthetical stores one parenthetical description
func (m *Memory) AddParenthetical(p model.Parenthetical) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parentheticals[p.DescribedID] = append(m.parentheticals[p.DescribedID], p)
}

// HasOpinion reports whether the opinion exists
func (m *Memory) HasOpinion(ctx context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.opinions[id]
	return ok, nil
}

// OpinionText returns the stored text of an opinion
func (m *Memory) OpinionText(ctx context.Context, id int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.opinions[id]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

// CitedIDs returns the opinions cited by id, in insertion order
func (m *Memory) CitedIDs(ctx context.Context, id int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.citations[id]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out, nil
}

// Parentheticals returns all stored descriptions of one opinion
func (m *Memory) Parentheticals(ctx context.Context, describedID int64) ([]model.Parenthetical, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parens := m.parentheticals[describedID]
	out := make([]model.Parenthetical, len(parens))
	copy(out, parens)
	return out, nil
}

// GetVerdict returns the verdict for (opinion, version), or nil
func (m *Memory) GetVerdict(ctx context.Context, opinionID int64, version int) (*model.Verdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.verdicts[verdictKey{opinionID, version}]
	if !ok {
		return nil, nil
	}
	out := v
	return &out, nil
}

// PutVerdict upserts a verdict
func (m *Memory) PutVerdict(ctx context.Context, v *model.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts[verdictKey{v.OpinionID, v.Version}] = *v
	return nil
}

// LoadTree returns the tree for (root, maxDepth), or nil
func (m *Memory) LoadTree(ctx context.Context, rootID int64, maxDepth int) (*model.AnalysisTree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trees[treeKey{rootID, maxDepth}]
	if !ok {
		return nil, nil
	}
	out := cloneTree(t)
	return &out, nil
}

// SaveTree stores a full tree snapshot. The snapshot is detached from
// the caller's tree, so later mutations never change what was saved.
func (m *Memory) SaveTree(ctx context.Context, tree *model.AnalysisTree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[treeKey{tree.RootID, tree.MaxDepth}] = cloneTree(*tree)
	return nil
}

func cloneTree(t model.AnalysisTree) model.AnalysisTree {
	out := t
	if t.CitationsByDepth != nil {
		out.CitationsByDepth = make(map[int][]model.Citation, len(t.CitationsByDepth))
		for depth, level := range t.CitationsByDepth {
			copied := make([]model.Citation, len(level))
			copy(copied, level)
			out.CitationsByDepth[depth] = copied
		}
	}
	if t.HighRisk != nil {
		out.HighRisk = make([]model.Citation, len(t.HighRisk))
		copy(out.HighRisk, t.HighRisk)
	}
	if t.Risk.Factors != nil {
		out.Risk.Factors = make([]string, len(t.Risk.Factors))
		copy(out.Risk.Factors, t.Risk.Factors)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
