package model

import "time"

// TreeStatus tracks the lifecycle of a citation tree analysis
type TreeStatus string

const (
	TreeInProgress TreeStatus = "in_progress"
	TreeCompleted  TreeStatus = "completed"
	TreeFailed     TreeStatus = "failed"
)

// RiskLevel buckets an overall risk score for display
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Citation is one assessed node in a citation tree, tagged with the depth
// at which the traversal reached it
type Citation struct {
	OpinionID             int64             `json:"opinion_id"`
	Depth                 int               `json:"depth"`
	Assessment            QualityAssessment `json:"quality_assessment"`
	Confidence            float64           `json:"confidence"`
	RiskScore             float64           `json:"risk_score"`
	IsOverruled           bool              `json:"is_overruled"`
	IsQuestioned          bool              `json:"is_questioned"`
	IsCriticized          bool              `json:"is_criticized"`
	Summary               string            `json:"summary,omitempty"`
	FromCache             bool              `json:"from_cache"`
	HasHighRiskDescendant bool              `json:"has_high_risk_descendant,omitempty"`
}

// RiskAssessment is the aggregated risk for a whole tree
type RiskAssessment struct {
	Score      float64   `json:"score"`
	Level      RiskLevel `json:"level"`
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"factors,omitempty"`
}

// AnalysisTree is the persisted record of one (root, maxDepth) traversal.
// CurrentDepth never exceeds MaxDepth; a completed tree with a smaller
// MaxDepth than requested is extendable from CurrentDepth+1.
type AnalysisTree struct {
	RootID       int64      `json:"root_opinion_id"`
	MaxDepth     int        `json:"max_depth"`
	CurrentDepth int        `json:"current_depth"`
	Status       TreeStatus `json:"status"`

	TotalCitations    int `json:"total_citations_analyzed"`
	GoodCount         int `json:"good_count"`
	QuestionableCount int `json:"questionable_count"`
	OverruledCount    int `json:"overruled_count"`
	SupersededCount   int `json:"superseded_count"`
	UncertainCount    int `json:"uncertain_count"`

	Risk             RiskAssessment     `json:"risk"`
	CitationsByDepth map[int][]Citation `json:"citations_by_depth,omitempty"`
	HighRisk         []Citation         `json:"high_risk_citations,omitempty"`

	CacheHits   int  `json:"cache_hits"`
	CacheMisses int  `json:"cache_misses"`
	Truncated   bool `json:"truncated"` // A level hit the per-level citation cap

	StartedAt   time.Time  `json:"analysis_started_at"`
	CompletedAt *time.Time `json:"analysis_completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IsComplete reports whether the tree finished at its requested depth
func (t *AnalysisTree) IsComplete() bool {
	return t.Status == TreeCompleted && t.CurrentDepth >= t.MaxDepth
}

// Extendable reports whether a deeper request can resume from this tree
func (t *AnalysisTree) Extendable(newDepth int) bool {
	return t.Status == TreeCompleted && newDepth > t.CurrentDepth
}

// Citations returns the flat citation set across all depths
func (t *AnalysisTree) Citations() []Citation {
	var all []Citation
	for _, level := range t.CitationsByDepth {
		all = append(all, level...)
	}
	return all
}

// RecountCategories refreshes the per-assessment counters from the
// citation map
func (t *AnalysisTree) RecountCategories() {
	t.GoodCount = 0
	t.QuestionableCount = 0
	t.OverruledCount = 0
	t.SupersededCount = 0
	t.UncertainCount = 0
	t.TotalCitations = 0

	for _, level := range t.CitationsByDepth {
		for _, c := range level {
			t.TotalCitations++
			switch c.Assessment {
			case AssessmentGood:
				t.GoodCount++
			case AssessmentQuestionable:
				t.QuestionableCount++
			case AssessmentOverruled:
				t.OverruledCount++
			case AssessmentSuperseded:
				t.SupersededCount++
			default:
				t.UncertainCount++
			}
		}
	}
}
