package model

import "time"

// QualityAssessment is the oracle's overall judgment of a cited opinion
type QualityAssessment string

const (
	AssessmentGood         QualityAssessment = "GOOD"         // Safe to cite, no negative treatment
	AssessmentQuestionable QualityAssessment = "QUESTIONABLE" // Criticized or questioned
	AssessmentOverruled    QualityAssessment = "OVERRULED"    // Explicitly overruled
	AssessmentSuperseded   QualityAssessment = "SUPERSEDED"   // Replaced by statute or newer precedent
	AssessmentUncertain    QualityAssessment = "UNCERTAIN"    // Insufficient information
)

// ValidAssessment reports whether s is one of the known assessment values
func ValidAssessment(s QualityAssessment) bool {
	switch s {
	case AssessmentGood, AssessmentQuestionable, AssessmentOverruled,
		AssessmentSuperseded, AssessmentUncertain:
		return true
	}
	return false
}

// Verdict is a per-opinion quality assessment, cached by (opinion, version).
// Immutable once produced; superseded only by re-analysis at a new version.
type Verdict struct {
	OpinionID    int64             `json:"opinion_id"`
	Assessment   QualityAssessment `json:"quality_assessment"`
	Confidence   float64           `json:"confidence"` // 0.0 to 1.0
	RiskScore    float64           `json:"risk_score"` // 0 to 100
	IsOverruled  bool              `json:"is_overruled"`
	IsQuestioned bool              `json:"is_questioned"`
	IsCriticized bool              `json:"is_criticized"`
	Summary      string            `json:"summary,omitempty"`
	Oracle       string            `json:"oracle,omitempty"` // Producing oracle name
	Version      int               `json:"analysis_version"`
	AnalyzedAt   time.Time         `json:"analyzed_at"`
}
