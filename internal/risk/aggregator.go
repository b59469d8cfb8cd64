package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/mlawson/shepard/internal/model"
)

const maxHighRisk = 20

// Aggregator folds a flat citation set into a tree-level risk
// assessment. Negative outcomes dominate the score, questionable ones
// contribute less, and individual risk scores are weighted toward
// shallow depths since the root relies on those most directly.
type Aggregator struct {
	highRiskThreshold float64
}

// NewAggregator creates an aggregator with the given high-risk cutoff
func NewAggregator(highRiskThreshold float64) *Aggregator {
	return &Aggregator{highRiskThreshold: highRiskThreshold}
}

// Aggregate computes overall risk for the citation set. An empty set is
// zero risk with full confidence.
func (a *Aggregator) Aggregate(citations []model.Citation) model.RiskAssessment {
	if len(citations) == 0 {
		return model.RiskAssessment{
			Score:      0,
			Level:      model.RiskLow,
			Confidence: 1.0,
		}
	}

	total := float64(len(citations))

	var negative, questionable int
	var depthWeighted float64
	var depth1Issues int

	for _, c := range citations {
		switch c.Assessment {
		case model.AssessmentOverruled, model.AssessmentSuperseded:
			negative++
		case model.AssessmentQuestionable:
			questionable++
		}

		depthWeighted += c.RiskScore / math.Max(float64(c.Depth), 1)

		if c.Depth == 1 && c.RiskScore >= a.highRiskThreshold {
			depth1Issues++
		}
	}

	negativePct := float64(negative) / total * 100
	questionablePct := float64(questionable) / total * 100
	depthWeightedAvg := depthWeighted / total

	score := math.Min(negativePct*0.5+questionablePct*0.3+depthWeightedAvg*0.2, 100)
	score = math.Round(score*100) / 100

	var factors []string
	if negative > 0 {
		factors = append(factors, fmt.Sprintf("%d overruled/superseded cases (%.1f%%)", negative, negativePct))
	}
	if questionable > 0 {
		factors = append(factors, fmt.Sprintf("%d questionable cases (%.1f%%)", questionable, questionablePct))
	}
	if depth1Issues > 0 {
		factors = append(factors, fmt.Sprintf("%d high-risk citations at depth 1", depth1Issues))
	}

	return model.RiskAssessment{
		Score:      score,
		Level:      levelFor(score),
		Confidence: 0.85,
		Factors:    factors,
	}
}

// HighRisk returns the citations at or above the high-risk cutoff,
// strongest first, capped to the top twenty.
func (a *Aggregator) HighRisk(citations []model.Citation) []model.Citation {
	var high []model.Citation
	for _, c := range citations {
		if c.RiskScore >= a.highRiskThreshold {
			high = append(high, c)
		}
	}

	sort.SliceStable(high, func(i, j int) bool {
		return high[i].RiskScore > high[j].RiskScore
	})

	if len(high) > maxHighRisk {
		high = high[:maxHighRisk]
	}
	return high
}

func levelFor(score float64) model.RiskLevel {
	switch {
	case score >= 70:
		return model.RiskHigh
	case score >= 40:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
