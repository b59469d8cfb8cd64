package oracle

import (
	"context"
	"fmt"

	"github.com/mlawson/shepard/internal/model"
)

// RulesOracle assesses opinions deterministically from treatment signals.
// It needs no network access and is the default provider.
type RulesOracle struct{}

// NewRulesOracle creates a new rules-based oracle
func NewRulesOracle() *RulesOracle {
	return &RulesOracle{}
}

// Name returns the oracle name
func (o *RulesOracle) Name() string {
	return "rules"
}

// Available always reports true; the rules engine has no dependencies
func (o *RulesOracle) Available(ctx context.Context) bool {
	return true
}

// Assess maps the opinion's treatment summary to a quality verdict
func (o *RulesOracle) Assess(ctx context.Context, req Request) (*model.Verdict, error) {
	t := req.Treatment

	if t == nil || t.Total == 0 {
		// Nothing describes this opinion; without treatment data the
		// rules engine cannot distinguish good law from bad
		return &model.Verdict{
			OpinionID:  req.OpinionID,
			Assessment: model.AssessmentUncertain,
			Confidence: 0.3,
			RiskScore:  50,
			Summary:    "No treatment signals recorded; unable to assess precedential quality.",
			Oracle:     o.Name(),
		}, nil
	}

	v := &model.Verdict{
		OpinionID:  req.OpinionID,
		Confidence: t.Confidence,
		Oracle:     o.Name(),
	}

	switch t.Type {
	case model.TreatmentOverruled, model.TreatmentAbrogated:
		v.Assessment = model.AssessmentOverruled
		v.RiskScore = 90
		v.IsOverruled = true
	case model.TreatmentReversed, model.TreatmentVacated:
		v.Assessment = model.AssessmentOverruled
		v.RiskScore = 85
		v.IsOverruled = true
	case model.TreatmentSuperseded:
		v.Assessment = model.AssessmentSuperseded
		v.RiskScore = 85
		v.IsOverruled = true
	case model.TreatmentQuestioned:
		v.Assessment = model.AssessmentQuestionable
		v.RiskScore = 60
		v.IsQuestioned = true
	case model.TreatmentCriticized:
		v.Assessment = model.AssessmentQuestionable
		v.RiskScore = 55
		v.IsCriticized = true
	case model.TreatmentAffirmed, model.TreatmentFollowed:
		v.Assessment = model.AssessmentGood
		v.RiskScore = 10
	case model.TreatmentDistinguished, model.TreatmentCited:
		v.Assessment = model.AssessmentGood
		v.RiskScore = 25
	default:
		v.Assessment = model.AssessmentUncertain
		v.RiskScore = 50
	}

	// Any negative treatment buried under a non-negative overall type
	// still raises risk: a single overruling parenthetical matters even
	// when dozens of neutral citations exist
	if t.Severity == model.SeverityNegative && v.Assessment == model.AssessmentGood {
		v.Assessment = model.AssessmentQuestionable
		v.RiskScore = 50
	}
	if t.NegativeCount > 0 && v.RiskScore < 40 {
		v.RiskScore = 40
	}

	v.Summary = fmt.Sprintf("%s treatment (%s) across %d parentheticals: %d negative, %d positive, %d neutral.",
		t.Type, t.Severity, t.Total, t.NegativeCount, t.PositiveCount, t.NeutralCount)

	return v, nil
}
