package oracle

import (
	"context"
	"testing"

	"github.com/mlawson/shepard/internal/model"
)

func TestRulesOracle_NoTreatment(t *testing.T) {
	o := NewRulesOracle()

	v, err := o.Assess(context.Background(), Request{OpinionID: 1, Text: "some text"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if v.Assessment != model.AssessmentUncertain {
		t.Errorf("expected UNCERTAIN without treatment data, got %s", v.Assessment)
	}
	if v.RiskScore != 50 {
		t.Errorf("expected neutral risk 50, got %f", v.RiskScore)
	}
}

func TestRulesOracle_TreatmentMapping(t *testing.T) {
	o := NewRulesOracle()

	tests := []struct {
		treatment      model.TreatmentType
		severity       model.Severity
		wantAssessment model.QualityAssessment
		wantOverruled  bool
		minRisk        float64
	}{
		{model.TreatmentOverruled, model.SeverityNegative, model.AssessmentOverruled, true, 85},
		{model.TreatmentAbrogated, model.SeverityNegative, model.AssessmentOverruled, true, 85},
		{model.TreatmentReversed, model.SeverityNegative, model.AssessmentOverruled, true, 80},
		{model.TreatmentSuperseded, model.SeverityNegative, model.AssessmentSuperseded, true, 80},
		{model.TreatmentQuestioned, model.SeverityNegative, model.AssessmentQuestionable, false, 55},
		{model.TreatmentCriticized, model.SeverityNegative, model.AssessmentQuestionable, false, 50},
		{model.TreatmentFollowed, model.SeverityPositive, model.AssessmentGood, false, 0},
		{model.TreatmentCited, model.SeverityNeutral, model.AssessmentGood, false, 0},
	}

	for _, tt := range tests {
		req := Request{
			OpinionID: 2,
			Treatment: &model.TreatmentSummary{
				OpinionID:  2,
				Type:       tt.treatment,
				Severity:   tt.severity,
				Confidence: 0.8,
				Total:      1,
			},
		}
		if tt.severity == model.SeverityNegative {
			req.Treatment.NegativeCount = 1
		}

		v, err := o.Assess(context.Background(), req)
		if err != nil {
			t.Fatalf("Assess(%s): %v", tt.treatment, err)
		}
		if v.Assessment != tt.wantAssessment {
			t.Errorf("Assess(%s): assessment = %s, want %s", tt.treatment, v.Assessment, tt.wantAssessment)
		}
		if v.IsOverruled != tt.wantOverruled {
			t.Errorf("Assess(%s): is_overruled = %v, want %v", tt.treatment, v.IsOverruled, tt.wantOverruled)
		}
		if v.RiskScore < tt.minRisk {
			t.Errorf("Assess(%s): risk %f below %f", tt.treatment, v.RiskScore, tt.minRisk)
		}
		if v.Summary == "" {
			t.Errorf("Assess(%s): missing summary", tt.treatment)
		}
	}
}

func TestRulesOracle_NegationDowngradesPositiveType(t *testing.T) {
	o := NewRulesOracle()

	// "declined to follow" classifies as type FOLLOWED with NEGATIVE
	// severity; the verdict must not come back GOOD
	v, err := o.Assess(context.Background(), Request{
		OpinionID: 3,
		Treatment: &model.TreatmentSummary{
			OpinionID:     3,
			Type:          model.TreatmentFollowed,
			Severity:      model.SeverityNegative,
			Confidence:    0.7,
			NegativeCount: 1,
			Total:         1,
		},
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if v.Assessment == model.AssessmentGood {
		t.Errorf("negative severity must not yield GOOD, got %s (risk %f)", v.Assessment, v.RiskScore)
	}
}

func TestRulesOracle_Deterministic(t *testing.T) {
	o := NewRulesOracle()
	req := Request{
		OpinionID: 4,
		Treatment: &model.TreatmentSummary{
			OpinionID: 4, Type: model.TreatmentQuestioned,
			Severity: model.SeverityNegative, Confidence: 0.66,
			NegativeCount: 2, Total: 5,
		},
	}

	first, err := o.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := o.Assess(context.Background(), req)
		if err != nil {
			t.Fatalf("Assess: %v", err)
		}
		if *again != *first {
			t.Fatalf("verdict changed between identical calls: %+v vs %+v", again, first)
		}
	}
}
