package risk

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/mlawson/shepard/internal/model"
)

func TestAggregate_Empty(t *testing.T) {
	a := NewAggregator(60)
	got := a.Aggregate(nil)

	if got.Score != 0 {
		t.Errorf("expected score 0, got %v", got.Score)
	}
	if got.Level != model.RiskLow {
		t.Errorf("expected LOW, got %s", got.Level)
	}
	if got.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", got.Confidence)
	}
	if len(got.Factors) != 0 {
		t.Errorf("expected no factors, got %v", got.Factors)
	}
}

func TestAggregate_Formula(t *testing.T) {
	a := NewAggregator(60)

	// 1 overruled of 4 (25% negative), 1 questionable (25%),
	// depth-weighted avg = (90/1 + 50/2 + 10/2 + 20/3) / 4 = 30.416...
	citations := []model.Citation{
		{OpinionID: 1, Depth: 1, Assessment: model.AssessmentOverruled, RiskScore: 90},
		{OpinionID: 2, Depth: 2, Assessment: model.AssessmentQuestionable, RiskScore: 50},
		{OpinionID: 3, Depth: 2, Assessment: model.AssessmentGood, RiskScore: 10},
		{OpinionID: 4, Depth: 3, Assessment: model.AssessmentGood, RiskScore: 20},
	}

	got := a.Aggregate(citations)

	dwa := (90.0 + 25.0 + 5.0 + 20.0/3.0) / 4.0
	want := math.Round((25*0.5+25*0.3+dwa*0.2)*100) / 100

	if got.Score != want {
		t.Errorf("expected score %v, got %v", want, got.Score)
	}
	if got.Level != model.RiskLow {
		t.Errorf("expected LOW for score %v, got %s", got.Score, got.Level)
	}

	wantFactors := []string{
		"1 overruled/superseded cases (25.0%)",
		"1 questionable cases (25.0%)",
		"1 high-risk citations at depth 1",
	}
	if !reflect.DeepEqual(got.Factors, wantFactors) {
		t.Errorf("factors mismatch:\n got %v\nwant %v", got.Factors, wantFactors)
	}
}

func TestAggregate_Levels(t *testing.T) {
	a := NewAggregator(60)

	tests := []struct {
		name      string
		citations []model.Citation
		level     model.RiskLevel
	}{
		{
			name: "all overruled is high",
			citations: []model.Citation{
				{Depth: 1, Assessment: model.AssessmentOverruled, RiskScore: 90},
				{Depth: 1, Assessment: model.AssessmentSuperseded, RiskScore: 85},
			},
			level: model.RiskHigh,
		},
		{
			name: "all good is low",
			citations: []model.Citation{
				{Depth: 1, Assessment: model.AssessmentGood, RiskScore: 10},
				{Depth: 2, Assessment: model.AssessmentGood, RiskScore: 10},
			},
			level: model.RiskLow,
		},
		{
			name: "mixed is medium",
			citations: []model.Citation{
				{Depth: 1, Assessment: model.AssessmentOverruled, RiskScore: 90},
				{Depth: 1, Assessment: model.AssessmentGood, RiskScore: 10},
			},
			level: model.RiskMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Aggregate(tt.citations)
			if got.Level != tt.level {
				t.Errorf("expected %s, got %s (score %v)", tt.level, got.Level, got.Score)
			}
		})
	}
}

func TestAggregate_Capped(t *testing.T) {
	a := NewAggregator(60)

	var citations []model.Citation
	for i := 0; i < 10; i++ {
		citations = append(citations, model.Citation{
			OpinionID: int64(i), Depth: 1,
			Assessment: model.AssessmentOverruled, RiskScore: 100,
		})
	}

	got := a.Aggregate(citations)
	if got.Score != 100 {
		t.Errorf("expected score capped at 100, got %v", got.Score)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	a := NewAggregator(60)

	citations := []model.Citation{
		{OpinionID: 1, Depth: 1, Assessment: model.AssessmentOverruled, RiskScore: 90},
		{OpinionID: 2, Depth: 2, Assessment: model.AssessmentQuestionable, RiskScore: 55},
		{OpinionID: 3, Depth: 3, Assessment: model.AssessmentGood, RiskScore: 15},
	}

	first := a.Aggregate(citations)
	second := a.Aggregate(citations)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregation not idempotent:\n first %+v\nsecond %+v", first, second)
	}
}

func TestHighRisk_TopTwenty(t *testing.T) {
	a := NewAggregator(60)

	var citations []model.Citation
	for i := 0; i < 30; i++ {
		citations = append(citations, model.Citation{
			OpinionID: int64(i + 1),
			Depth:     1,
			RiskScore: float64(50 + i), // 50..79; ids 11..30 are at or above 60
		})
	}

	high := a.HighRisk(citations)

	if len(high) != maxHighRisk {
		t.Fatalf("expected %d high-risk citations, got %d", maxHighRisk, len(high))
	}
	for i := 1; i < len(high); i++ {
		if high[i].RiskScore > high[i-1].RiskScore {
			t.Fatalf("high-risk citations not sorted descending at %d", i)
		}
	}
	if high[0].RiskScore != 79 {
		t.Errorf("expected strongest first (79), got %v", high[0].RiskScore)
	}
	for _, c := range high {
		if c.RiskScore < 60 {
			t.Errorf("citation %d below threshold included (%v)", c.OpinionID, c.RiskScore)
		}
	}
}

func TestHighRisk_BelowThresholdExcluded(t *testing.T) {
	a := NewAggregator(60)

	high := a.HighRisk([]model.Citation{
		{OpinionID: 1, RiskScore: 59.9},
		{OpinionID: 2, RiskScore: 60},
	})

	if len(high) != 1 || high[0].OpinionID != 2 {
		ids := make([]string, len(high))
		for i, c := range high {
			ids[i] = fmt.Sprintf("%d", c.OpinionID)
		}
		t.Errorf("expected only opinion 2, got [%s]", strings.Join(ids, " "))
	}
}
