package classify

import (
	"testing"

	"github.com/mlawson/shepard/internal/model"
)

func TestClassifySnippet_NoSignals(t *testing.T) {
	c := NewClassifier()

	result := c.ClassifySnippet("holding that the contract was valid")

	if result.Type != model.TreatmentCited {
		t.Errorf("expected CITED, got %s", result.Type)
	}
	if result.Severity != model.SeverityNeutral {
		t.Errorf("expected NEUTRAL, got %s", result.Severity)
	}
	if result.Confidence != 0.3 {
		t.Errorf("expected confidence 0.3, got %f", result.Confidence)
	}
}

func TestClassifySnippet_TreatmentTypes(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		text     string
		wantType model.TreatmentType
		wantSev  model.Severity
	}{
		{"expressly overruled by Brown v. Board", model.TreatmentOverruled, model.SeverityNegative},
		{"reversed on other grounds", model.TreatmentReversed, model.SeverityNegative},
		{"abrogated by statute", model.TreatmentAbrogated, model.SeverityNegative},
		{"affirmed per curiam", model.TreatmentAffirmed, model.SeverityPositive},
		{"followed by every circuit", model.TreatmentFollowed, model.SeverityPositive},
		{"distinguished on procedural grounds", model.TreatmentDistinguished, model.SeverityNeutral},
		{"declined to follow the reasoning", model.TreatmentFollowed, model.SeverityNegative},
	}

	for _, tt := range tests {
		result := c.ClassifySnippet(tt.text)
		if result.Severity != tt.wantSev {
			t.Errorf("ClassifySnippet(%q): severity = %s, want %s", tt.text, result.Severity, tt.wantSev)
		}
		if result.Type != tt.wantType {
			t.Errorf("ClassifySnippet(%q): type = %s, want %s", tt.text, result.Type, tt.wantType)
		}
		if result.Confidence <= 0 || result.Confidence > 1 {
			t.Errorf("ClassifySnippet(%q): confidence %f out of range", tt.text, result.Confidence)
		}
	}
}

func TestClassifySnippet_TieBreaksNegative(t *testing.T) {
	c := NewClassifier()

	// "questioned" (6) vs "endorsed" (6): equal bucket scores must
	// resolve to NEGATIVE
	result := c.ClassifySnippet("questioned yet endorsed")

	if result.Severity != model.SeverityNegative {
		t.Errorf("tie must break toward NEGATIVE, got %s", result.Severity)
	}
}

func TestClassifySnippet_ConfidenceSaturates(t *testing.T) {
	c := NewClassifier()

	result := c.ClassifySnippet("overruled, reversed, vacated, abrogated, and rejected")
	if result.Confidence != 1.0 {
		t.Errorf("expected confidence capped at 1.0, got %f", result.Confidence)
	}
}

func TestAnalyzeTreatment_Empty(t *testing.T) {
	c := NewClassifier()

	summary := c.AnalyzeTreatment(42, nil)

	if summary.Type != model.TreatmentUnknown {
		t.Errorf("expected UNKNOWN type, got %s", summary.Type)
	}
	if summary.Severity != model.SeverityUnknown {
		t.Errorf("expected UNKNOWN severity, got %s", summary.Severity)
	}
	if summary.Confidence != 0.0 {
		t.Errorf("expected confidence 0.0, got %f", summary.Confidence)
	}
	if summary.Total != 0 || summary.NegativeCount != 0 {
		t.Error("expected zero counts")
	}
	if summary.Evidence != nil {
		t.Error("expected no evidence for empty input")
	}
}

func TestAnalyzeTreatment_NegativeNeverOutvoted(t *testing.T) {
	c := NewClassifier()

	parens := []model.Parenthetical{
		{Text: "followed in this circuit", DescribedID: 1, DescribingID: 10},
		{Text: "affirmed on appeal", DescribedID: 1, DescribingID: 11},
		{Text: "adopted the test announced", DescribedID: 1, DescribingID: 12},
		{Text: "overruled in relevant part", DescribedID: 1, DescribingID: 13},
	}

	summary := c.AnalyzeTreatment(1, parens)

	if summary.Severity != model.SeverityNegative {
		t.Errorf("one negative among three positive must yield NEGATIVE, got %s", summary.Severity)
	}
	if summary.Type != model.TreatmentOverruled {
		t.Errorf("expected OVERRULED, got %s", summary.Type)
	}
	if summary.NegativeCount != 1 || summary.PositiveCount != 3 {
		t.Errorf("counts wrong: %d negative, %d positive", summary.NegativeCount, summary.PositiveCount)
	}
}

func TestAnalyzeTreatment_PositiveMajority(t *testing.T) {
	c := NewClassifier()

	parens := []model.Parenthetical{
		{Text: "followed with approval", DescribedID: 2, DescribingID: 20},
		{Text: "affirmed the holding", DescribedID: 2, DescribingID: 21},
		{Text: "cited for the general rule", DescribedID: 2, DescribingID: 22},
	}

	summary := c.AnalyzeTreatment(2, parens)

	if summary.Severity != model.SeverityPositive {
		t.Errorf("expected POSITIVE, got %s", summary.Severity)
	}
	if summary.Evidence == nil {
		t.Fatal("expected evidence object")
	}
	if len(summary.Evidence.PositiveExamples) == 0 {
		t.Error("expected positive examples in evidence")
	}
	if summary.Evidence.Summary == "" {
		t.Error("expected evidence summary string")
	}
}

func TestAnalyzeTreatment_ConfidenceGrowsWithCorroboration(t *testing.T) {
	c := NewClassifier()

	one := c.AnalyzeTreatment(3, []model.Parenthetical{
		{Text: "overruled", DescribingID: 30},
	})
	three := c.AnalyzeTreatment(3, []model.Parenthetical{
		{Text: "overruled", DescribingID: 30},
		{Text: "rejected the analysis", DescribingID: 31},
		{Text: "no longer followed", DescribingID: 32},
	})

	if three.Confidence <= one.Confidence {
		t.Errorf("expected confidence to grow with corroboration: %f vs %f", three.Confidence, one.Confidence)
	}
	if three.Confidence > 1.0 {
		t.Errorf("confidence must saturate at 1.0, got %f", three.Confidence)
	}
}

func TestAnalyzeTreatment_ExamplesBounded(t *testing.T) {
	c := NewClassifier()

	var parens []model.Parenthetical
	for i := 0; i < 12; i++ {
		parens = append(parens, model.Parenthetical{Text: "overruled in part", DescribingID: int64(i)})
	}

	summary := c.AnalyzeTreatment(4, parens)

	if len(summary.Evidence.NegativeExamples) > maxExamplesPerBucket {
		t.Errorf("expected at most %d negative examples, got %d",
			maxExamplesPerBucket, len(summary.Evidence.NegativeExamples))
	}
	if len(summary.Significant) > maxSignificant {
		t.Errorf("expected at most %d significant treatments, got %d",
			maxSignificant, len(summary.Significant))
	}
}
