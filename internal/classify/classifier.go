package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mlawson/shepard/internal/model"
)

// Classifier turns scanner signals into treatment verdicts
type Classifier struct {
	scanner *Scanner
}

// NewClassifier creates a new treatment classifier
func NewClassifier() *Classifier {
	return &Classifier{scanner: NewScanner()}
}

// ClassifySnippet classifies a single parenthetical snippet.
//
// The severity with the highest total score wins; ties break toward
// NEGATIVE, then POSITIVE. Negative treatment is the most legally
// significant and must never be hidden by a tie.
func (c *Classifier) ClassifySnippet(text string) model.TreatmentResult {
	signals := c.scanner.Scan(text)

	if len(signals) == 0 {
		return model.TreatmentResult{
			Type:       model.TreatmentCited,
			Severity:   model.SeverityNeutral,
			Confidence: 0.3, // Unclassified, not verified neutral
			Text:       text,
		}
	}

	var negScore, posScore, neuScore int
	for _, s := range signals {
		switch s.Severity {
		case model.SeverityNegative:
			negScore += s.Score
		case model.SeverityPositive:
			posScore += s.Score
		default:
			neuScore += s.Score
		}
	}

	var severity model.Severity
	var winning int
	switch {
	case negScore >= posScore && negScore >= neuScore:
		severity = model.SeverityNegative
		winning = negScore
	case posScore >= neuScore:
		severity = model.SeverityPositive
		winning = posScore
	default:
		severity = model.SeverityNeutral
		winning = neuScore
	}

	strongest := signals[0]
	for _, s := range signals[1:] {
		if s.Score > strongest.Score {
			strongest = s
		}
	}
	treatmentType := mapKeywordToType(strongest.Keyword, severity)

	winningCount := 0
	for _, s := range signals {
		if s.Severity == severity {
			winningCount++
		}
	}

	confidence := (float64(winning) / 10.0) * (1.0 + float64(winningCount)*0.1)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return model.TreatmentResult{
		Type:       treatmentType,
		Severity:   severity,
		Confidence: confidence,
		Signals:    signals,
		Text:       text,
	}
}

// mapKeywordToType maps the strongest signal's keyword to a treatment type
func mapKeywordToType(keyword string, severity model.Severity) model.TreatmentType {
	keyword = strings.ToLower(keyword)

	switch {
	case strings.Contains(keyword, "overrul"):
		return model.TreatmentOverruled
	case strings.Contains(keyword, "revers"):
		return model.TreatmentReversed
	case strings.Contains(keyword, "vacat"):
		return model.TreatmentVacated
	case strings.Contains(keyword, "abrogat"):
		return model.TreatmentAbrogated
	case strings.Contains(keyword, "supersed"):
		return model.TreatmentSuperseded
	case strings.Contains(keyword, "question"), strings.Contains(keyword, "doubt"):
		return model.TreatmentQuestioned
	case strings.Contains(keyword, "criticiz"), strings.Contains(keyword, "disapprov"), strings.Contains(keyword, "reject"):
		return model.TreatmentCriticized
	case strings.Contains(keyword, "affirm"):
		return model.TreatmentAffirmed
	case strings.Contains(keyword, "follow"), strings.Contains(keyword, "adopt"),
		strings.Contains(keyword, "approv"), strings.Contains(keyword, "endors"):
		return model.TreatmentFollowed
	case strings.Contains(keyword, "distinguish"):
		return model.TreatmentDistinguished
	}

	switch severity {
	case model.SeverityNegative:
		return model.TreatmentCriticized
	case model.SeverityPositive:
		return model.TreatmentFollowed
	default:
		return model.TreatmentCited
	}
}

const (
	maxExamplesPerBucket = 5
	maxSignificant       = 10
	excerptLength        = 200
	exampleLength        = 300
)

// AnalyzeTreatment aggregates classification of every parenthetical that
// describes one opinion into a single treatment summary.
//
// Any negative snippet makes the overall severity NEGATIVE regardless of
// how many positive or neutral snippets exist; negative treatment is never
// outvoted by volume.
func (c *Classifier) AnalyzeTreatment(opinionID int64, parentheticals []model.Parenthetical) model.TreatmentSummary {
	if len(parentheticals) == 0 {
		return model.TreatmentSummary{
			OpinionID:  opinionID,
			Type:       model.TreatmentUnknown,
			Severity:   model.SeverityUnknown,
			Confidence: 0.0,
		}
	}

	type classified struct {
		result model.TreatmentResult
		p      model.Parenthetical
	}
	results := make([]classified, 0, len(parentheticals))
	for _, p := range parentheticals {
		results = append(results, classified{c.ClassifySnippet(p.Text), p})
	}

	var negCount, posCount, neuCount int
	for _, r := range results {
		switch r.result.Severity {
		case model.SeverityNegative:
			negCount++
		case model.SeverityPositive:
			posCount++
		default:
			neuCount++
		}
	}

	var severity model.Severity
	var treatmentType model.TreatmentType
	var confidence float64

	switch {
	case negCount > 0:
		severity = model.SeverityNegative
		strongest := results[0]
		best := -1.0
		for _, r := range results {
			if r.result.Severity != model.SeverityNegative {
				continue
			}
			top := 0
			for _, s := range r.result.Signals {
				if s.Score > top {
					top = s.Score
				}
			}
			weight := r.result.Confidence * float64(top)
			if weight > best {
				best = weight
				strongest = r
			}
		}
		treatmentType = strongest.result.Type
		confidence = 0.6 + float64(negCount)*0.1
	case posCount > neuCount:
		severity = model.SeverityPositive
		strongest := results[0]
		best := -1.0
		for _, r := range results {
			if r.result.Severity == model.SeverityPositive && r.result.Confidence > best {
				best = r.result.Confidence
				strongest = r
			}
		}
		treatmentType = strongest.result.Type
		confidence = 0.4 + float64(posCount)*0.05
	default:
		severity = model.SeverityNeutral
		treatmentType = model.TreatmentCited
		confidence = 0.3
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	var significant []model.SignificantTreatment
	var negExamples, posExamples []model.TreatmentExample
	var totalNegScore, totalPosScore int

	for _, r := range results {
		for _, s := range r.result.Signals {
			switch s.Severity {
			case model.SeverityNegative:
				totalNegScore += s.Score
			case model.SeverityPositive:
				totalPosScore += s.Score
			}
		}

		switch r.result.Severity {
		case model.SeverityNegative:
			negExamples = append(negExamples, buildExample(r.result, r.p, model.SeverityNegative))
		case model.SeverityPositive:
			posExamples = append(posExamples, buildExample(r.result, r.p, model.SeverityPositive))
		}

		if r.result.Severity == model.SeverityNegative ||
			(r.result.Severity == model.SeverityPositive && r.result.Confidence > 0.7) {
			significant = append(significant, model.SignificantTreatment{
				Type:         r.result.Type,
				Severity:     r.result.Severity,
				Confidence:   r.result.Confidence,
				DescribedID:  r.p.DescribedID,
				DescribingID: r.p.DescribingID,
				Excerpt:      truncate(r.result.Text, excerptLength),
				Keywords:     topKeywords(r.result.Signals, 3),
			})
		}
	}

	sort.SliceStable(negExamples, func(i, j int) bool { return negExamples[i].Score > negExamples[j].Score })
	sort.SliceStable(posExamples, func(i, j int) bool { return posExamples[i].Score > posExamples[j].Score })
	if len(negExamples) > maxExamplesPerBucket {
		negExamples = negExamples[:maxExamplesPerBucket]
	}
	if len(posExamples) > maxExamplesPerBucket {
		posExamples = posExamples[:maxExamplesPerBucket]
	}

	sort.SliceStable(significant, func(i, j int) bool { return significant[i].Confidence > significant[j].Confidence })
	if len(significant) > maxSignificant {
		significant = significant[:maxSignificant]
	}

	evidence := &model.TreatmentEvidence{
		Summary: fmt.Sprintf("%s based on %d negative, %d positive, %d neutral parentheticals",
			treatmentType, negCount, posCount, neuCount),
		NegativeExamples:   negExamples,
		PositiveExamples:   posExamples,
		TotalNegativeScore: totalNegScore,
		TotalPositiveScore: totalPosScore,
	}

	return model.TreatmentSummary{
		OpinionID:     opinionID,
		Type:          treatmentType,
		Severity:      severity,
		Confidence:    confidence,
		NegativeCount: negCount,
		PositiveCount: posCount,
		NeutralCount:  neuCount,
		Total:         len(parentheticals),
		Significant:   significant,
		Evidence:      evidence,
	}
}

func buildExample(r model.TreatmentResult, p model.Parenthetical, severity model.Severity) model.TreatmentExample {
	var keywords []string
	score := 0
	for _, s := range r.Signals {
		if s.Severity == severity {
			keywords = append(keywords, s.Keyword)
			score += s.Score
		}
	}
	return model.TreatmentExample{
		Text:         truncate(r.Text, exampleLength),
		Keywords:     keywords,
		Score:        score,
		DescribingID: p.DescribingID,
	}
}

func topKeywords(signals []model.TreatmentSignal, n int) []string {
	var keywords []string
	for i, s := range signals {
		if i >= n {
			break
		}
		keywords = append(keywords, s.Keyword)
	}
	return keywords
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
