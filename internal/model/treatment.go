package model

// TreatmentType identifies how a citing opinion characterizes the cited one
type TreatmentType string

const (
	TreatmentOverruled     TreatmentType = "OVERRULED"
	TreatmentReversed      TreatmentType = "REVERSED"
	TreatmentVacated       TreatmentType = "VACATED"
	TreatmentAbrogated     TreatmentType = "ABROGATED"
	TreatmentSuperseded    TreatmentType = "SUPERSEDED"
	TreatmentAffirmed      TreatmentType = "AFFIRMED"
	TreatmentFollowed      TreatmentType = "FOLLOWED"
	TreatmentDistinguished TreatmentType = "DISTINGUISHED"
	TreatmentQuestioned    TreatmentType = "QUESTIONED"
	TreatmentCriticized    TreatmentType = "CRITICIZED"
	TreatmentCited         TreatmentType = "CITED"
	TreatmentUnknown       TreatmentType = "UNKNOWN"
)

// Severity classifies the direction of a treatment
type Severity string

const (
	SeverityNegative Severity = "NEGATIVE" // authority weakened (overruled, reversed, ...)
	SeverityPositive Severity = "POSITIVE" // authority strengthened (affirmed, followed, ...)
	SeverityNeutral  Severity = "NEUTRAL"  // discussed but authority unchanged
	SeverityUnknown  Severity = "UNKNOWN"  // unable to determine
)

// TreatmentSignal is a single keyword or negation-phrase hit in a snippet
type TreatmentSignal struct {
	Keyword  string   `json:"keyword"`  // Matched keyword or full negation phrase
	Score    int      `json:"score"`    // Base score adjusted by context modifiers
	Severity Severity `json:"severity"` // Bucket the signal contributes to
	Position int      `json:"position"` // Character offset in the normalized text
}

// TreatmentResult is the classification of a single parenthetical snippet
type TreatmentResult struct {
	Type       TreatmentType     `json:"type"`
	Severity   Severity          `json:"severity"`
	Confidence float64           `json:"confidence"` // 0.0 to 1.0
	Signals    []TreatmentSignal `json:"signals,omitempty"`
	Text       string            `json:"text"`
}

// Parenthetical is a short description of one opinion written by another
type Parenthetical struct {
	Text         string `json:"text"`
	DescribedID  int64  `json:"described_opinion_id"`
	DescribingID int64  `json:"describing_opinion_id"`
}

// TreatmentExample is one snippet kept as evidence for an aggregate verdict
type TreatmentExample struct {
	Text         string   `json:"text"`
	Keywords     []string `json:"keywords"`
	Score        int      `json:"score"`
	DescribingID int64    `json:"describing_opinion_id"`
}

// SignificantTreatment records a notable treatment instance for display
type SignificantTreatment struct {
	Type         TreatmentType `json:"type"`
	Severity     Severity      `json:"severity"`
	Confidence   float64       `json:"confidence"`
	DescribedID  int64         `json:"described_opinion_id"`
	DescribingID int64         `json:"describing_opinion_id"`
	Excerpt      string        `json:"excerpt"`
	Keywords     []string      `json:"keywords,omitempty"`
}

// TreatmentEvidence explains why an aggregate treatment was assigned
type TreatmentEvidence struct {
	Summary            string             `json:"summary"`
	NegativeExamples   []TreatmentExample `json:"negative_examples,omitempty"`
	PositiveExamples   []TreatmentExample `json:"positive_examples,omitempty"`
	TotalNegativeScore int                `json:"total_negative_score"`
	TotalPositiveScore int                `json:"total_positive_score"`
}

// TreatmentSummary aggregates treatment analysis across every parenthetical
// that describes one opinion
type TreatmentSummary struct {
	OpinionID     int64                  `json:"opinion_id"`
	Type          TreatmentType          `json:"type"`
	Severity      Severity               `json:"severity"`
	Confidence    float64                `json:"confidence"`
	NegativeCount int                    `json:"negative_count"`
	PositiveCount int                    `json:"positive_count"`
	NeutralCount  int                    `json:"neutral_count"`
	Total         int                    `json:"total_parentheticals"`
	Significant   []SignificantTreatment `json:"significant_treatments,omitempty"`
	Evidence      *TreatmentEvidence     `json:"evidence,omitempty"`
}
