package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mlawson/shepard/internal/model"
)

// ErrUnavailable indicates the oracle cannot serve any request (missing
// key, unreachable endpoint). Distinct from a per-opinion failure.
var ErrUnavailable = errors.New("quality oracle unavailable")

// Request carries everything an oracle may consider for one opinion
type Request struct {
	OpinionID int64

	// Text is the opinion's plain text (may be empty if unavailable)
	Text string

	// Treatment is the aggregated treatment summary for the opinion,
	// nil when no parentheticals describe it
	Treatment *model.TreatmentSummary
}

// Oracle assesses the precedential quality of a single opinion.
// Implementations must be idempotent for the same request.
type Oracle interface {
	// Name returns the oracle name recorded on produced verdicts
	Name() string

	// Available reports whether the oracle can serve requests
	Available(ctx context.Context) bool

	// Assess produces a quality verdict for one opinion
	Assess(ctx context.Context, req Request) (*model.Verdict, error)
}

// New creates an oracle from configuration. An empty provider selects the
// deterministic rules engine.
func New(cfg model.OracleConfig) (Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "rules":
		return NewRulesOracle(), nil

	case "openai":
		return NewOpenAIOracle(cfg)

	case "anthropic", "claude":
		return NewAnthropicOracle(cfg)

	case "ollama":
		return NewOllamaOracle(cfg)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: rules, openai, anthropic, ollama)", cfg.Provider)
	}
}

// verdictWire is the JSON contract every LLM oracle must return
type verdictWire struct {
	QualityAssessment string  `json:"quality_assessment"`
	Confidence        float64 `json:"confidence"`
	IsOverruled       bool    `json:"is_overruled"`
	IsQuestioned      bool    `json:"is_questioned"`
	IsCriticized      bool    `json:"is_criticized"`
	RiskScore         float64 `json:"risk_score"`
	Summary           string  `json:"summary"`
}

// parseVerdict extracts and validates the JSON verdict from a model
// response. Responses may wrap the object in prose or code fences.
func parseVerdict(response string, opinionID int64, oracleName string) (*model.Verdict, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in oracle response")
	}

	var wire verdictWire
	if err := json.Unmarshal([]byte(response[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w", err)
	}

	assessment := model.QualityAssessment(wire.QualityAssessment)
	if !model.ValidAssessment(assessment) {
		return nil, fmt.Errorf("invalid quality_assessment: %q", wire.QualityAssessment)
	}
	if wire.Confidence < 0 || wire.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of [0,1]", wire.Confidence)
	}
	if wire.RiskScore < 0 || wire.RiskScore > 100 {
		return nil, fmt.Errorf("risk_score %f out of [0,100]", wire.RiskScore)
	}

	return &model.Verdict{
		OpinionID:    opinionID,
		Assessment:   assessment,
		Confidence:   wire.Confidence,
		RiskScore:    wire.RiskScore,
		IsOverruled:  wire.IsOverruled,
		IsQuestioned: wire.IsQuestioned,
		IsCriticized: wire.IsCriticized,
		Summary:      wire.Summary,
		Oracle:       oracleName,
	}, nil
}

// maxOpinionChars bounds how much opinion text is sent to an LLM oracle
const maxOpinionChars = 150000

// buildPrompt constructs the assessment prompt shared by LLM oracles
func buildPrompt(req Request) string {
	text := req.Text
	if len(text) > maxOpinionChars {
		text = text[:maxOpinionChars]
	}

	var b strings.Builder
	b.WriteString("You are assessing whether a judicial opinion is safe to rely upon as precedent.\n\n")

	if req.Treatment != nil && req.Treatment.Total > 0 {
		fmt.Fprintf(&b, "Known treatment signals: %s (%s severity, confidence %.2f) across %d parentheticals: %d negative, %d positive, %d neutral.\n\n",
			req.Treatment.Type, req.Treatment.Severity, req.Treatment.Confidence,
			req.Treatment.Total, req.Treatment.NegativeCount, req.Treatment.PositiveCount, req.Treatment.NeutralCount)
	} else {
		b.WriteString("No treatment signals are recorded for this opinion.\n\n")
	}

	b.WriteString(`Rules:
- Only mark OVERRULED if THIS opinion has itself been reversed or overruled by a higher court.
- An opinion that overrules OTHER cases is current law: GOOD.
- Mark QUESTIONABLE for weak reasoning, dicta-heavy holdings, procedural dismissal, or vacated posture.
- Mark SUPERSEDED only when replaced by statute or newer controlling precedent.
- Mark UNCERTAIN when the text is insufficient to judge.

Respond with ONLY a JSON object:
{
  "quality_assessment": "GOOD" | "QUESTIONABLE" | "OVERRULED" | "SUPERSEDED" | "UNCERTAIN",
  "confidence": 0.0-1.0,
  "is_overruled": true|false,
  "is_questioned": true|false,
  "is_criticized": true|false,
  "risk_score": 0-100,
  "summary": "one or two sentence explanation"
}

Opinion text:
`)
	b.WriteString(text)

	return b.String()
}
