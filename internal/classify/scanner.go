package classify

import (
	"sort"
	"strings"

	"github.com/mlawson/shepard/internal/model"
)

// Scanner finds weighted treatment signals in parenthetical text
type Scanner struct{}

// NewScanner creates a new signal scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// normalize lowercases and trims text for matching
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// contextModifier returns the multiplier for modifiers found in a window
// around position. Weakeners take precedence over intensifiers: the
// smallest weakener wins, otherwise the largest intensifier.
func contextModifier(text string, position int) float64 {
	start := position - contextWindow
	if start < 0 {
		start = 0
	}
	end := position + contextWindow
	if end > len(text) {
		end = len(text)
	}
	context := text[start:end]

	intensifier := 1.0
	weakener := 1.0
	for word, mult := range contextModifiers {
		if !strings.Contains(context, word) {
			continue
		}
		if mult > 1.0 && mult > intensifier {
			intensifier = mult
		}
		if mult < 1.0 && mult < weakener {
			weakener = mult
		}
	}

	if weakener < 1.0 {
		return weakener
	}
	return intensifier
}

// Scan finds all treatment signals in text.
//
// Negation patterns are matched first and claim their character span, so
// "declined to follow" produces one negative signal rather than a positive
// hit on the bare word "follow". Each accepted match is then adjusted by
// context modifiers found in a fixed window around it.
func (s *Scanner) Scan(text string) []model.TreatmentSignal {
	var signals []model.TreatmentSignal
	normalized := normalize(text)
	if normalized == "" {
		return nil
	}

	claimed := make(map[int]bool) // character positions claimed by negation matches

	for _, np := range negationPatterns {
		for _, loc := range np.re.FindAllStringIndex(normalized, -1) {
			for pos := loc[0]; pos < loc[1]; pos++ {
				claimed[pos] = true
			}

			modifier := contextModifier(normalized, loc[0])
			signals = append(signals, model.TreatmentSignal{
				Keyword:  normalized[loc[0]:loc[1]],
				Score:    int(float64(np.score) * modifier),
				Severity: model.SeverityNegative,
				Position: loc[0],
			})
		}
	}

	signals = append(signals, s.scanDict(normalized, negativeKeywords, model.SeverityNegative, claimed)...)
	signals = append(signals, s.scanDict(normalized, positiveKeywords, model.SeverityPositive, claimed)...)
	signals = append(signals, s.scanDict(normalized, neutralKeywords, model.SeverityNeutral, claimed)...)

	// Stable ordering regardless of dictionary iteration order
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Position != signals[j].Position {
			return signals[i].Position < signals[j].Position
		}
		return signals[i].Keyword < signals[j].Keyword
	})

	return signals
}

// scanDict matches one keyword dictionary, skipping hits inside claimed spans
func (s *Scanner) scanDict(text string, dict map[string]int, severity model.Severity, claimed map[int]bool) []model.TreatmentSignal {
	var signals []model.TreatmentSignal
	for keyword, score := range dict {
		re := keywordRegexps[keyword]
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if claimed[loc[0]] {
				continue
			}

			modifier := contextModifier(text, loc[0])
			signals = append(signals, model.TreatmentSignal{
				Keyword:  keyword,
				Score:    int(float64(score) * modifier),
				Severity: severity,
				Position: loc[0],
			})
		}
	}
	return signals
}
