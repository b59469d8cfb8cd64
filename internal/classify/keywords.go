package classify

import "regexp"

// Keyword dictionaries with weighted scores. Higher scores = stronger signal.

var negativeKeywords = map[string]int{
	"overruled":    10,
	"overruling":   10,
	"overrule":     10,
	"abrogated":    10,
	"abrogating":   10,
	"reversed":     9,
	"reversing":    9,
	"vacated":      9,
	"vacating":     9,
	"superseded":   9,
	"disapproved":  8,
	"disapproving": 8,
	"rejected":     7,
	"rejecting":    7,
	"questioned":   6,
	"questioning":  6,
	"doubted":      6,
	"criticized":   5,
	"criticizing":  5,
	"limited":      4,
	"limiting":     4,
	"narrowed":     4,
	"narrowing":    4,
}

var positiveKeywords = map[string]int{
	"affirmed":            8,
	"affirming":           8,
	"followed":            7,
	"following":           7,
	"adopted":             7,
	"adopting":            7,
	"approved":            6,
	"approving":           6,
	"applied":             5,
	"applying":            5,
	"cited with approval": 8,
	"endorsed":            6,
	"endorsing":           6,
	"agreed":              5,
	"agreeing":            5,
}

var neutralKeywords = map[string]int{
	"distinguished":  5,
	"distinguishing": 5,
	"explained":      3,
	"explaining":     3,
	"discussed":      2,
	"discussing":     2,
	"cited":          1,
	"citing":         1,
	"mentioned":      1,
	"mentioning":     1,
	"referenced":     1,
	"referencing":    1,
}

// negationPattern reverses a positive keyword into a negative signal.
// The matched span is claimed so the wrapped keyword is not double counted.
type negationPattern struct {
	re    *regexp.Regexp
	score int
}

var negationPatterns = []negationPattern{
	// Strong negations
	{regexp.MustCompile(`declined\s+to\s+follow`), 8},
	{regexp.MustCompile(`refused\s+to\s+follow`), 8},
	{regexp.MustCompile(`declined\s+to\s+adopt`), 8},
	{regexp.MustCompile(`refused\s+to\s+adopt`), 8},
	{regexp.MustCompile(`declined\s+to\s+apply`), 7},
	{regexp.MustCompile(`refused\s+to\s+apply`), 7},
	{regexp.MustCompile(`not\s+followed`), 6},
	{regexp.MustCompile(`no\s+longer\s+followed`), 9},
	{regexp.MustCompile(`expressly\s+rejected`), 9},

	// Conditional negations
	{regexp.MustCompile(`declined\s+to\s+extend`), 5},
	{regexp.MustCompile(`refused\s+to\s+extend`), 5},

	// Implicit negations through distinguishing
	{regexp.MustCompile(`distinguished\s+and\s+rejected`), 7},
	{regexp.MustCompile(`distinguished\s+.*?\s+declined`), 6},
}

// Context modifiers: words near a keyword that strengthen or weaken it.
// Values above 1.0 intensify, below 1.0 weaken.
var contextModifiers = map[string]float64{
	"expressly":     1.3,
	"explicitly":    1.3,
	"clearly":       1.2,
	"unequivocally": 1.4,
	"categorically": 1.4,
	"firmly":        1.2,
	"strongly":      1.2,
	"completely":    1.3,

	"implicitly":  0.8,
	"arguably":    0.7,
	"possibly":    0.6,
	"potentially": 0.7,
	"might":       0.6,
	"could":       0.7,
	"seems":       0.7,
	"appears":     0.8,
}

// contextWindow is the number of characters scanned on each side of a
// keyword when looking for modifiers
const contextWindow = 50

// keywordRegexps holds compiled word-boundary patterns, built once
var keywordRegexps = buildKeywordRegexps()

func buildKeywordRegexps() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp,
		len(negativeKeywords)+len(positiveKeywords)+len(neutralKeywords))
	for _, dict := range []map[string]int{negativeKeywords, positiveKeywords, neutralKeywords} {
		for kw := range dict {
			if _, ok := res[kw]; !ok {
				res[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return res
}
