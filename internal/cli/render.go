package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/mlawson/shepard/internal/model"
)

// renderTree writes a human-readable summary of an analysis tree
func renderTree(w io.Writer, tree *model.AnalysisTree) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Precedent risk for opinion %d\n", tree.RootID)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Risk:        %.1f / 100 (%s)\n", tree.Risk.Score, tree.Risk.Level)
	fmt.Fprintf(w, "Status:      %s (depth %d of %d)\n", tree.Status, tree.CurrentDepth, tree.MaxDepth)
	fmt.Fprintf(w, "Citations:   %d analyzed", tree.TotalCitations)
	if tree.Truncated {
		fmt.Fprintf(w, " (truncated at the per-level cap)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Cache:       %d hits, %d misses\n", tree.CacheHits, tree.CacheMisses)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Breakdown:   %d good, %d questionable, %d overruled, %d superseded, %d uncertain\n",
		tree.GoodCount, tree.QuestionableCount, tree.OverruledCount, tree.SupersededCount, tree.UncertainCount)

	if len(tree.Risk.Factors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Risk factors:")
		for _, f := range tree.Risk.Factors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	if len(tree.HighRisk) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "High-risk citations:")
		for _, c := range tree.HighRisk {
			marker := ""
			if c.HasHighRiskDescendant {
				marker = " [deep risk]"
			}
			fmt.Fprintf(w, "  opinion %-10d depth %d  %-12s risk %5.1f%s\n",
				c.OpinionID, c.Depth, c.Assessment, c.RiskScore, marker)
		}
	}

	if verbose {
		renderLevels(w, tree)
	}
}

// renderLevels prints every analyzed citation by depth
func renderLevels(w io.Writer, tree *model.AnalysisTree) {
	depths := make([]int, 0, len(tree.CitationsByDepth))
	for d := range tree.CitationsByDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, d := range depths {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Depth %d:\n", d)
		for _, c := range tree.CitationsByDepth[d] {
			cached := " "
			if c.FromCache {
				cached = "*"
			}
			fmt.Fprintf(w, "  %s opinion %-10d %-12s risk %5.1f conf %.2f\n",
				cached, c.OpinionID, c.Assessment, c.RiskScore, c.Confidence)
		}
	}
}

// renderTreatment writes a treatment summary for one opinion
func renderTreatment(w io.Writer, s *model.TreatmentSummary) {
	fmt.Fprintf(w, "Treatment of opinion %d: %s (%s, confidence %.2f)\n",
		s.OpinionID, s.Type, s.Severity, s.Confidence)
	fmt.Fprintf(w, "Mentions: %d negative, %d positive, %d neutral of %d\n",
		s.NegativeCount, s.PositiveCount, s.NeutralCount, s.Total)

	if len(s.Significant) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Significant treatments:")
		for _, st := range s.Significant {
			fmt.Fprintf(w, "  %-12s (%s, %.2f) by opinion %d: %q\n",
				st.Type, st.Severity, st.Confidence, st.DescribingID, st.Excerpt)
		}
	}
}
