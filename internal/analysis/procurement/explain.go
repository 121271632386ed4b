package procurement

import (
	"fmt"
	"strings"
)

const maxRecommendations = 5

// Disclaimer accompanies every procurement report.
const Disclaimer = "This analysis identifies patterns that may warrant further review. It does not constitute evidence of corruption."

// FallbackExplanation is the templated summary used when no generated
// explanation is available.
func FallbackExplanation(flags []RedFlag, score int) string {
	switch LevelFor(score) {
	case LevelHigh:
		return fmt.Sprintf("This document shows %d significant red flags (%s) indicating HIGH corruption risk. "+
			"The patterns suggest potential irregularities that warrant detailed investigation by anti-corruption authorities.",
			len(flags), flagNames(flags, 3))
	case LevelMedium:
		return fmt.Sprintf("This document has %d concerning patterns (%s) indicating MEDIUM corruption risk. "+
			"While not necessarily corrupt, these patterns deserve enhanced monitoring and additional review.",
			len(flags), flagNames(flags, 2))
	}
	if len(flags) > 0 {
		return fmt.Sprintf("This document shows minor compliance issues (%s) but appears to follow standard procurement processes. "+
			"The corruption risk is LOW with routine monitoring recommended.", flagNames(flags, 1))
	}
	return "This document appears to follow standard procurement processes with no significant red flags detected. The corruption risk is LOW."
}

func flagNames(flags []RedFlag, n int) string {
	names := make([]string, 0, n)
	for i := 0; i < len(flags) && i < n; i++ {
		names = append(names, strings.ReplaceAll(flags[i].Type, "_", " "))
	}
	return strings.Join(names, ", ")
}

// Recommendations lists at most five follow-up actions for a score and its
// flags.
func Recommendations(flags []RedFlag, score int) []string {
	var recs []string
	switch {
	case score >= 70:
		recs = append(recs,
			"Recommend detailed investigation by anti-corruption authorities",
			"Review all contracts with this vendor in the past 2 years",
			"Cross-check with other ministries for similar patterns",
		)
	case score >= 40:
		recs = append(recs,
			"Flag for additional review by procurement oversight",
			"Monitor future contracts with this vendor",
			"Ensure all documentation is complete and accessible",
		)
	default:
		recs = append(recs,
			"Document appears to follow standard processes",
			"Continue routine monitoring as part of transparency measures",
		)
	}

	if hasFlag(flags, FlagVendorConcentration) {
		recs = append(recs, "Review vendor selection criteria and bidding processes")
	}
	if hasFlag(flags, FlagSuspiciousTerminology) {
		recs = append(recs, "Ensure emergency procurement follows proper justification protocols")
	}
	if hasFlag(flags, FlagMissingCriticalInfo, FlagIncompleteDocumentation) {
		recs = append(recs, "Implement stronger documentation requirements")
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func hasFlag(flags []RedFlag, types ...string) bool {
	for _, f := range flags {
		for _, t := range types {
			if f.Type == t {
				return true
			}
		}
	}
	return false
}
