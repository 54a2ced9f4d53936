package analyze

import (
	"regexp"
	"strings"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

// Quality combines a rule-based score with the model's holistic score by a
// fixed weighted average. The weights are documented here, not learned:
// the model's view dominates slightly, the rules keep it honest.
const (
	modelQualityWeight = 0.55
	ruleQualityWeight  = 0.45
)

// Rule sub-score caps. They sum to 100.
const (
	lengthScoreCap      = 40
	specificityScoreCap = 40
	evidenceScoreCap    = 20
)

// fullLengthWords is the word count at which the length sub-score maxes out.
const fullLengthWords = 150

var (
	numberMarker = regexp.MustCompile(`\d`)
	billMarker   = regexp.MustCompile(`(?i)\b(bill|act|motion|amendment|clause|schedule|standing order)\b`)
	dateMarker   = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|\d{4})\b`)
)

// ruleQuality scores a statement 0-100 from deterministic signals: length,
// specificity markers (numbers, legislative terms, dates), and the presence
// of cited evidence.
func ruleQuality(statementText string, citations []hansard.Citation) int {
	score := 0

	words := len(strings.Fields(statementText))
	if words > fullLengthWords {
		words = fullLengthWords
	}
	score += words * lengthScoreCap / fullLengthWords

	specificity := 0
	if numberMarker.MatchString(statementText) {
		specificity += 14
	}
	if billMarker.MatchString(statementText) {
		specificity += 14
	}
	if dateMarker.MatchString(statementText) {
		specificity += 12
	}
	if specificity > specificityScoreCap {
		specificity = specificityScoreCap
	}
	score += specificity

	if len(citations) > 0 {
		score += evidenceScoreCap
	}

	if score > 100 {
		score = 100
	}
	return score
}

// combineQuality merges the model's holistic score with the rule-based score
// by the fixed weighted average, clamped to [0,100].
func combineQuality(modelScore int, ruleScore int) int {
	combined := float64(modelScore)*modelQualityWeight + float64(ruleScore)*ruleQualityWeight
	score := int(combined + 0.5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
