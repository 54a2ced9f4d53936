package classify

import (
	"regexp"
	"strings"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

// DefaultMinWords is the word count below which a statement can qualify as
// filler. Longer statements are always substantive.
const DefaultMinWords = 8

// Reason codes recorded on a classification for manual review.
const (
	ReasonShort      = "below_min_words"
	ReasonProcedural = "procedural_phrase"
	ReasonSubstantive = "no_filler_match"
)

// Procedural and acknowledgment phrases that mark a short statement as
// filler. Matching is case-insensitive against the whole statement.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^thank you[,.]?\s`),
	regexp.MustCompile(`(?i)thank you[,.]?\s*(mr|madam|hon)?\.?\s*(speaker|chair)?[.!]?$`),
	regexp.MustCompile(`(?i)^(much )?obliged[,.]?`),
	regexp.MustCompile(`(?i)^order[,!. ]`),
	regexp.MustCompile(`(?i)^(i\s+)?so\s+(moved?|second(ed)?)[.!]?$`),
	regexp.MustCompile(`(?i)^i\s+beg\s+to\s+(move|second|support|reply)[.!]?$`),
	regexp.MustCompile(`(?i)^point\s+of\s+order\s+noted[.!]?$`),
	regexp.MustCompile(`(?i)^(yes|no|aye|nay)[,.!]?\s*(mr|madam)?\.?\s*(speaker)?[.!]?$`),
	regexp.MustCompile(`(?i)^good\s+(morning|afternoon|evening)`),
	regexp.MustCompile(`(?i)^(the\s+)?(motion|question|amendment)\s+is\s+(carried|agreed|deferred|withdrawn)`),
	regexp.MustCompile(`(?i)^next\s+order[.!]?$`),
	regexp.MustCompile(`(?i)^(proceed|carry\s+on)[,.!]?`),
	regexp.MustCompile(`(?i)standing\s+order\s+(no\.?\s*)?\d+[.!]?$`),
}

// Classify is a pure function over statement text: it labels a statement
// filler when the word count is below the minimum AND a procedural phrase
// pattern matches; otherwise substantive. Deterministic, idempotent,
// side-effect-free. This gate keeps low-value text away from the expensive
// analyzer.
func Classify(st *hansard.Statement) hansard.Classification {
	return classifyText(st.ID, st.Text, DefaultMinWords)
}

// ClassifyWithMinWords is Classify with a caller-chosen word threshold.
func ClassifyWithMinWords(st *hansard.Statement, minWords int) hansard.Classification {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return classifyText(st.ID, st.Text, minWords)
}

func classifyText(statementID, text string, minWords int) hansard.Classification {
	words := len(strings.Fields(text))
	if words < minWords {
		normalized := strings.TrimSpace(text)
		for _, re := range fillerPatterns {
			if re.MatchString(normalized) {
				return hansard.Classification{
					StatementID: statementID,
					Label:       hansard.LabelFiller,
					ReasonCodes: []string{ReasonShort, ReasonProcedural},
				}
			}
		}
	}
	return hansard.Classification{
		StatementID: statementID,
		Label:       hansard.LabelSubstantive,
		ReasonCodes: []string{ReasonSubstantive},
	}
}
