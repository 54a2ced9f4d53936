package correlate

import (
	"regexp"
	"strings"
)

// Explicit bill-reference conventions seen in transcripts. Each pattern's
// first capture group is the reference text as spoken.
var billRefPatterns = []*regexp.Regexp{
	// "the Finance Bill 2024", "Finance Bill, 2024",
	// "County Allocation of Revenue Bill"
	regexp.MustCompile(`\b([A-Z][A-Za-z']*(?:\s+(?:of|and|for|[A-Z(][A-Za-z()']*))*\s+Bill(?:,?\s+\d{4})?)`),
	// "Bill No. 12 of 2023"
	regexp.MustCompile(`\b(Bill\s+No\.?\s*\d+\s+of\s+\d{4})`),
	// "H.B. 7", "S.B. 14"
	regexp.MustCompile(`\b([HS]\.?B\.?\s*\d+)\b`),
}

// ExtractBillRefs returns the normalized explicit bill references found in
// text, deduplicated, in order of first appearance.
func ExtractBillRefs(text string) []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, re := range billRefPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			ref := NormalizeBillRef(m[1])
			if ref == "" {
				continue
			}
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// NormalizeBillRef canonicalizes a spoken bill reference for catalog lookup:
// whitespace collapsed, the comma before a year dropped, "The" prefix
// removed.
func NormalizeBillRef(ref string) string {
	ref = strings.Join(strings.Fields(ref), " ")
	ref = strings.ReplaceAll(ref, ", ", " ")
	ref = strings.TrimPrefix(ref, "The ")
	return strings.TrimSpace(ref)
}
