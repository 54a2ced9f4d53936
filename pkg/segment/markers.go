package segment

import "regexp"

// Speaker boundaries follow the transcript conventions: an honorific or an
// office title at the start of a line, followed by a colon. The capture group
// is the speaker designation; anything after the colon is the first line of
// the turn.
var speakerMarkers = []*regexp.Regexp{
	// Hon. A. B. Otieno:  /  Mr. Speaker:  /  Dr. Nyamweya:
	regexp.MustCompile(`^((?:Hon|Mr|Mrs|Ms|Dr|Prof|Eng|Sen|Bishop|Capt|Maj|Gen)\.\s+[A-Z][^:]{0,80}?)\s*:\s*(.*)$`),
	// Madam Speaker: / Madam Temporary Speaker:
	regexp.MustCompile(`^(Madam\s+[A-Z][^:]{0,60}?)\s*:\s*(.*)$`),
	// The Speaker: / The Deputy Speaker: / The Minister for Health: /
	// The Attorney-General: / The Leader of the Majority Party:
	regexp.MustCompile(`^(The\s+[A-Z][A-Za-z\- ]{0,70}?(?:\s+(?:for|of)\s+[A-Z][^:]{0,60}?)?)\s*:\s*(.*)$`),
}

// Interjections appear parenthesized inside another speaker's turn, e.g.
// "(Hon. Wanjiku: On a point of order!)". They are kept as separate
// statements attached to the interrupting speaker.
var interjectionMarker = regexp.MustCompile(`^\(\s*((?:Hon|Mr|Mrs|Ms|Dr|Prof|Eng|Sen)\.\s+[A-Z][^:)]{0,80}?)\s*:\s*(.+?)\s*\)\s*$`)

// matchSpeaker returns the speaker designation and the remainder of the line
// when the line opens a new turn.
func matchSpeaker(line string) (speaker, rest string, ok bool) {
	for _, re := range speakerMarkers {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// matchInterjection returns the interrupting speaker and their text when the
// line is a parenthesized interjection.
func matchInterjection(line string) (speaker, text string, ok bool) {
	if m := interjectionMarker.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}
