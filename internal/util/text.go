package util

import "strings"

// SanitizeText strips invalid UTF-8 sequences and NUL bytes so values can be
// stored in Postgres text columns.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// CollapseWhitespace replaces runs of whitespace (including newlines) with a
// single space and trims the result.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
