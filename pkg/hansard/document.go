package hansard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawDocument is an immutable source document handed to the engine by the
// text provider. Text and page boundaries are never mutated after ingestion;
// citation verification depends on their stability.
type RawDocument struct {
	ID          string
	URL         string
	ContentHash string
	Chamber     string
	SittingDate time.Time
	Pages       []Page
}

// Page is one page of source text, split into lines exactly as extracted.
type Page struct {
	Number int
	Lines  []string
}

// Text returns the full document text with pages joined by newlines.
func (d *RawDocument) Text() string {
	var b strings.Builder
	for i, page := range d.Pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(page.Lines, "\n"))
	}
	return b.String()
}

// LineCount returns the total number of lines across all pages.
func (d *RawDocument) LineCount() int {
	count := 0
	for _, page := range d.Pages {
		count += len(page.Lines)
	}
	return count
}

// SourceRef points at a line of primary-source text. It is the unit of
// traceability: every context item and citation carries one.
type SourceRef struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	Line       int    `json:"line"`
}

// String encodes the ref as "document:page:line".
func (r SourceRef) String() string {
	return fmt.Sprintf("%s:%d:%d", r.DocumentID, r.Page, r.Line)
}

// IsZero reports whether the ref is unset. Refs without a document id are
// untraceable and must never reach the analyzer.
func (r SourceRef) IsZero() bool {
	return r.DocumentID == ""
}

// ParseSourceRef decodes a "document:page:line" string.
func ParseSourceRef(s string) (SourceRef, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return SourceRef{}, fmt.Errorf("malformed source ref %q", s)
	}
	line, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return SourceRef{}, fmt.Errorf("malformed source ref %q: %w", s, err)
	}
	rest := s[:idx]
	idx = strings.LastIndex(rest, ":")
	if idx < 0 {
		return SourceRef{}, fmt.Errorf("malformed source ref %q", s)
	}
	page, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return SourceRef{}, fmt.Errorf("malformed source ref %q: %w", s, err)
	}
	doc := rest[:idx]
	if doc == "" {
		return SourceRef{}, fmt.Errorf("malformed source ref %q: empty document id", s)
	}
	return SourceRef{DocumentID: doc, Page: page, Line: line}, nil
}
