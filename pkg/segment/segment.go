package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

// ErrSegmentationFailed marks a document in which no speaker boundary could
// be found despite its length. The document is excluded from downstream
// stages; no partial output is produced.
var ErrSegmentationFailed = errors.New("segmentation failed: no speaker boundaries found")

// DefaultMinLines is the document length above which finding zero speaker
// boundaries is treated as a structural failure rather than an empty sitting.
const DefaultMinLines = 30

// Segmenter splits raw transcript text into speaker-attributed statements.
type Segmenter struct {
	minLines int
}

// New creates a Segmenter. minLines <= 0 selects DefaultMinLines.
func New(minLines int) *Segmenter {
	if minLines <= 0 {
		minLines = DefaultMinLines
	}
	return &Segmenter{minLines: minLines}
}

// statementID derives a stable id from the statement's source position, so
// reprocessing an unchanged document yields the same ids and every
// persistence path stays idempotent.
func statementID(docID string, page, line, startOffset int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%d", docID, page, line, startOffset)))
	return hex.EncodeToString(sum[:])[:20]
}

type openStatement struct {
	speaker     string
	page        int
	line        int
	startOffset int
	parts       []string
}

// Segment produces the ordered statements of a document. Statement order
// matches source order; every line of attributed text lands in exactly one
// statement. Interjections nested inside a turn become separate statements
// attached to the interrupting speaker while the surrounding turn continues.
func (s *Segmenter) Segment(doc *hansard.RawDocument) ([]hansard.Statement, error) {
	var (
		statements []hansard.Statement
		current    *openStatement
		offset     int
	)

	flush := func(endOffset int) {
		if current == nil {
			return
		}
		text := strings.TrimSpace(strings.Join(current.parts, "\n"))
		if text != "" {
			statements = append(statements, hansard.Statement{
				ID:          statementID(doc.ID, current.page, current.line, current.startOffset),
				DocumentID:  doc.ID,
				SpeakerName: current.speaker,
				Text:        text,
				Page:        current.page,
				Line:        current.line,
				StartOffset: current.startOffset,
				EndOffset:   endOffset,
			})
		}
		current = nil
	}

	for _, page := range doc.Pages {
		for lineIdx, line := range page.Lines {
			lineStart := offset
			offset += len(line) + 1 // joined by newline in doc.Text()

			trimmed := strings.TrimSpace(line)

			// An interjection is its own statement whether or not a turn is
			// open; one arriving before any turn stands alone.
			if speaker, text, ok := matchInterjection(trimmed); ok {
				statements = append(statements, hansard.Statement{
					ID:          statementID(doc.ID, page.Number, lineIdx+1, lineStart),
					DocumentID:  doc.ID,
					SpeakerName: speaker,
					Text:        text,
					Page:        page.Number,
					Line:        lineIdx + 1,
					StartOffset: lineStart,
					EndOffset:   lineStart + len(line),
				})
				continue
			}

			if speaker, rest, ok := matchSpeaker(trimmed); ok {
				flush(lineStart)
				current = &openStatement{
					speaker:     speaker,
					page:        page.Number,
					line:        lineIdx + 1,
					startOffset: lineStart,
				}
				if rest != "" {
					current.parts = append(current.parts, rest)
				}
				continue
			}

			if current != nil && trimmed != "" {
				current.parts = append(current.parts, trimmed)
			}
		}
	}

	flush(offset)

	if len(statements) == 0 && doc.LineCount() >= s.minLines {
		logger.Warn("[Segment] No speaker boundaries found", "document", doc.ID, "lines", doc.LineCount())
		return nil, fmt.Errorf("document %s: %w", doc.ID, ErrSegmentationFailed)
	}

	logger.Debug("[Segment] Document segmented", "document", doc.ID, "statements", len(statements))
	return statements, nil
}
