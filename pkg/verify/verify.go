package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

// ErrVerificationFailed marks an analysis result rejected because a citation
// could not be substantiated against primary-source text.
var ErrVerificationFailed = errors.New("citation verification failed")

// DefaultFuzzyThreshold is the minimum normalized edit-distance similarity
// for a fuzzy citation match.
const DefaultFuzzyThreshold = 0.9

// DefaultMarginLines is how many lines around the cited line are fetched.
const DefaultMarginLines = 2

// SourceWindower fetches the primary-source text around a ref. Offsets must
// be stable across calls.
type SourceWindower interface {
	Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error)
}

// RejectionError carries the audit evidence for a rejected result: the first
// citation that failed and the best fuzzy score it achieved.
type RejectionError struct {
	StatementID string
	Citation    hansard.Citation
	BestScore   float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf(
		"statement %s: citation %q at %s unverifiable (best fuzzy score %.3f)",
		e.StatementID, e.Citation.QuotedText, e.Citation.Ref, e.BestScore,
	)
}

func (e *RejectionError) Unwrap() error {
	return ErrVerificationFailed
}

// Verifier checks every citation in an analysis result against primary-source
// text. Verification is exhaustive and synchronous: a result with any
// unverifiable citation is rejected as a whole, because the surrounding
// judgment is not separable from its justification.
type Verifier struct {
	source      SourceWindower
	threshold   float64
	marginLines int
}

// NewVerifierParams configures a Verifier.
type NewVerifierParams struct {
	Source         SourceWindower
	FuzzyThreshold float64
	MarginLines    int
}

// NewVerifier creates a Verifier. A zero threshold selects
// DefaultFuzzyThreshold; a negative margin selects DefaultMarginLines.
func NewVerifier(params NewVerifierParams) *Verifier {
	threshold := params.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	margin := params.MarginLines
	if margin < 0 {
		margin = DefaultMarginLines
	}
	return &Verifier{
		source:      params.Source,
		threshold:   threshold,
		marginLines: margin,
	}
}

// Verify checks all citations of the result. It returns nil only when 100%
// of citations pass. A *RejectionError (wrapping ErrVerificationFailed) means
// the result must not be persisted; any other error is operational (source
// fetch failed) and the caller may retry.
func (v *Verifier) Verify(ctx context.Context, result *hansard.AnalysisResult) error {
	for _, citation := range result.Citations {
		if citation.Ref.IsZero() {
			rejection := &RejectionError{StatementID: result.StatementID, Citation: citation}
			logRejection(rejection)
			return rejection
		}

		window, err := v.source.Window(ctx, citation.Ref, v.marginLines)
		if err != nil {
			return fmt.Errorf("could not fetch source window at %s: %w", citation.Ref, err)
		}

		score, ok := v.matchQuote(citation.QuotedText, window)
		if !ok {
			rejection := &RejectionError{
				StatementID: result.StatementID,
				Citation:    citation,
				BestScore:   score,
			}
			logRejection(rejection)
			return rejection
		}
	}
	return nil
}

// matchQuote attempts an exact substring match, then a fuzzy match against
// substrings of comparable length. It returns the best score found and
// whether the quote is accepted.
func (v *Verifier) matchQuote(quote, window string) (float64, bool) {
	normQuote := util.CollapseWhitespace(quote)
	normWindow := util.CollapseWhitespace(window)
	if normQuote == "" {
		return 0, false
	}

	if strings.Contains(normWindow, normQuote) {
		return 1, true
	}

	best := bestWindowSimilarity(normQuote, normWindow)
	return best, best >= v.threshold
}

func logRejection(rejection *RejectionError) {
	logger.Warn("[Verify] Citation rejected",
		"statement", rejection.StatementID,
		"ref", rejection.Citation.Ref.String(),
		"quoted_text", rejection.Citation.QuotedText,
		"best_score", rejection.BestScore,
	)
}
