package hansard

// Sentiment is the analyzed stance of a statement toward its topic.
type Sentiment string

const (
	SentimentSupport   Sentiment = "support"
	SentimentOppose    Sentiment = "oppose"
	SentimentNeutral   Sentiment = "neutral"
	SentimentUncertain Sentiment = "uncertain"
)

// UncertainConfidenceFloor is the model confidence below which a sentiment is
// downgraded to uncertain, regardless of the model's raw label.
const UncertainConfidenceFloor = 70

// Citation points at primary-source text plus the exact quoted span used to
// justify an analytical claim. QuotedText must be a verifiable substring
// (exact or fuzzy above threshold) of the text at Ref before the containing
// result may be persisted.
type Citation struct {
	Ref        SourceRef `json:"source_ref"`
	QuotedText string    `json:"quoted_text"`
}

// ContextItem is one retrieved piece of grounding context. Items are
// ephemeral: they exist for a single analysis request and survive only in the
// result's audit trail.
type ContextItem struct {
	Ref       SourceRef `json:"source_ref"`
	Relevance float64   `json:"relevance"`
	Excerpt   string    `json:"excerpt"`
}

// AnalysisResult is the verified structured judgment for one statement. A
// result exists only if every citation passed verification; otherwise the
// statement is left unanalyzed and queued for retry or review.
type AnalysisResult struct {
	StatementID  string        `json:"statement_id"`
	Sentiment    Sentiment     `json:"sentiment"`
	Confidence   int           `json:"confidence"`
	Topics       []string      `json:"topics"`
	QualityScore int           `json:"quality_score"`
	Citations    []Citation    `json:"citations"`
	Context      []ContextItem `json:"context,omitempty"` // audit trail
}

// Normalize enforces the result invariants: sentiments below the confidence
// floor become uncertain, and the quality score is clamped to [0,100]. The
// model is never trusted to apply these itself.
func (r *AnalysisResult) Normalize() {
	if r.Confidence < UncertainConfidenceFloor {
		r.Sentiment = SentimentUncertain
	}
	if r.QualityScore < 0 {
		r.QualityScore = 0
	}
	if r.QualityScore > 100 {
		r.QualityScore = 100
	}
}
