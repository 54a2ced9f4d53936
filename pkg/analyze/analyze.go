package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

// Analyzer invokes the generative model with a statement plus its retrieved
// context and produces a structured, normalized judgment. Callers are
// expected to hand it a budget-guarded ai.Client so every invocation is
// deduplicated and counted against the spend ceiling.
type Analyzer struct {
	aiClient ai.Client
	model    string
}

// NewAnalyzer creates an Analyzer. model may be empty to use the client's
// default.
func NewAnalyzer(aiClient ai.Client, model string) *Analyzer {
	return &Analyzer{aiClient: aiClient, model: model}
}

// modelJudgment mirrors the JSON shape requested from the model.
type modelJudgment struct {
	Sentiment    string          `json:"sentiment"`
	Confidence   int             `json:"confidence"`
	Topics       []string        `json:"topics"`
	QualityScore int             `json:"quality_score"`
	Citations    []modelCitation `json:"citations"`
}

type modelCitation struct {
	SourceRef  string `json:"source_ref"`
	QuotedText string `json:"quoted_text"`
}

// Analyze produces the judgment for one substantive statement. Malformed
// model output gets exactly one retry with a stricter prompt; a second
// malformed response yields OutcomeMalformed. Endpoint failures yield
// OutcomeAPIError. The confidence floor and quality clamp are enforced here,
// never trusted to the model.
func (a *Analyzer) Analyze(
	ctx context.Context,
	st *hansard.Statement,
	contextItems []hansard.ContextItem,
) Outcome {
	contextBlock := formatContextBlock(contextItems)

	prompt := fmt.Sprintf(ai.AnalysisPrompt, contextBlock, st.SpeakerName, st.Text)
	judgment, err := a.requestJudgment(ctx, prompt)
	if err != nil && !errors.Is(err, ai.ErrMalformedOutput) {
		return Outcome{Kind: OutcomeAPIError, Err: err}
	}
	if err != nil {
		logger.Warn("[Analyze] Malformed model output, retrying with strict prompt",
			"statement", st.ID, "err", err)

		strictPrompt := fmt.Sprintf(ai.StrictAnalysisPrompt, contextBlock, st.SpeakerName, st.Text)
		judgment, err = a.requestJudgment(ctx, strictPrompt)
		if err != nil && !errors.Is(err, ai.ErrMalformedOutput) {
			return Outcome{Kind: OutcomeAPIError, Err: err}
		}
		if err != nil {
			return Outcome{
				Kind: OutcomeMalformed,
				Err:  fmt.Errorf("statement %s: model output malformed after strict retry: %w", st.ID, err),
			}
		}
	}

	result := buildResult(st, judgment, contextItems)
	return Outcome{Kind: OutcomeOK, Result: result}
}

// Reanalyze produces a fresh judgment starting directly from the strict
// prompt. Used after a citation rejection, where the relaxed prompt already
// produced an unusable answer.
func (a *Analyzer) Reanalyze(
	ctx context.Context,
	st *hansard.Statement,
	contextItems []hansard.ContextItem,
) Outcome {
	contextBlock := formatContextBlock(contextItems)

	prompt := fmt.Sprintf(ai.StrictAnalysisPrompt, contextBlock, st.SpeakerName, st.Text)
	judgment, err := a.requestJudgment(ctx, prompt)
	if err != nil && !errors.Is(err, ai.ErrMalformedOutput) {
		return Outcome{Kind: OutcomeAPIError, Err: err}
	}
	if err != nil {
		return Outcome{
			Kind: OutcomeMalformed,
			Err:  fmt.Errorf("statement %s: model output malformed on reanalysis: %w", st.ID, err),
		}
	}
	result := buildResult(st, judgment, contextItems)
	return Outcome{Kind: OutcomeOK, Result: result}
}

// requestJudgment asks the model for a schema-constrained judgment. Schema
// enforcement keeps the shape honest at the transport; the field values are
// still validated here because schemas cannot express an enum the model
// respects reliably.
func (a *Analyzer) requestJudgment(ctx context.Context, prompt string) (*modelJudgment, error) {
	opts := []ai.GenerateOption{ai.WithTemperature(0.1)}
	if a.model != "" {
		opts = append(opts, ai.WithModel(a.model))
	}
	var judgment modelJudgment
	err := a.aiClient.GenerateCompletionWithFormat(ctx, "statement_judgment",
		"Sentiment, confidence, topics, quality score and citations for one parliamentary statement.",
		prompt, &judgment, opts...)
	if err != nil {
		return nil, err
	}
	return validateJudgment(&judgment)
}

func validateJudgment(judgment *modelJudgment) (*modelJudgment, error) {
	switch hansard.Sentiment(judgment.Sentiment) {
	case hansard.SentimentSupport, hansard.SentimentOppose,
		hansard.SentimentNeutral, hansard.SentimentUncertain:
	default:
		return nil, fmt.Errorf("%w: invalid sentiment %q", ai.ErrMalformedOutput, judgment.Sentiment)
	}

	if judgment.Confidence < 0 {
		judgment.Confidence = 0
	}
	if judgment.Confidence > 100 {
		judgment.Confidence = 100
	}
	return judgment, nil
}

func buildResult(
	st *hansard.Statement,
	judgment *modelJudgment,
	contextItems []hansard.ContextItem,
) *hansard.AnalysisResult {
	citations := make([]hansard.Citation, 0, len(judgment.Citations))
	for _, mc := range judgment.Citations {
		ref, err := hansard.ParseSourceRef(mc.SourceRef)
		if err != nil {
			// A citation with an unparseable ref is kept with a zero ref so
			// the verifier rejects the whole result, per contract.
			ref = hansard.SourceRef{}
		}
		citations = append(citations, hansard.Citation{
			Ref:        ref,
			QuotedText: mc.QuotedText,
		})
	}

	result := &hansard.AnalysisResult{
		StatementID:  st.ID,
		Sentiment:    hansard.Sentiment(judgment.Sentiment),
		Confidence:   judgment.Confidence,
		Topics:       judgment.Topics,
		QualityScore: combineQuality(judgment.QualityScore, ruleQuality(st.Text, citations)),
		Citations:    citations,
		Context:      contextItems,
	}
	result.Normalize()
	return result
}

// formatContextBlock renders context items as "ref | excerpt" lines, the
// shape the analysis prompts document.
func formatContextBlock(items []hansard.ContextItem) string {
	if len(items) == 0 {
		return "(no context retrieved)"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s | %s\n", item.Ref, strings.ReplaceAll(item.Excerpt, "\n", " "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
