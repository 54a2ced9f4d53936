package analyze

import (
	"context"
	"errors"
	"testing"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

// scriptedClient returns one canned response per call, in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return s.errs[idx]
	}
	if idx < len(s.responses) {
		return ai.UnmarshalFlexible(s.responses[idx], out)
	}
	return errors.New("no scripted response")
}

func (s *scriptedClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not used")
}

func (s *scriptedClient) ResetMetrics()                {}
func (s *scriptedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func statement() *hansard.Statement {
	return &hansard.Statement{
		ID:          "st-1",
		DocumentID:  "d1",
		SpeakerName: "Hon. Otieno",
		Text:        "I support the Finance Bill 2024 because it funds rural clinics",
	}
}

func contextItems() []hansard.ContextItem {
	return []hansard.ContextItem{
		{
			Ref:       hansard.SourceRef{DocumentID: "d0", Page: 2, Line: 9},
			Relevance: 0.9,
			Excerpt:   "The Finance Bill 2024 funds rural clinics across counties.",
		},
	}
}

const goodResponse = `{
	"sentiment": "support",
	"confidence": 86,
	"topics": ["Finance", "Healthcare"],
	"quality_score": 70,
	"citations": [
		{"source_ref": "d0:2:9", "quoted_text": "funds rural clinics"}
	]
}`

func TestAnalyzeHappyPath(t *testing.T) {
	client := &scriptedClient{responses: []string{goodResponse}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), contextItems())

	if outcome.Kind != OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	result := outcome.Result
	if result.Sentiment != hansard.SentimentSupport {
		t.Errorf("sentiment = %q", result.Sentiment)
	}
	if len(result.Topics) != 2 || result.Topics[0] != "Finance" {
		t.Errorf("topics = %v", result.Topics)
	}
	if len(result.Citations) != 1 {
		t.Fatalf("citations = %d", len(result.Citations))
	}
	want := hansard.SourceRef{DocumentID: "d0", Page: 2, Line: 9}
	if result.Citations[0].Ref != want {
		t.Errorf("citation ref = %+v", result.Citations[0].Ref)
	}
	if result.QualityScore <= 0 || result.QualityScore > 100 {
		t.Errorf("quality = %d", result.QualityScore)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestAnalyzeLowConfidenceDowngraded(t *testing.T) {
	response := `{"sentiment":"support","confidence":55,"topics":["Finance"],"quality_score":60,"citations":[]}`
	client := &scriptedClient{responses: []string{response}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), nil)

	if outcome.Kind != OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	if outcome.Result.Sentiment != hansard.SentimentUncertain {
		t.Errorf("sentiment = %q, want uncertain (confidence 55)", outcome.Result.Sentiment)
	}
}

func TestAnalyzeMalformedThenStrictRetrySucceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{"I think the speaker supports it.", goodResponse}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), contextItems())

	if outcome.Kind != OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	if client.calls != 2 {
		t.Fatalf("model calls = %d, want 2", client.calls)
	}
	if client.prompts[0] == client.prompts[1] {
		t.Error("retry did not use a stricter prompt")
	}
}

func TestAnalyzePersistentlyMalformed(t *testing.T) {
	client := &scriptedClient{responses: []string{"nonsense", "still nonsense"}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), nil)

	if outcome.Kind != OutcomeMalformed {
		t.Fatalf("kind = %v, want OutcomeMalformed", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Error("no error recorded")
	}
	if client.calls != 2 {
		t.Errorf("model calls = %d, want exactly 2 (one strict retry)", client.calls)
	}
}

func TestAnalyzeInvalidSentimentIsMalformed(t *testing.T) {
	bad := `{"sentiment":"enthusiastic","confidence":90,"topics":[],"quality_score":50,"citations":[]}`
	client := &scriptedClient{responses: []string{bad, bad}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), nil)

	if outcome.Kind != OutcomeMalformed {
		t.Fatalf("kind = %v, want OutcomeMalformed", outcome.Kind)
	}
}

func TestAnalyzeAPIError(t *testing.T) {
	wantErr := errors.New("rate limited")
	client := &scriptedClient{errs: []error{wantErr}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), nil)

	if outcome.Kind != OutcomeAPIError {
		t.Fatalf("kind = %v, want OutcomeAPIError", outcome.Kind)
	}
	if !errors.Is(outcome.Err, wantErr) {
		t.Errorf("err = %v", outcome.Err)
	}
}

func TestAnalyzeUnparseableCitationRefKeptForRejection(t *testing.T) {
	response := `{"sentiment":"support","confidence":90,"topics":[],"quality_score":50,
		"citations":[{"source_ref":"not-a-ref","quoted_text":"something"}]}`
	client := &scriptedClient{responses: []string{response}}
	outcome := NewAnalyzer(client, "").Analyze(context.Background(), statement(), nil)

	if outcome.Kind != OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	if len(outcome.Result.Citations) != 1 {
		t.Fatalf("citations = %d, want 1", len(outcome.Result.Citations))
	}
	if !outcome.Result.Citations[0].Ref.IsZero() {
		t.Error("unparseable ref should be zero so verification rejects the result")
	}
}
