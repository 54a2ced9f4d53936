package retrieve

import (
	"context"
	"strings"
	"testing"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

type fakeAIClient struct {
	embedCalls int
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return nil
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.embedCalls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeAIClient) ResetMetrics()                {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

type fakeIndex struct {
	results []SearchResult
	gotK    int
}

func (f *fakeIndex) Query(ctx context.Context, embedding []float32, filters Filters, k int) ([]SearchResult, error) {
	f.gotK = k
	return f.results, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, ref hansard.SourceRef, embedding []float32, excerpt string) error {
	return nil
}

func ref(doc string, page, line int) hansard.SourceRef {
	return hansard.SourceRef{DocumentID: doc, Page: page, Line: line}
}

func TestRetrieveDedupesAndRanks(t *testing.T) {
	index := &fakeIndex{results: []SearchResult{
		{Ref: ref("d1", 1, 1), Score: 0.7, Excerpt: "first"},
		{Ref: ref("d1", 1, 1), Score: 0.65, Excerpt: "duplicate of first"},
		{Ref: ref("d2", 3, 8), Score: 0.9, Excerpt: "best"},
		{Ref: ref("d1", 2, 4), Score: 0.5, Excerpt: "third"},
	}}
	r, err := NewRetriever(NewRetrieverParams{AIClient: &fakeAIClient{}, Index: index, TopK: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Retrieve(context.Background(), &hansard.Statement{ID: "st-1", Text: "the bill"}, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("items = %d, want 3 (dupe dropped)", len(got))
	}
	if got[0].Excerpt != "best" {
		t.Errorf("first item = %q, want highest relevance", got[0].Excerpt)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Relevance > got[i-1].Relevance {
			t.Errorf("items not ranked: %f after %f", got[i].Relevance, got[i-1].Relevance)
		}
	}
	if index.gotK != 20 {
		t.Errorf("query k = %d, want 2*topK", index.gotK)
	}
}

func TestRetrieveDropsUntraceableItems(t *testing.T) {
	index := &fakeIndex{results: []SearchResult{
		{Ref: hansard.SourceRef{}, Score: 0.95, Excerpt: "no ref, must not pass"},
		{Ref: ref("d1", 1, 1), Score: 0.6, Excerpt: "traceable"},
	}}
	r, err := NewRetriever(NewRetrieverParams{AIClient: &fakeAIClient{}, Index: index})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Retrieve(context.Background(), &hansard.Statement{ID: "st-2", Text: "text"}, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("items = %d, want 1", len(got))
	}
	if got[0].Ref.IsZero() {
		t.Error("returned item has no source ref")
	}
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	var results []SearchResult
	for i := 0; i < 30; i++ {
		results = append(results, SearchResult{
			Ref:     ref("d1", 1, i+1),
			Score:   1.0 - float64(i)*0.01,
			Excerpt: "excerpt",
		})
	}
	index := &fakeIndex{results: results}
	r, err := NewRetriever(NewRetrieverParams{AIClient: &fakeAIClient{}, Index: index, TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Retrieve(context.Background(), &hansard.Statement{ID: "st-3", Text: "text"}, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("items = %d, want 5", len(got))
	}
}

func TestRetrieveTokenBudgetDropsLowestRelevanceFirst(t *testing.T) {
	long := strings.Repeat("parliamentary allocation oversight committee report ", 40)
	index := &fakeIndex{results: []SearchResult{
		{Ref: ref("d1", 1, 1), Score: 0.9, Excerpt: "short high relevance excerpt"},
		{Ref: ref("d1", 1, 2), Score: 0.8, Excerpt: "another short excerpt"},
		{Ref: ref("d1", 1, 3), Score: 0.7, Excerpt: long},
		{Ref: ref("d1", 1, 4), Score: 0.6, Excerpt: "would fit but is lower relevance"},
	}}
	r, err := NewRetriever(NewRetrieverParams{AIClient: &fakeAIClient{}, Index: index, TokenBudget: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Retrieve(context.Background(), &hansard.Statement{ID: "st-4", Text: "text"}, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("items = %d, want 2 (budget cuts at the long excerpt)", len(got))
	}
	if got[0].Relevance != 0.9 || got[1].Relevance != 0.8 {
		t.Errorf("kept wrong items: %+v", got)
	}
}
