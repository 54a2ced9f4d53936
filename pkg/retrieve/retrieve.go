package retrieve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

// Filters scope a vector query by statement metadata.
type Filters struct {
	Chamber string
	From    time.Time
	To      time.Time
}

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	Ref     hansard.SourceRef
	Score   float64
	Excerpt string
}

// VectorIndex is the semantic search surface the retriever depends on.
// Scores are cosine similarities in [0,1], highest first.
type VectorIndex interface {
	Query(ctx context.Context, embedding []float32, filters Filters, k int) ([]SearchResult, error)
	Upsert(ctx context.Context, ref hansard.SourceRef, embedding []float32, excerpt string) error
}

// DefaultTopK is the default number of context items per statement.
const DefaultTopK = 10

const encoderName = "o200k_base"

// Retriever assembles a bounded, ranked context set for a statement by
// semantic search over the vector index.
type Retriever struct {
	aiClient    ai.Client
	index       VectorIndex
	topK        int
	tokenBudget int
	encoder     *tiktoken.Tiktoken
}

// NewRetrieverParams configures a Retriever.
type NewRetrieverParams struct {
	AIClient    ai.Client
	Index       VectorIndex
	TopK        int
	TokenBudget int
}

// NewRetriever creates a Retriever. TopK <= 0 selects DefaultTopK; a
// TokenBudget <= 0 disables budget truncation.
func NewRetriever(params NewRetrieverParams) (*Retriever, error) {
	var enc *tiktoken.Tiktoken
	if params.TokenBudget > 0 {
		var err error
		enc, err = tiktoken.GetEncoding(encoderName)
		if err != nil {
			return nil, fmt.Errorf("could not load token encoder: %w", err)
		}
	}
	topK := params.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		aiClient:    params.AIClient,
		index:       params.Index,
		topK:        topK,
		tokenBudget: params.TokenBudget,
		encoder:     enc,
	}, nil
}

// Retrieve returns the top-K context items for a statement, deduplicated by
// source identity and fitted to the token budget: when ranked results exceed
// the budget, the lowest-relevance items are dropped first. Every returned
// item carries a traceable source ref; untraceable hits are discarded before
// ranking.
func (r *Retriever) Retrieve(
	ctx context.Context,
	st *hansard.Statement,
	filters Filters,
) ([]hansard.ContextItem, error) {
	embedding, err := r.aiClient.GenerateEmbedding(ctx, []byte(st.Text))
	if err != nil {
		return nil, fmt.Errorf("could not embed statement %s: %w", st.ID, err)
	}

	// Over-fetch so dedupe and ref filtering still leave K candidates.
	results, err := r.index.Query(ctx, embedding, filters, r.topK*2)
	if err != nil {
		return nil, fmt.Errorf("vector query for statement %s: %w", st.ID, err)
	}

	seen := make(map[string]bool, len(results))
	items := make([]hansard.ContextItem, 0, r.topK)
	dropped := 0
	for _, res := range results {
		if res.Ref.IsZero() {
			dropped++
			continue
		}
		key := res.Ref.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, hansard.ContextItem{
			Ref:       res.Ref,
			Relevance: res.Score,
			Excerpt:   res.Excerpt,
		})
	}
	if dropped > 0 {
		logger.Warn("[Retrieve] Discarded untraceable context items", "statement", st.ID, "dropped", dropped)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
	if len(items) > r.topK {
		items = items[:r.topK]
	}

	items = r.fitTokenBudget(items)

	logger.Debug("[Retrieve] Context assembled", "statement", st.ID, "items", len(items))
	return items, nil
}

// fitTokenBudget keeps the highest-relevance prefix whose excerpts fit the
// token budget. Items is assumed sorted by relevance, highest first.
func (r *Retriever) fitTokenBudget(items []hansard.ContextItem) []hansard.ContextItem {
	if r.tokenBudget <= 0 {
		return items
	}
	used := 0
	for i, item := range items {
		tokens := len(r.encoder.Encode(item.Excerpt, nil, nil))
		if used+tokens > r.tokenBudget {
			return items[:i]
		}
		used += tokens
	}
	return items
}
