package correlate

import (
	"context"
	"fmt"
	"math"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

const (
	DefaultExplicitWeight     = 0.7
	DefaultSemanticWeight     = 0.3
	DefaultEdgeScoreThreshold = 0.5

	// A semantic match with no explicit reference only becomes an edge on
	// its own when the raw similarity is at least this strong.
	strongSemanticFloor = 0.85

	semanticCandidates = 5
)

// BillMatch is a bill surfaced by similarity search together with its raw
// cosine similarity to the query embedding.
type BillMatch struct {
	Bill       hansard.Bill
	Similarity float64
}

// BillCatalog resolves spoken bill references and finds bills similar to an
// embedded statement.
type BillCatalog interface {
	FindByReference(ctx context.Context, ref string) (*hansard.Bill, error)
	SimilarBills(ctx context.Context, embedding []float32, k int) ([]BillMatch, error)
}

// EdgeWriter persists correlation edges. UpsertEdge must replace any existing
// edge for the same (entity, bill) pair rather than add a second one.
type EdgeWriter interface {
	UpsertEdge(ctx context.Context, edge hansard.CorrelationEdge) error
}

// Correlator links analyzed statements, votes, and questions to bills using
// explicit references as the primary signal and embedding similarity as a
// secondary one.
type Correlator struct {
	aiClient       ai.Client
	catalog        BillCatalog
	edges          EdgeWriter
	explicitWeight float64
	semanticWeight float64
	threshold      float64
}

type Params struct {
	AIClient       ai.Client
	Catalog        BillCatalog
	Edges          EdgeWriter
	ExplicitWeight float64
	SemanticWeight float64
	Threshold      float64
}

func NewCorrelator(p Params) *Correlator {
	if p.ExplicitWeight <= 0 {
		p.ExplicitWeight = DefaultExplicitWeight
	}
	if p.SemanticWeight <= 0 {
		p.SemanticWeight = DefaultSemanticWeight
	}
	if p.Threshold <= 0 {
		p.Threshold = DefaultEdgeScoreThreshold
	}
	return &Correlator{
		aiClient:       p.AIClient,
		catalog:        p.Catalog,
		edges:          p.Edges,
		explicitWeight: p.ExplicitWeight,
		semanticWeight: p.SemanticWeight,
		threshold:      p.Threshold,
	}
}

// Correlate scores and upserts bill edges for one entity. Rerunning it for
// the same entity updates the existing edges in place.
func (c *Correlator) Correlate(ctx context.Context, entityID string, kind hansard.EntityKind, text string) ([]hansard.CorrelationEdge, error) {
	candidates, err := c.collect(ctx, entityID, kind, text)
	if err != nil {
		return nil, err
	}

	var kept []hansard.CorrelationEdge
	for _, edge := range candidates {
		if edge.Relevance < c.threshold {
			logger.Debug("correlation candidate below threshold",
				"entity", entityID, "bill", edge.BillID, "score", edge.Relevance)
			continue
		}
		if err := c.edges.UpsertEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("upsert edge %s -> %s: %w", entityID, edge.BillID, err)
		}
		kept = append(kept, edge)
	}
	return kept, nil
}

func (c *Correlator) collect(ctx context.Context, entityID string, kind hansard.EntityKind, text string) ([]hansard.CorrelationEdge, error) {
	byBill := make(map[string]*hansard.CorrelationEdge)
	var order []string

	for _, ref := range ExtractBillRefs(text) {
		bill, err := c.catalog.FindByReference(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve reference %q: %w", ref, err)
		}
		if bill == nil {
			logger.Debug("unresolved bill reference", "entity", entityID, "ref", ref)
			continue
		}
		if _, ok := byBill[bill.ID]; ok {
			continue
		}
		byBill[bill.ID] = &hansard.CorrelationEdge{
			EntityID:   entityID,
			EntityKind: kind,
			BillID:     bill.ID,
			Relation:   hansard.RelationExplicitRef,
			Relevance:  c.explicitWeight,
			Evidence:   ref,
		}
		order = append(order, bill.ID)
	}

	matches, err := c.semanticMatches(ctx, text)
	if err != nil {
		// Explicit references stand on their own; a degraded embedding
		// path should not sink them.
		logger.Warn("semantic correlation unavailable", "entity", entityID, "error", err)
		matches = nil
	}

	for _, m := range matches {
		if edge, ok := byBill[m.Bill.ID]; ok {
			edge.Relevance = math.Min(1, edge.Relevance+c.semanticWeight*m.Similarity)
			continue
		}
		if m.Similarity < strongSemanticFloor {
			continue
		}
		byBill[m.Bill.ID] = &hansard.CorrelationEdge{
			EntityID:   entityID,
			EntityKind: kind,
			BillID:     m.Bill.ID,
			Relation:   hansard.RelationSemantic,
			Relevance:  m.Similarity,
			Evidence:   fmt.Sprintf("similarity %.2f to %s", m.Similarity, m.Bill.Number),
		}
		order = append(order, m.Bill.ID)
	}

	edges := make([]hansard.CorrelationEdge, 0, len(order))
	for _, id := range order {
		edges = append(edges, *byBill[id])
	}
	return edges, nil
}

func (c *Correlator) semanticMatches(ctx context.Context, text string) ([]BillMatch, error) {
	embedding, err := c.aiClient.GenerateEmbedding(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("embed entity text: %w", err)
	}
	return c.catalog.SimilarBills(ctx, embedding, semanticCandidates)
}
