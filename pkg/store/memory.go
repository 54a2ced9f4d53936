package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/correlate"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/retrieve"
)

// MemoryStore is an in-memory Store used by tests and single-process runs.
type MemoryStore struct {
	mu sync.RWMutex

	documents       map[string]hansard.RawDocument
	documentStatus  map[string]hansard.DocumentStatus
	statements      map[string]hansard.Statement
	statementOrder  []string
	classifications map[string]hansard.Classification
	statuses        map[string]hansard.Status
	statusReasons   map[string]string
	analyses        map[string]hansard.AnalysisResult

	bills          map[string]hansard.Bill
	billEmbeddings map[string][]float32
	edges          map[string]hansard.CorrelationEdge

	vectors map[string]vectorEntry
	batches map[string]hansard.BatchReport
}

type vectorEntry struct {
	ref       hansard.SourceRef
	embedding []float32
	excerpt   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:       make(map[string]hansard.RawDocument),
		documentStatus:  make(map[string]hansard.DocumentStatus),
		statements:      make(map[string]hansard.Statement),
		classifications: make(map[string]hansard.Classification),
		statuses:        make(map[string]hansard.Status),
		statusReasons:   make(map[string]string),
		analyses:        make(map[string]hansard.AnalysisResult),
		bills:           make(map[string]hansard.Bill),
		billEmbeddings:  make(map[string][]float32),
		edges:           make(map[string]hansard.CorrelationEdge),
		vectors:         make(map[string]vectorEntry),
		batches:         make(map[string]hansard.BatchReport),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) SaveDocument(ctx context.Context, doc hansard.RawDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	return nil
}

func (m *MemoryStore) DocumentByID(ctx context.Context, id string) (*hansard.RawDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &doc, nil
}

func (m *MemoryStore) SetDocumentStatus(ctx context.Context, id string, status hansard.DocumentStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	m.documentStatus[id] = status
	return nil
}

// DocumentStatus reports the segmentation outcome recorded for a document.
func (m *MemoryStore) DocumentStatus(id string) (hansard.DocumentStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.documentStatus[id]
	return s, ok
}

func (m *MemoryStore) SaveStatements(ctx context.Context, stmts []hansard.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stmts {
		if _, ok := m.statements[s.ID]; !ok {
			m.statementOrder = append(m.statementOrder, s.ID)
		}
		m.statements[s.ID] = s
		if _, ok := m.statuses[s.ID]; !ok {
			m.statuses[s.ID] = hansard.StatusPending
		}
	}
	return nil
}

func (m *MemoryStore) StatementsByDocument(ctx context.Context, documentID string) ([]hansard.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hansard.Statement
	for _, id := range m.statementOrder {
		if s := m.statements[id]; s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveClassification(ctx context.Context, c hansard.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statements[c.StatementID]; !ok {
		return fmt.Errorf("statement %s: %w", c.StatementID, ErrNotFound)
	}
	m.classifications[c.StatementID] = c
	return nil
}

func (m *MemoryStore) SetStatementStatus(ctx context.Context, statementID string, status hansard.Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statements[statementID]; !ok {
		return fmt.Errorf("statement %s: %w", statementID, ErrNotFound)
	}
	m.statuses[statementID] = status
	m.statusReasons[statementID] = reason
	return nil
}

func (m *MemoryStore) StatementStatusByID(ctx context.Context, statementID string) (hansard.Status, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[statementID]
	if !ok {
		return "", "", fmt.Errorf("statement %s: %w", statementID, ErrNotFound)
	}
	return status, m.statusReasons[statementID], nil
}

// StatementStatus reports the pipeline status recorded for a statement.
func (m *MemoryStore) StatementStatus(statementID string) (hansard.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[statementID]
	return s, ok
}

func (m *MemoryStore) StatusCounts(ctx context.Context, documentID string) (map[hansard.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[hansard.Status]int)
	for id, s := range m.statements {
		if s.DocumentID == documentID {
			counts[m.statuses[id]]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) SaveVerifiedAnalysis(ctx context.Context, result hansard.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statements[result.StatementID]; !ok {
		return fmt.Errorf("statement %s: %w", result.StatementID, ErrNotFound)
	}
	m.analyses[result.StatementID] = result
	m.statuses[result.StatementID] = hansard.StatusAnalyzed
	return nil
}

func (m *MemoryStore) AnalysisByStatement(ctx context.Context, statementID string) (*hansard.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.analyses[statementID]
	if !ok {
		return nil, fmt.Errorf("analysis for %s: %w", statementID, ErrNotFound)
	}
	return &res, nil
}

func (m *MemoryStore) SaveBill(ctx context.Context, bill hansard.Bill, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills[bill.ID] = bill
	if embedding != nil {
		m.billEmbeddings[bill.ID] = embedding
	}
	return nil
}

func (m *MemoryStore) FindByReference(ctx context.Context, ref string) (*hansard.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	norm := correlate.NormalizeBillRef(ref)
	for _, b := range m.bills {
		if b.Number == norm {
			bill := b
			return &bill, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) SimilarBills(ctx context.Context, embedding []float32, k int) ([]correlate.BillMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []correlate.BillMatch
	for id, emb := range m.billEmbeddings {
		matches = append(matches, correlate.BillMatch{
			Bill:       m.bills[id],
			Similarity: cosineSimilarity(embedding, emb),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryStore) UpsertEdge(ctx context.Context, edge hansard.CorrelationEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[edge.EntityID+"\x00"+edge.BillID] = edge
	return nil
}

func (m *MemoryStore) EdgesForBill(ctx context.Context, billID string) ([]hansard.CorrelationEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hansard.CorrelationEdge
	for _, e := range m.edges {
		if e.BillID == billID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, ref hansard.SourceRef, embedding []float32, excerpt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[ref.String()] = vectorEntry{ref: ref, embedding: embedding, excerpt: excerpt}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, embedding []float32, filters retrieve.Filters, k int) ([]retrieve.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []retrieve.SearchResult
	for _, v := range m.vectors {
		if !m.matchesFilters(v.ref, filters) {
			continue
		}
		results = append(results, retrieve.SearchResult{
			Ref:     v.ref,
			Score:   cosineSimilarity(embedding, v.embedding),
			Excerpt: v.excerpt,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// matchesFilters applies chamber and sitting-date scoping using the metadata
// of the referenced document. Caller holds mu.
func (m *MemoryStore) matchesFilters(ref hansard.SourceRef, filters retrieve.Filters) bool {
	if filters.Chamber == "" && filters.From.IsZero() && filters.To.IsZero() {
		return true
	}
	doc, ok := m.documents[ref.DocumentID]
	if !ok {
		return false
	}
	if filters.Chamber != "" && doc.Chamber != filters.Chamber {
		return false
	}
	if !filters.From.IsZero() && doc.SittingDate.Before(filters.From) {
		return false
	}
	if !filters.To.IsZero() && doc.SittingDate.After(filters.To) {
		return false
	}
	return true
}

func (m *MemoryStore) Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[ref.DocumentID]
	if !ok {
		return "", fmt.Errorf("document %s: %w", ref.DocumentID, ErrNotFound)
	}
	return WindowFromDocument(&doc, ref, marginLines)
}

// WindowFromDocument extracts the lines around ref from an in-memory
// document, clamped to the page bounds.
func WindowFromDocument(doc *hansard.RawDocument, ref hansard.SourceRef, marginLines int) (string, error) {
	for _, page := range doc.Pages {
		if page.Number != ref.Page {
			continue
		}
		if ref.Line < 1 || ref.Line > len(page.Lines) {
			return "", fmt.Errorf("line %d out of range on page %d: %w", ref.Line, ref.Page, ErrNotFound)
		}
		start := ref.Line - 1 - marginLines
		if start < 0 {
			start = 0
		}
		end := ref.Line + marginLines
		if end > len(page.Lines) {
			end = len(page.Lines)
		}
		out := ""
		for i := start; i < end; i++ {
			if i > start {
				out += "\n"
			}
			out += page.Lines[i]
		}
		return out, nil
	}
	return "", fmt.Errorf("page %d in document %s: %w", ref.Page, ref.DocumentID, ErrNotFound)
}

func (m *MemoryStore) SaveBatchReport(ctx context.Context, report hansard.BatchReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[report.ID] = report
	return nil
}

func (m *MemoryStore) BatchReportByID(ctx context.Context, id string) (*hansard.BatchReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AnalysisRecord
	for _, id := range m.statementOrder {
		result, ok := m.analyses[id]
		if !ok {
			continue
		}
		stmt := m.statements[id]
		if filter.SpeakerID != "" && stmt.SpeakerID != filter.SpeakerID {
			continue
		}
		if filter.Topic != "" && !containsTopic(result.Topics, filter.Topic) {
			continue
		}
		doc := m.documents[stmt.DocumentID]
		if !filter.From.IsZero() && doc.SittingDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && doc.SittingDate.After(filter.To) {
			continue
		}
		out = append(out, AnalysisRecord{Statement: stmt, Result: result})
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
