package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/correlate"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/retrieve"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

// Store is the Postgres-backed persistence layer. Source text is stored one
// line per row so citation windows and vector hits address the same lines
// the segmenter saw.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func (s *Store) SaveDocument(ctx context.Context, doc hansard.RawDocument) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO documents (id, url, content_hash, chamber, sitting_date)
		VALUES ($1, $2, $3, $4, NULLIF($5::date, '0001-01-01'))
		ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.URL, doc.ContentHash, doc.Chamber, doc.SittingDate,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Reprocessing a known document; its lines are already stored.
		return tx.Commit(ctx)
	}

	rows := make([][]any, 0, doc.LineCount())
	for _, page := range doc.Pages {
		for i, line := range page.Lines {
			rows = append(rows, []any{doc.ID, page.Number, i + 1, util.SanitizeText(line)})
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"source_lines"},
		[]string{"document_id", "page", "line", "text"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy source lines: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) DocumentByID(ctx context.Context, id string) (*hansard.RawDocument, error) {
	doc := hansard.RawDocument{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT url, content_hash, chamber, COALESCE(sitting_date, '0001-01-01')
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.URL, &doc.ContentHash, &doc.Chamber, &doc.SittingDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT page, line, text FROM source_lines
		WHERE document_id = $1 ORDER BY page, line`, id)
	if err != nil {
		return nil, fmt.Errorf("select source lines: %w", err)
	}
	defer rows.Close()

	var current *hansard.Page
	for rows.Next() {
		var page, line int
		var text string
		if err := rows.Scan(&page, &line, &text); err != nil {
			return nil, fmt.Errorf("scan source line: %w", err)
		}
		if current == nil || current.Number != page {
			doc.Pages = append(doc.Pages, hansard.Page{Number: page})
			current = &doc.Pages[len(doc.Pages)-1]
		}
		current.Lines = append(current.Lines, text)
	}
	return &doc, rows.Err()
}

func (s *Store) SetDocumentStatus(ctx context.Context, id string, status hansard.DocumentStatus, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $2, status_reason = $3 WHERE id = $1`,
		id, string(status), reason)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SaveStatements(ctx context.Context, stmts []hansard.Statement) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, st := range stmts {
		_, err := tx.Exec(ctx, `
			INSERT INTO statements
				(id, document_id, speaker_id, speaker_name, text, page, line, start_offset, end_offset, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
			ON CONFLICT (id) DO NOTHING`,
			st.ID, st.DocumentID, st.SpeakerID, util.SanitizeText(st.SpeakerName), util.SanitizeText(st.Text),
			st.Page, st.Line, st.StartOffset, st.EndOffset,
		)
		if err != nil {
			return fmt.Errorf("insert statement %s: %w", st.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) StatementsByDocument(ctx context.Context, documentID string) ([]hansard.Statement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, speaker_id, speaker_name, text, page, line, start_offset, end_offset
		FROM statements WHERE document_id = $1 ORDER BY start_offset`, documentID)
	if err != nil {
		return nil, fmt.Errorf("select statements: %w", err)
	}
	defer rows.Close()

	var out []hansard.Statement
	for rows.Next() {
		var st hansard.Statement
		if err := rows.Scan(&st.ID, &st.DocumentID, &st.SpeakerID, &st.SpeakerName,
			&st.Text, &st.Page, &st.Line, &st.StartOffset, &st.EndOffset); err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) SaveClassification(ctx context.Context, c hansard.Classification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classifications (statement_id, label, reason_codes)
		VALUES ($1, $2, $3)
		ON CONFLICT (statement_id) DO NOTHING`,
		c.StatementID, string(c.Label), c.ReasonCodes)
	if err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func (s *Store) SetStatementStatus(ctx context.Context, statementID string, status hansard.Status, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE statements SET status = $2, status_reason = $3 WHERE id = $1`,
		statementID, string(status), reason)
	if err != nil {
		return fmt.Errorf("update statement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("statement %s: %w", statementID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) StatementStatusByID(ctx context.Context, statementID string) (hansard.Status, string, error) {
	var status, reason string
	err := s.pool.QueryRow(ctx, `
		SELECT status, status_reason FROM statements WHERE id = $1`, statementID,
	).Scan(&status, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("statement %s: %w", statementID, store.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("select statement status: %w", err)
	}
	return hansard.Status(status), reason, nil
}

func (s *Store) StatusCounts(ctx context.Context, documentID string) (map[hansard.Status]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM statements
		WHERE document_id = $1 GROUP BY status`, documentID)
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[hansard.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[hansard.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *Store) SaveVerifiedAnalysis(ctx context.Context, result hansard.AnalysisResult) error {
	citations, err := json.Marshal(result.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	contextItems, err := json.Marshal(result.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analyses
			(statement_id, sentiment, confidence, topics, quality_score, citations, context_items)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (statement_id) DO UPDATE SET
			sentiment = EXCLUDED.sentiment,
			confidence = EXCLUDED.confidence,
			topics = EXCLUDED.topics,
			quality_score = EXCLUDED.quality_score,
			citations = EXCLUDED.citations,
			context_items = EXCLUDED.context_items`,
		result.StatementID, string(result.Sentiment), result.Confidence,
		result.Topics, result.QualityScore, citations, contextItems)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE statements SET status = 'analyzed', status_reason = '' WHERE id = $1`,
		result.StatementID)
	if err != nil {
		return fmt.Errorf("mark analyzed: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) AnalysisByStatement(ctx context.Context, statementID string) (*hansard.AnalysisResult, error) {
	result := hansard.AnalysisResult{StatementID: statementID}
	var sentiment string
	var citations, contextItems []byte
	err := s.pool.QueryRow(ctx, `
		SELECT sentiment, confidence, topics, quality_score, citations, context_items
		FROM analyses WHERE statement_id = $1`, statementID,
	).Scan(&sentiment, &result.Confidence, &result.Topics, &result.QualityScore, &citations, &contextItems)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %s: %w", statementID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	result.Sentiment = hansard.Sentiment(sentiment)
	if err := json.Unmarshal(citations, &result.Citations); err != nil {
		return nil, fmt.Errorf("unmarshal citations: %w", err)
	}
	if err := json.Unmarshal(contextItems, &result.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return &result, nil
}

func (s *Store) SaveBill(ctx context.Context, bill hansard.Bill, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bills (id, number, title, summary, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			number = EXCLUDED.number,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			embedding = COALESCE(EXCLUDED.embedding, bills.embedding)`,
		bill.ID, bill.Number, bill.Title, bill.Summary, vectorOrNil(embedding))
	if err != nil {
		return fmt.Errorf("upsert bill: %w", err)
	}
	return nil
}

func (s *Store) FindByReference(ctx context.Context, ref string) (*hansard.Bill, error) {
	norm := correlate.NormalizeBillRef(ref)
	var bill hansard.Bill
	err := s.pool.QueryRow(ctx, `
		SELECT id, number, title, summary FROM bills WHERE lower(number) = lower($1)`, norm,
	).Scan(&bill.ID, &bill.Number, &bill.Title, &bill.Summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select bill by reference: %w", err)
	}
	return &bill, nil
}

func (s *Store) SimilarBills(ctx context.Context, embedding []float32, k int) ([]correlate.BillMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, number, title, summary, 1 - (embedding <=> $1) AS similarity
		FROM bills WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1 LIMIT $2`,
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("similar bills: %w", err)
	}
	defer rows.Close()

	var matches []correlate.BillMatch
	for rows.Next() {
		var m correlate.BillMatch
		if err := rows.Scan(&m.Bill.ID, &m.Bill.Number, &m.Bill.Title, &m.Bill.Summary, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan bill match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) UpsertEdge(ctx context.Context, edge hansard.CorrelationEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO correlation_edges
			(entity_id, entity_kind, bill_id, relation_kind, relevance_score, evidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_id, bill_id) DO UPDATE SET
			entity_kind = EXCLUDED.entity_kind,
			relation_kind = EXCLUDED.relation_kind,
			relevance_score = EXCLUDED.relevance_score,
			evidence = EXCLUDED.evidence`,
		edge.EntityID, string(edge.EntityKind), edge.BillID,
		string(edge.Relation), edge.Relevance, edge.Evidence)
	if err != nil {
		return fmt.Errorf("upsert edge: %w", err)
	}
	return nil
}

func (s *Store) EdgesForBill(ctx context.Context, billID string) ([]hansard.CorrelationEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, entity_kind, bill_id, relation_kind, relevance_score, evidence
		FROM correlation_edges WHERE bill_id = $1 ORDER BY relevance_score DESC`, billID)
	if err != nil {
		return nil, fmt.Errorf("select edges: %w", err)
	}
	defer rows.Close()

	var out []hansard.CorrelationEdge
	for rows.Next() {
		var e hansard.CorrelationEdge
		var kind, relation string
		if err := rows.Scan(&e.EntityID, &kind, &e.BillID, &relation, &e.Relevance, &e.Evidence); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.EntityKind = hansard.EntityKind(kind)
		e.Relation = hansard.RelationKind(relation)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, ref hansard.SourceRef, embedding []float32, excerpt string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO source_vectors (ref, document_id, page, line, embedding, excerpt)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ref) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			excerpt = EXCLUDED.excerpt`,
		ref.String(), ref.DocumentID, ref.Page, ref.Line,
		pgvector.NewVector(embedding), excerpt)
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, filters retrieve.Filters, k int) ([]retrieve.SearchResult, error) {
	query := `
		SELECT v.document_id, v.page, v.line, v.excerpt, 1 - (v.embedding <=> $1) AS score
		FROM source_vectors v
		JOIN documents d ON d.id = v.document_id`
	args := []any{pgvector.NewVector(embedding)}
	var conds []string
	if filters.Chamber != "" {
		args = append(args, filters.Chamber)
		conds = append(conds, fmt.Sprintf("d.chamber = $%d", len(args)))
	}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		conds = append(conds, fmt.Sprintf("d.sitting_date >= $%d", len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		conds = append(conds, fmt.Sprintf("d.sitting_date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY v.embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var results []retrieve.SearchResult
	for rows.Next() {
		var r retrieve.SearchResult
		if err := rows.Scan(&r.Ref.DocumentID, &r.Ref.Page, &r.Ref.Line, &r.Excerpt, &r.Score); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT text FROM source_lines
		WHERE document_id = $1 AND page = $2 AND line BETWEEN $3 AND $4
		ORDER BY line`,
		ref.DocumentID, ref.Page, ref.Line-marginLines, ref.Line+marginLines)
	if err != nil {
		return "", fmt.Errorf("select window: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("scan window line: %w", err)
		}
		lines = append(lines, text)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("window at %s: %w", ref.String(), store.ErrNotFound)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Store) SaveBatchReport(ctx context.Context, report hansard.BatchReport) error {
	counts, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("marshal status counts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO batch_reports
			(id, document_ids, status_counts, filler_count, failed_share, publish_blocked, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			document_ids = EXCLUDED.document_ids,
			status_counts = EXCLUDED.status_counts,
			filler_count = EXCLUDED.filler_count,
			failed_share = EXCLUDED.failed_share,
			publish_blocked = EXCLUDED.publish_blocked,
			finished_at = EXCLUDED.finished_at`,
		report.ID, report.DocumentIDs, counts, report.FillerCount,
		report.FailedShare, report.PublishBlocked, report.StartedAt, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("upsert batch report: %w", err)
	}
	return nil
}

func (s *Store) BatchReportByID(ctx context.Context, id string) (*hansard.BatchReport, error) {
	report := hansard.BatchReport{ID: id}
	var counts []byte
	err := s.pool.QueryRow(ctx, `
		SELECT document_ids, status_counts, filler_count, failed_share, publish_blocked, started_at, finished_at
		FROM batch_reports WHERE id = $1`, id,
	).Scan(&report.DocumentIDs, &counts, &report.FillerCount, &report.FailedShare,
		&report.PublishBlocked, &report.StartedAt, &report.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select batch report: %w", err)
	}
	if err := json.Unmarshal(counts, &report.Counts); err != nil {
		return nil, fmt.Errorf("unmarshal status counts: %w", err)
	}
	return &report, nil
}

func (s *Store) ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]store.AnalysisRecord, error) {
	query := `
		SELECT st.id, st.document_id, st.speaker_id, st.speaker_name, st.text,
		       st.page, st.line, st.start_offset, st.end_offset,
		       a.sentiment, a.confidence, a.topics, a.quality_score, a.citations, a.context_items
		FROM analyses a
		JOIN statements st ON st.id = a.statement_id
		JOIN documents d ON d.id = st.document_id`
	var args []any
	var conds []string
	if filter.SpeakerID != "" {
		args = append(args, filter.SpeakerID)
		conds = append(conds, fmt.Sprintf("st.speaker_id = $%d", len(args)))
	}
	if filter.Topic != "" {
		args = append(args, filter.Topic)
		conds = append(conds, fmt.Sprintf("$%d = ANY(a.topics)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("d.sitting_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("d.sitting_date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY st.document_id, st.start_offset"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []store.AnalysisRecord
	for rows.Next() {
		var rec store.AnalysisRecord
		var sentiment string
		var citations, contextItems []byte
		err := rows.Scan(
			&rec.Statement.ID, &rec.Statement.DocumentID, &rec.Statement.SpeakerID,
			&rec.Statement.SpeakerName, &rec.Statement.Text, &rec.Statement.Page,
			&rec.Statement.Line, &rec.Statement.StartOffset, &rec.Statement.EndOffset,
			&sentiment, &rec.Result.Confidence, &rec.Result.Topics,
			&rec.Result.QualityScore, &citations, &contextItems,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis record: %w", err)
		}
		rec.Result.StatementID = rec.Statement.ID
		rec.Result.Sentiment = hansard.Sentiment(sentiment)
		if err := json.Unmarshal(citations, &rec.Result.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		if err := json.Unmarshal(contextItems, &rec.Result.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
