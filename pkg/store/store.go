package store

import (
	"context"
	"errors"
	"time"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/correlate"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/retrieve"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentStore holds raw transcripts and their segmentation outcome.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc hansard.RawDocument) error
	DocumentByID(ctx context.Context, id string) (*hansard.RawDocument, error)
	SetDocumentStatus(ctx context.Context, id string, status hansard.DocumentStatus, reason string) error
}

// StatementStore holds segmented statements, their classification, and their
// pipeline status.
type StatementStore interface {
	SaveStatements(ctx context.Context, stmts []hansard.Statement) error
	StatementsByDocument(ctx context.Context, documentID string) ([]hansard.Statement, error)
	SaveClassification(ctx context.Context, c hansard.Classification) error
	SetStatementStatus(ctx context.Context, statementID string, status hansard.Status, reason string) error
	StatementStatusByID(ctx context.Context, statementID string) (hansard.Status, string, error)
	StatusCounts(ctx context.Context, documentID string) (map[hansard.Status]int, error)
}

// AnalysisStore persists analysis results. SaveVerifiedAnalysis is the only
// write path: callers must verify citations first, so an unverified result
// can never land here.
type AnalysisStore interface {
	SaveVerifiedAnalysis(ctx context.Context, result hansard.AnalysisResult) error
	AnalysisByStatement(ctx context.Context, statementID string) (*hansard.AnalysisResult, error)
}

// CorrelationStore holds the bill catalog and correlation edges.
type CorrelationStore interface {
	correlate.BillCatalog
	correlate.EdgeWriter
	SaveBill(ctx context.Context, bill hansard.Bill, embedding []float32) error
	EdgesForBill(ctx context.Context, billID string) ([]hansard.CorrelationEdge, error)
}

// SourceStore serves primary-source text windows for citation checks.
type SourceStore interface {
	Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error)
}

// BatchStore persists batch run reports.
type BatchStore interface {
	SaveBatchReport(ctx context.Context, report hansard.BatchReport) error
	BatchReportByID(ctx context.Context, id string) (*hansard.BatchReport, error)
}

// AnalysisFilter scopes the read API's analysis listing. Zero fields are
// ignored.
type AnalysisFilter struct {
	SpeakerID string
	Topic     string
	From      time.Time
	To        time.Time
	Limit     int
}

// AnalysisRecord joins an analysis with its statement for the read API.
type AnalysisRecord struct {
	Statement hansard.Statement
	Result    hansard.AnalysisResult
}

// ReadStore backs the query API.
type ReadStore interface {
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error)
}

// Store is the full persistence surface of the engine.
type Store interface {
	DocumentStore
	StatementStore
	AnalysisStore
	CorrelationStore
	SourceStore
	BatchStore
	ReadStore
	retrieve.VectorIndex
}
