package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/analyze"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/budget"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/classify"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/correlate"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/retrieve"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/segment"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/source"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/verify"
)

const (
	DefaultDocumentWorkers     = 2
	DefaultStatementWorkers    = 4
	DefaultAnalysisRetries     = 2
	DefaultVerificationRetries = 2
	DefaultMaxFailedShare      = 0.25
	DefaultContextWindowDays   = 90
)

// Pipeline drives a batch of documents through segment → classify → retrieve
// → analyze → verify → correlate, with bounded parallelism at the document
// and statement level.
type Pipeline struct {
	store      store.Store
	provider   source.Provider
	segmenter  *segment.Segmenter
	retriever  *retrieve.Retriever
	analyzer   *analyze.Analyzer
	verifier   *verify.Verifier
	correlator *correlate.Correlator
	aiClient   ai.Client

	docWorkers          int
	stmtWorkers         int
	analysisRetries     int
	verificationRetries int
	maxFailedShare      float64
	classifyMinWords    int
	contextWindowDays   int
}

type Params struct {
	Store      store.Store
	Provider   source.Provider
	Segmenter  *segment.Segmenter
	Retriever  *retrieve.Retriever
	Analyzer   *analyze.Analyzer
	Verifier   *verify.Verifier
	Correlator *correlate.Correlator
	AIClient   ai.Client // budget-guarded; used to embed statements for indexing

	DocumentWorkers     int
	StatementWorkers    int
	AnalysisRetries     int
	VerificationRetries int
	MaxFailedShare      float64
	ClassifyMinWords    int
	ContextWindowDays   int
}

func New(p Params) *Pipeline {
	if p.DocumentWorkers <= 0 {
		p.DocumentWorkers = DefaultDocumentWorkers
	}
	if p.StatementWorkers <= 0 {
		p.StatementWorkers = DefaultStatementWorkers
	}
	if p.AnalysisRetries <= 0 {
		p.AnalysisRetries = DefaultAnalysisRetries
	}
	if p.VerificationRetries <= 0 {
		p.VerificationRetries = DefaultVerificationRetries
	}
	if p.MaxFailedShare <= 0 {
		p.MaxFailedShare = DefaultMaxFailedShare
	}
	if p.ClassifyMinWords <= 0 {
		p.ClassifyMinWords = classify.DefaultMinWords
	}
	if p.ContextWindowDays <= 0 {
		p.ContextWindowDays = DefaultContextWindowDays
	}
	return &Pipeline{
		store:               p.Store,
		provider:            p.Provider,
		segmenter:           p.Segmenter,
		retriever:           p.Retriever,
		analyzer:            p.Analyzer,
		verifier:            p.Verifier,
		correlator:          p.Correlator,
		aiClient:            p.AIClient,
		docWorkers:          p.DocumentWorkers,
		stmtWorkers:         p.StatementWorkers,
		analysisRetries:     p.AnalysisRetries,
		verificationRetries: p.VerificationRetries,
		maxFailedShare:      p.MaxFailedShare,
		classifyMinWords:    p.ClassifyMinWords,
		contextWindowDays:   p.ContextWindowDays,
	}
}

// ProcessBatch runs the full pipeline over documentIDs and persists a batch
// report. Cancellation stops new dispatches; statements already in flight
// finish and keep their recorded outcome. A budget-exhausted error halts the
// batch the same way.
func (p *Pipeline) ProcessBatch(ctx context.Context, batchID string, documentIDs []string) (*hansard.BatchReport, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	started := time.Now()
	logger.Info("[Pipeline] Batch started", "batch", batchID, "documents", len(documentIDs))

	var fillerTotal atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.docWorkers)
	for _, id := range documentIDs {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			filler, err := p.processDocument(gctx, id)
			fillerTotal.Add(int64(filler))
			return err
		})
	}
	runErr := g.Wait()
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		logger.Error("[Pipeline] Batch halted", "batch", batchID, "err", runErr)
	}

	report := p.buildReport(context.WithoutCancel(ctx), batchID, documentIDs, int(fillerTotal.Load()), started)
	if err := p.store.SaveBatchReport(context.WithoutCancel(ctx), *report); err != nil {
		logger.Error("[Pipeline] Failed to persist batch report", "batch", batchID, "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("[Pipeline] Batch finished",
		"batch", batchID,
		"analyzed", report.Counts[hansard.StatusAnalyzed],
		"failed_share", fmt.Sprintf("%.2f", report.FailedShare),
		"publish_blocked", report.PublishBlocked,
	)
	return report, runErr
}

// processDocument runs one document through segmentation, classification,
// indexing, and per-statement analysis. Returns the filler count.
func (p *Pipeline) processDocument(ctx context.Context, documentID string) (int, error) {
	doc, err := p.provider.Document(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document %s: %w", documentID, err)
	}
	if err := p.store.SaveDocument(ctx, *doc); err != nil {
		return 0, fmt.Errorf("save document %s: %w", documentID, err)
	}

	stmts, err := p.segmenter.Segment(doc)
	if errors.Is(err, segment.ErrSegmentationFailed) {
		logger.Warn("[Pipeline] Segmentation failed", "document", documentID, "err", err)
		if serr := p.store.SetDocumentStatus(ctx, documentID, hansard.DocumentStatusSegmentationFailed, err.Error()); serr != nil {
			return 0, serr
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("segment document %s: %w", documentID, err)
	}

	if err := p.store.SaveStatements(ctx, stmts); err != nil {
		return 0, fmt.Errorf("save statements for %s: %w", documentID, err)
	}
	if err := p.store.SetDocumentStatus(ctx, documentID, hansard.DocumentStatusSegmented, ""); err != nil {
		return 0, err
	}

	var substantive []hansard.Statement
	fillerCount := 0
	for i := range stmts {
		cls := classify.ClassifyWithMinWords(&stmts[i], p.classifyMinWords)
		if err := p.store.SaveClassification(ctx, cls); err != nil {
			return fillerCount, fmt.Errorf("save classification for %s: %w", stmts[i].ID, err)
		}
		if cls.Label == hansard.LabelFiller {
			fillerCount++
			logger.Debug("[Pipeline] Filler statement skipped",
				"statement", stmts[i].ID, "reasons", cls.ReasonCodes)
			continue
		}
		substantive = append(substantive, stmts[i])
	}

	if err := p.indexStatements(ctx, substantive); err != nil {
		return fillerCount, err
	}

	// Context is drawn from the same chamber within a trailing window ending
	// at the sitting date, so later debates never leak into earlier ones.
	filters := retrieve.Filters{Chamber: doc.Chamber}
	if !doc.SittingDate.IsZero() {
		filters.To = doc.SittingDate
		filters.From = doc.SittingDate.AddDate(0, 0, -p.contextWindowDays)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.stmtWorkers)
	// Dispatch observes gctx so a failed sibling stops new statements, but a
	// statement already running finishes its work and records its outcome
	// rather than being torn down halfway and mislabeled as failed.
	stmtCtx := context.WithoutCancel(gctx)
	for i := range substantive {
		if gctx.Err() != nil {
			break
		}
		st := substantive[i]
		g.Go(func() error {
			return p.processStatement(stmtCtx, &st, filters)
		})
	}
	return fillerCount, g.Wait()
}

// indexStatements embeds statement text into the vector index so later
// statements in the batch can retrieve it as context. Individual embedding
// failures degrade retrieval and are not fatal; an exhausted budget is.
func (p *Pipeline) indexStatements(ctx context.Context, stmts []hansard.Statement) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.stmtWorkers)
	for i := range stmts {
		if gctx.Err() != nil {
			break
		}
		st := stmts[i]
		g.Go(func() error {
			embedding, err := p.aiClient.GenerateEmbedding(gctx, []byte(st.Text))
			if err != nil {
				if errors.Is(err, budget.ErrBudgetExhausted) {
					return err
				}
				logger.Warn("[Pipeline] Could not index statement", "statement", st.ID, "err", err)
				return nil
			}
			if err := p.store.Upsert(gctx, st.Ref(), embedding, excerptOf(st.Text)); err != nil {
				logger.Warn("[Pipeline] Could not store statement vector", "statement", st.ID, "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// processStatement takes one substantive statement to a terminal status.
// Budget exhaustion propagates up and leaves the statement pending; other
// failures record analysis_failed or verification_failed.
func (p *Pipeline) processStatement(ctx context.Context, st *hansard.Statement, filters retrieve.Filters) error {
	items, err := p.retriever.Retrieve(ctx, st, filters)
	if err != nil {
		if errors.Is(err, budget.ErrBudgetExhausted) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.Warn("[Pipeline] Context retrieval failed, analyzing without context",
			"statement", st.ID, "err", err)
		items = nil
	}

	var lastScore float64
	for attempt := 0; attempt <= p.verificationRetries; attempt++ {
		var outcome analyze.Outcome
		if attempt == 0 {
			outcome = p.analyzeWithRetry(ctx, st, items)
		} else {
			outcome = p.analyzer.Reanalyze(ctx, st, items)
		}

		switch outcome.Kind {
		case analyze.OutcomeAPIError:
			if errors.Is(outcome.Err, budget.ErrBudgetExhausted) ||
				errors.Is(outcome.Err, context.Canceled) ||
				errors.Is(outcome.Err, context.DeadlineExceeded) {
				// Not the statement's fault; leave it pending for a rerun.
				return outcome.Err
			}
			logger.Error("[Pipeline] Analysis failed", "statement", st.ID, "err", outcome.Err)
			return p.store.SetStatementStatus(ctx, st.ID, hansard.StatusAnalysisFailed, outcome.Err.Error())
		case analyze.OutcomeMalformed:
			logger.Error("[Pipeline] Model output unusable", "statement", st.ID, "err", outcome.Err)
			return p.store.SetStatementStatus(ctx, st.ID, hansard.StatusAnalysisFailed, "malformed model output")
		}

		verr := p.verifier.Verify(ctx, outcome.Result)
		if verr == nil {
			if err := p.store.SaveVerifiedAnalysis(ctx, *outcome.Result); err != nil {
				return fmt.Errorf("persist analysis for %s: %w", st.ID, err)
			}
			p.correlateStatement(ctx, st, outcome.Result)
			return nil
		}

		var rejection *verify.RejectionError
		if !errors.As(verr, &rejection) {
			// Source text unavailable is operational, not a citation failure.
			logger.Error("[Pipeline] Verification unavailable", "statement", st.ID, "err", verr)
			return p.store.SetStatementStatus(ctx, st.ID, hansard.StatusAnalysisFailed, "source unavailable: "+verr.Error())
		}
		lastScore = rejection.BestScore
		logger.Warn("[Pipeline] Citations rejected, reanalyzing",
			"statement", st.ID, "attempt", attempt+1, "best_score", rejection.BestScore)
	}

	reason := fmt.Sprintf("citations rejected after %d attempts (best score %.3f)",
		p.verificationRetries+1, lastScore)
	return p.store.SetStatementStatus(ctx, st.ID, hansard.StatusVerificationFailed, reason)
}

// analyzeWithRetry retries transient endpoint failures; malformed output is
// handled inside the analyzer and never retried here.
func (p *Pipeline) analyzeWithRetry(ctx context.Context, st *hansard.Statement, items []hansard.ContextItem) analyze.Outcome {
	outcome, err := util.RetryWithContext(ctx, p.analysisRetries+1, func(ctx context.Context) (analyze.Outcome, error) {
		o := p.analyzer.Analyze(ctx, st, items)
		if o.Kind == analyze.OutcomeAPIError && !errors.Is(o.Err, budget.ErrBudgetExhausted) {
			return o, o.Err
		}
		return o, nil
	})
	if err != nil {
		return analyze.Outcome{Kind: analyze.OutcomeAPIError, Err: err}
	}
	return outcome
}

func (p *Pipeline) correlateStatement(ctx context.Context, st *hansard.Statement, result *hansard.AnalysisResult) {
	edges, err := p.correlator.Correlate(ctx, st.ID, hansard.EntityStatement, st.Text)
	if err != nil {
		// The verified analysis is already persisted; a correlation failure
		// costs edges, not the result.
		logger.Warn("[Pipeline] Correlation failed", "statement", st.ID, "err", err)
		return
	}
	if len(edges) > 0 {
		logger.Debug("[Pipeline] Correlated statement", "statement", st.ID, "edges", len(edges))
	}
}

func (p *Pipeline) buildReport(ctx context.Context, batchID string, documentIDs []string, fillerCount int, started time.Time) *hansard.BatchReport {
	counts := make(map[hansard.Status]int)
	for _, id := range documentIDs {
		c, err := p.store.StatusCounts(ctx, id)
		if err != nil {
			logger.Error("[Pipeline] Could not count statuses", "document", id, "err", err)
			continue
		}
		for status, n := range c {
			counts[status] += n
		}
	}

	// Share is measured over statements that reached a terminal status, so a
	// halted batch (pending statements left behind) is not diluted by them.
	failed := counts[hansard.StatusAnalysisFailed] + counts[hansard.StatusVerificationFailed]
	processed := counts[hansard.StatusAnalyzed] + failed
	share := 0.0
	if processed > 0 {
		share = float64(failed) / float64(processed)
	}

	return &hansard.BatchReport{
		ID:             batchID,
		DocumentIDs:    documentIDs,
		Counts:         counts,
		FillerCount:    fillerCount,
		FailedShare:    share,
		PublishBlocked: share > p.maxFailedShare,
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
}

func excerptOf(text string) string {
	const maxLen = 240
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
