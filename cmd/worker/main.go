package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/otienoanyango/hansard-tales-sub004/internal/config"
	"github.com/otienoanyango/hansard-tales-sub004/internal/queue"
	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	oai "github.com/otienoanyango/hansard-tales-sub004/pkg/ai/ollama"
	gai "github.com/otienoanyango/hansard-tales-sub004/pkg/ai/openai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/analyze"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/budget"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/correlate"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger/console"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/pipeline"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/retrieve"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/segment"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/source"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store/postgres"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		consoleLogger := console.NewConsoleBackend(console.ConsoleBackendParams{})
		logger.Init(consoleLogger)
		logger.Fatal("Failed to load configuration", "err", err)
	}

	consoleLogger := console.NewConsoleBackend(console.ConsoleBackendParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var aiClient ai.Client
	switch cfg.AIAdapter {
	case "ollama":
		client, err := oai.NewAnalysisOllamaClient(oai.NewAnalysisOllamaClientParams{
			EmbeddingModel: cfg.EmbeddingModel,
			AnalysisModel:  cfg.AnalysisModel,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewAnalysisOpenAIClient(gai.NewAnalysisOpenAIClientParams{
			EmbeddingModel: cfg.EmbeddingModel,
			AnalysisModel:  cfg.AnalysisModel,

			EmbeddingURL: cfg.EmbeddingURL,
			EmbeddingKey: cfg.EmbeddingKey,
			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,
		})
	}

	ledger := budget.NewLedger(cfg.MonthlyTokenCeiling)
	guarded := budget.NewGuardedClient(budget.Params{
		Inner:          aiClient,
		Ledger:         ledger,
		MaxCallTokens:  cfg.MaxCallTokens,
		CallsPerSecond: cfg.CallsPerSecond,
		MaxInFlight:    int64(cfg.MaxInFlightCalls),
		CacheTTL:       time.Duration(cfg.CacheTTLMinutes) * time.Minute,
	})

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database url", "err", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	migrations := util.GetEnvString("MIGRATIONS_URL", "file://pkg/store/postgres/migrations")
	if err := postgres.Migrate(migrations, cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to apply migrations", "err", err)
	}

	st := postgres.NewStore(pool)

	var provider source.Provider
	if cfg.SourceBucket != "" {
		s3Client, err := source.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Could not create S3 client", "err", err)
		}
		provider = source.NewS3Provider(s3Client, cfg.SourceBucket)
	} else {
		provider = source.NewStoreProvider(st)
	}

	retriever, err := retrieve.NewRetriever(retrieve.NewRetrieverParams{
		AIClient:    guarded,
		Index:       st,
		TopK:        cfg.ContextTopK,
		TokenBudget: cfg.ContextTokenBudget,
	})
	if err != nil {
		logger.Fatal("Could not create retriever", "err", err)
	}

	pipe := pipeline.New(pipeline.Params{
		Store:     st,
		Provider:  provider,
		Segmenter: segment.New(0),
		Retriever: retriever,
		Analyzer:  analyze.NewAnalyzer(guarded, cfg.AnalysisModel),
		Verifier: verify.NewVerifier(verify.NewVerifierParams{
			Source:         provider,
			FuzzyThreshold: cfg.FuzzyThreshold,
			MarginLines:    cfg.VerifyMarginLines,
		}),
		Correlator: correlate.NewCorrelator(correlate.Params{
			AIClient:       guarded,
			Catalog:        st,
			Edges:          st,
			ExplicitWeight: cfg.ExplicitRefWeight,
			SemanticWeight: cfg.SemanticWeight,
			Threshold:      cfg.EdgeScoreThreshold,
		}),
		AIClient: guarded,

		DocumentWorkers:     cfg.DocumentWorkers,
		StatementWorkers:    cfg.StatementWorkers,
		AnalysisRetries:     cfg.AnalysisRetries,
		VerificationRetries: cfg.VerificationRetries,
		MaxFailedShare:      cfg.MaxFailedShare,
		ContextWindowDays:   cfg.ContextWindowDays,
	})

	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// Prefetch one message so a long batch never piles up deliveries.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.AnalysisQueue,
		fmt.Sprintf("%s_consumer", queue.AnalysisQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.AnalysisQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.AnalysisQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.AnalysisQueue)
					return
				}
				startTime := time.Now()

				var payload queue.AnalysisMessage
				if err := json.Unmarshal(msg.Body, &payload); err != nil {
					logger.Error("Malformed message, sending to DLQ", "err", err)
					queue.HandleProcessingError(consumerCh, msg)
					continue
				}
				logger.Info(
					"Received batch",
					"batch_id", payload.BatchID,
					"documents", len(payload.DocumentIDs),
				)

				report, processingErr := pipe.ProcessBatch(ctx, payload.BatchID, payload.DocumentIDs)
				if processingErr != nil {
					if errors.Is(processingErr, budget.ErrBudgetExhausted) {
						logger.Warn("Token budget exhausted, deferring batch", "batch_id", payload.BatchID)
					} else {
						logger.Error("Error processing batch", "batch_id", payload.BatchID, "err", processingErr)
					}
					queue.HandleProcessingError(consumerCh, msg)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info(
						"Batch processed",
						"batch_id", report.ID,
						"failed_share", fmt.Sprintf("%.3f", report.FailedShare),
						"publish_blocked", report.PublishBlocked,
					)
				}

				metrics := guarded.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"budget_spent", guarded.Spent(),
					"duration", fmt.Sprintf("%02d:%02d:%02d",
						int(aiDuration.Hours()),
						int(aiDuration.Minutes())%60,
						int(aiDuration.Seconds())%60,
					),
				)

				processingDuration := time.Since(startTime)
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d",
						int(processingDuration.Hours()),
						int(processingDuration.Minutes())%60,
						int(processingDuration.Seconds())%60,
					),
				)
				guarded.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
