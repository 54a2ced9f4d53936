package config

import (
	"fmt"

	"github.com/go-playground/validator"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
)

// Config holds all runtime settings for the worker and the read API. Values
// are read from the environment (a .env file is honored in development) and
// validated once at startup.
type Config struct {
	Debug bool

	DatabaseURL string `validate:"required"`

	RabbitMQUser     string `validate:"required"`
	RabbitMQPassword string `validate:"required"`
	RabbitMQHost     string `validate:"required"`
	RabbitMQPort     string `validate:"required"`

	AIAdapter      string `validate:"oneof=openai ollama"`
	EmbeddingModel string `validate:"required"`
	AnalysisModel  string `validate:"required"`
	EmbeddingURL   string
	EmbeddingKey   string
	ChatURL        string
	ChatKey        string

	// Budget and rate limiting for generative-model calls.
	MonthlyTokenCeiling int64   `validate:"gt=0"`
	MaxCallTokens       int64   `validate:"gt=0"`
	CallsPerSecond      float64 `validate:"gt=0"`
	MaxInFlightCalls    int     `validate:"gt=0"`
	CacheTTLMinutes     int     `validate:"gt=0"`

	// Pipeline shape.
	DocumentWorkers  int `validate:"gt=0"`
	StatementWorkers int `validate:"gt=0"`
	AnalysisRetries  int `validate:"gte=0"`

	// Retriever.
	ContextTopK        int `validate:"gt=0"`
	ContextTokenBudget int `validate:"gt=0"`
	ContextWindowDays  int `validate:"gt=0"`

	// Verifier.
	FuzzyThreshold     float64 `validate:"gte=0,lte=1"`
	VerifyMarginLines  int     `validate:"gte=0"`
	VerificationRetries int    `validate:"gte=0"`

	// Correlator.
	ExplicitRefWeight  float64 `validate:"gte=0,lte=1"`
	SemanticWeight     float64 `validate:"gte=0,lte=1"`
	EdgeScoreThreshold float64 `validate:"gte=0,lte=1"`

	// Publishing gate: a batch whose failed share exceeds this fraction is
	// blocked from downstream publishing.
	MaxFailedShare float64 `validate:"gte=0,lte=1"`

	// Read API.
	ServerPort string
	JWKSURL    string

	// Optional S3 source-text provider.
	SourceBucket string
	SourceRegion string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	util.LoadEnv()

	cfg := &Config{
		Debug: util.GetEnvBool("DEBUG", false),

		DatabaseURL: util.GetEnv("DATABASE_URL"),

		RabbitMQUser:     util.GetEnv("RABBITMQ_USER"),
		RabbitMQPassword: util.GetEnv("RABBITMQ_PASSWORD"),
		RabbitMQHost:     util.GetEnv("RABBITMQ_HOST"),
		RabbitMQPort:     util.GetEnvString("RABBITMQ_PORT", "5672"),

		AIAdapter:      util.GetEnvString("AI_ADAPTER", "openai"),
		EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
		AnalysisModel:  util.GetEnv("AI_ANALYSIS_MODEL"),
		EmbeddingURL:   util.GetEnv("AI_EMBED_URL"),
		EmbeddingKey:   util.GetEnv("AI_EMBED_KEY"),
		ChatURL:        util.GetEnv("AI_CHAT_URL"),
		ChatKey:        util.GetEnv("AI_CHAT_KEY"),

		MonthlyTokenCeiling: int64(util.GetEnvInt("BUDGET_MONTHLY_TOKENS", 5_000_000)),
		MaxCallTokens:       int64(util.GetEnvInt("BUDGET_MAX_CALL_TOKENS", 8192)),
		CallsPerSecond:      util.GetEnvFloat("BUDGET_CALLS_PER_SECOND", 2),
		MaxInFlightCalls:    util.GetEnvInt("BUDGET_MAX_IN_FLIGHT", 4),
		CacheTTLMinutes:     util.GetEnvInt("BUDGET_CACHE_TTL_MINUTES", 24*60),

		DocumentWorkers:  util.GetEnvInt("PIPELINE_DOCUMENT_WORKERS", 4),
		StatementWorkers: util.GetEnvInt("PIPELINE_STATEMENT_WORKERS", 8),
		AnalysisRetries:  util.GetEnvInt("PIPELINE_ANALYSIS_RETRIES", 2),

		ContextTopK:        util.GetEnvInt("CONTEXT_TOP_K", 10),
		ContextTokenBudget: util.GetEnvInt("CONTEXT_TOKEN_BUDGET", 3000),
		ContextWindowDays:  util.GetEnvInt("CONTEXT_WINDOW_DAYS", 90),

		FuzzyThreshold:      util.GetEnvFloat("VERIFY_FUZZY_THRESHOLD", 0.9),
		VerifyMarginLines:   util.GetEnvInt("VERIFY_MARGIN_LINES", 2),
		VerificationRetries: util.GetEnvInt("VERIFY_RETRIES", 2),

		ExplicitRefWeight:  util.GetEnvFloat("CORRELATE_EXPLICIT_WEIGHT", 0.7),
		SemanticWeight:     util.GetEnvFloat("CORRELATE_SEMANTIC_WEIGHT", 0.3),
		EdgeScoreThreshold: util.GetEnvFloat("CORRELATE_EDGE_THRESHOLD", 0.5),

		MaxFailedShare: util.GetEnvFloat("PUBLISH_MAX_FAILED_SHARE", 0.1),

		ServerPort: util.GetEnvString("SERVER_PORT", "8080"),
		JWKSURL:    util.GetEnv("JWKS_URL"),

		SourceBucket: util.GetEnv("SOURCE_S3_BUCKET"),
		SourceRegion: util.GetEnv("SOURCE_S3_REGION"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
