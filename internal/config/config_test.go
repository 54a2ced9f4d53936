package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hansard")
	t.Setenv("RABBITMQ_USER", "guest")
	t.Setenv("RABBITMQ_PASSWORD", "guest")
	t.Setenv("RABBITMQ_HOST", "localhost")
	t.Setenv("AI_EMBED_MODEL", "text-embedding-3-small")
	t.Setenv("AI_ANALYSIS_MODEL", "gpt-4o-mini")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.AIAdapter != "openai" {
		t.Errorf("AIAdapter = %q, want openai", cfg.AIAdapter)
	}
	if cfg.RabbitMQPort != "5672" {
		t.Errorf("RabbitMQPort = %q, want 5672", cfg.RabbitMQPort)
	}
	if cfg.MaxCallTokens != 8192 {
		t.Errorf("MaxCallTokens = %d, want 8192", cfg.MaxCallTokens)
	}
	if cfg.FuzzyThreshold != 0.9 {
		t.Errorf("FuzzyThreshold = %v, want 0.9", cfg.FuzzyThreshold)
	}
	if cfg.ExplicitRefWeight != 0.7 || cfg.SemanticWeight != 0.3 {
		t.Errorf("correlation weights = %v/%v, want 0.7/0.3",
			cfg.ExplicitRefWeight, cfg.SemanticWeight)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error with no database url")
	}
}

func TestLoadRejectsUnknownAdapter(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_ADAPTER", "bedrock")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error with unsupported adapter")
	}
}
