package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
)

// AnalysisOpenAIClient implements ai.Client against OpenAI-compatible
// endpoints. Separate clients are kept for embeddings and chat so the two can
// point at different providers.
type AnalysisOpenAIClient struct {
	embeddingModel string
	analysisModel  string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	timeoutMin    int
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewAnalysisOpenAIClientParams defines the configuration for creating an
// AnalysisOpenAIClient. Empty URLs fall back to the official endpoint.
type NewAnalysisOpenAIClientParams struct {
	EmbeddingModel string
	AnalysisModel  string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	TimeoutMinutes          int
	MaxConcurrentEmbeddings int64
}

// NewAnalysisOpenAIClient creates a client configured with the provided
// parameters.
func NewAnalysisOpenAIClient(
	params NewAnalysisOpenAIClientParams,
) *AnalysisOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	timeoutMin := params.TimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = 5
	}
	maxEmbeds := params.MaxConcurrentEmbeddings
	if maxEmbeds <= 0 {
		maxEmbeds = 4
	}

	return &AnalysisOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		analysisModel:  params.AnalysisModel,

		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,
		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,

		timeoutMin:    timeoutMin,
		embeddingLock: semaphore.NewWeighted(maxEmbeds),

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(baseURL, apiKey string) *openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

func (c *AnalysisOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics zeroes the cumulative usage counters.
func (c *AnalysisOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a copy of the cumulative usage counters.
func (c *AnalysisOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
