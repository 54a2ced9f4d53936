package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
)

// AnalysisOllamaClient implements ai.Client against a locally-hosted Ollama
// server.
type AnalysisOllamaClient struct {
	embeddingModel string
	analysisModel  string

	reqLock    *semaphore.Weighted
	timeoutMin int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewAnalysisOllamaClientParams contains configuration for creating a new
// AnalysisOllamaClient.
type NewAnalysisOllamaClientParams struct {
	EmbeddingModel string
	AnalysisModel  string

	BaseURL string
	ApiKey  string

	TimeoutMinutes        int
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewAnalysisOllamaClient creates a new Ollama-backed AI client. It connects
// to the server at BaseURL (or the default if empty).
func NewAnalysisOllamaClient(
	params NewAnalysisOllamaClientParams,
) (*AnalysisOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	maxReqs := params.MaxConcurrentRequests
	if maxReqs <= 0 {
		maxReqs = 2
	}
	timeoutMin := params.TimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = 10
	}

	return &AnalysisOllamaClient{
		embeddingModel: params.EmbeddingModel,
		analysisModel:  params.AnalysisModel,

		reqLock:    semaphore.NewWeighted(maxReqs),
		timeoutMin: timeoutMin,

		Client: cli,
	}, nil
}

func (c *AnalysisOllamaClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics zeroes the cumulative usage counters.
func (c *AnalysisOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a copy of the cumulative usage counters.
func (c *AnalysisOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
