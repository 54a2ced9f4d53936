package budget

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

const (
	DefaultCacheTTL        = 60 * time.Minute
	DefaultCallsPerSecond  = 2.0
	DefaultMaxInFlight     = 4
	DefaultMaxCallTokens   = 8000
	cacheCleanupInterval   = 10 * time.Minute
	tokenEstimateEncoding  = "o200k_base"
	fallbackCharsPerToken  = 4
)

// TokenCounter estimates the token cost of a piece of text.
type TokenCounter func(text string) int

// GuardedClient wraps an ai.Client with the spending controls every model
// call must pass through: a response cache keyed by prompt content, an
// atomic reserve-then-settle token ledger, a request rate limit, and an
// in-flight cap.
type GuardedClient struct {
	inner       ai.Client
	ledger      *Ledger
	cache       *gocache.Cache
	limiter     *rate.Limiter
	inFlight    *semaphore.Weighted
	maxCall     int64
	countTokens TokenCounter
}

type Params struct {
	Inner          ai.Client
	Ledger         *Ledger
	MaxCallTokens  int64
	CallsPerSecond float64
	MaxInFlight    int64
	CacheTTL       time.Duration
	CountTokens    TokenCounter // defaults to a tiktoken estimate
}

func NewGuardedClient(p Params) *GuardedClient {
	if p.MaxCallTokens <= 0 {
		p.MaxCallTokens = DefaultMaxCallTokens
	}
	if p.CallsPerSecond <= 0 {
		p.CallsPerSecond = DefaultCallsPerSecond
	}
	if p.MaxInFlight <= 0 {
		p.MaxInFlight = DefaultMaxInFlight
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = DefaultCacheTTL
	}
	if p.CountTokens == nil {
		p.CountTokens = estimateTokens
	}
	return &GuardedClient{
		inner:       p.Inner,
		ledger:      p.Ledger,
		cache:       gocache.New(p.CacheTTL, cacheCleanupInterval),
		limiter:     rate.NewLimiter(rate.Limit(p.CallsPerSecond), 1),
		inFlight:    semaphore.NewWeighted(p.MaxInFlight),
		maxCall:     p.MaxCallTokens,
		countTokens: p.CountTokens,
	}
}

var _ ai.Client = (*GuardedClient)(nil)

func (g *GuardedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	options := ai.GenerateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	key := cacheKey("completion", options.Model, prompt)
	if cached, ok := g.cache.Get(key); ok {
		logger.Debug("completion served from cache", "key", key[:12])
		return cached.(string), nil
	}

	release, err := g.admit(ctx, g.maxCall)
	if err != nil {
		return "", err
	}

	response, err := g.inner.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		release(0)
		return "", err
	}
	release(int64(g.countTokens(prompt) + g.countTokens(response)))

	g.cache.SetDefault(key, response)
	return response, nil
}

func (g *GuardedClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	options := ai.GenerateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	key := cacheKey("format:"+name, options.Model, prompt)
	if cached, ok := g.cache.Get(key); ok {
		logger.Debug("structured completion served from cache", "key", key[:12])
		return json.Unmarshal(cached.([]byte), out)
	}

	release, err := g.admit(ctx, g.maxCall)
	if err != nil {
		return err
	}
	if err := g.inner.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...); err != nil {
		release(0)
		return err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		release(int64(g.countTokens(prompt)) + g.maxCall/4)
		return nil
	}
	release(int64(g.countTokens(prompt) + g.countTokens(string(encoded))))
	g.cache.SetDefault(key, encoded)
	return nil
}

func (g *GuardedClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	key := cacheKey("embedding", "", string(input))
	if cached, ok := g.cache.Get(key); ok {
		return cached.([]float32), nil
	}

	cost := int64(g.countTokens(string(input)))
	if cost > g.maxCall {
		cost = g.maxCall
	}
	release, err := g.admit(ctx, cost)
	if err != nil {
		return nil, err
	}

	embedding, err := g.inner.GenerateEmbedding(ctx, input)
	if err != nil {
		release(0)
		return nil, err
	}
	release(cost)

	g.cache.SetDefault(key, embedding)
	return embedding, nil
}

func (g *GuardedClient) ResetMetrics()               { g.inner.ResetMetrics() }
func (g *GuardedClient) GetMetrics() ai.ModelMetrics { return g.inner.GetMetrics() }

// Spent exposes the ledger's committed usage for reporting.
func (g *GuardedClient) Spent() int64 { return g.ledger.Spent() }

// admit runs the pre-dispatch gauntlet: reserve tokens, wait for the rate
// limiter, acquire an in-flight slot. The returned func settles the
// reservation to the actual token count and frees the slot.
func (g *GuardedClient) admit(ctx context.Context, reserve int64) (func(actual int64), error) {
	if err := g.ledger.Reserve(reserve); err != nil {
		return nil, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.ledger.Release(reserve)
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if err := g.inFlight.Acquire(ctx, 1); err != nil {
		g.ledger.Release(reserve)
		return nil, fmt.Errorf("in-flight limit: %w", err)
	}
	return func(actual int64) {
		g.inFlight.Release(1)
		g.ledger.Settle(reserve, actual)
	}, nil
}

func cacheKey(kind, model, content string) string {
	sum := sha256.Sum256([]byte(kind + "\x00" + model + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

var (
	tokenEncoder     *tiktoken.Tiktoken
	tokenEncoderOnce sync.Once
)

func estimateTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEstimateEncoding)
		if err != nil {
			logger.Warn("token encoder unavailable, using character estimate", "error", err)
			return
		}
		tokenEncoder = enc
	})
	if tokenEncoder == nil {
		return len(text) / fallbackCharsPerToken
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}
